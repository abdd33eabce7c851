// Package reply renders the comment posted back to the issue.
package reply

import (
	"strings"

	"github.com/backlogbot/internal/command"
)

// fallbackMessage is the fixed reply when model invocation exhausted its
// retries. It is never mixed with partial model output.
const fallbackMessage = "⚠️ エラーが発生したため要約/回答を生成できませんでした。" +
	"お手数ですが管理者にお問い合わせください。"

// Draft is the single comment a delivery may post.
type Draft struct {
	Body       string
	IsFallback bool
}

// Compose wraps a successful model answer for the given command. Summary
// replies list the context URLs that informed them.
func Compose(kind command.Kind, modelText string, usedContextURLs []string) Draft {
	body := strings.TrimSpace(modelText)

	if kind == command.Summary && len(usedContextURLs) > 0 {
		var b strings.Builder
		b.WriteString(body)
		b.WriteString("\n\n**参照コンテキスト**\n")
		for i, u := range usedContextURLs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + u)
		}
		body = b.String()
	}

	return Draft{Body: body}
}

// Fallback is the administrator-contact reply for a failed invocation.
func Fallback() Draft {
	return Draft{Body: fallbackMessage, IsFallback: true}
}
