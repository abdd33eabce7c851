// Package prompt assembles the command-specific prompts sent to the model.
// Building is pure: identical inputs yield identical prompts.
package prompt

import (
	"strings"

	"github.com/backlogbot/internal/command"
	"github.com/backlogbot/internal/contextfetch"
)

const (
	// Issue descriptions are clipped before prompting; everything relevant
	// to a comment thread is expected near the top.
	maxDescriptionChars = 1500
	maxRecentComments   = 10
)

// Prompt is a system/user instruction pair for one model invocation.
type Prompt struct {
	System string
	User   string
}

// Input carries the issue thread material every command prompts over.
type Input struct {
	IssueTitle       string
	IssueDescription string
	// RecentComments holds comment bodies, newest first.
	RecentComments []string
	// Fragments are the collected context fragments in directive order.
	Fragments []contextfetch.Fragment
}

const summarySystem = "あなたはプロジェクトマネジメント観点の要約を作るアシスタントです。" +
	"出力は日本語、Markdown。次を短く整理: 1) 背景/目的 2) 現状と進捗" +
	" 3) 期限と担当 4) リスク/ブロッカー 5) 次の具体アクション(1-3)。" +
	" 最後に『不足情報/確認事項』を箇条書きで質問として提示してください。"

const askSystem = "あなたはBacklogチケットのコンテキストに基づいて正確に回答するAIです。" +
	"回答は1〜3段落にまとめ、根拠として集めた資料から短い抜粋を引用し、" +
	"不確実な点や不足している情報はその旨を明記してください。"

const updateSystem = "あなたはBacklogチケットのフィールド整合性レビューを行います。" +
	"出力は日本語、Markdownの箇条書き。フォーマットは厳守:" +
	"『項目名: before → after （理由）』を各行で出力。" +
	" 項目名の例: 期限, 優先度, 状態, 担当者。" +
	" 変更不要なら提案しないか、'変更なし'と明記。"

// Build maps a command to its prompt. The command set is closed; an
// unrecognized command never reaches this point.
func Build(cmd command.Command, in Input) Prompt {
	switch cmd.Kind {
	case command.Ask:
		return Ask(cmd.Question, in)
	case command.Update:
		return Update(in)
	default:
		return Summary(in)
	}
}

// Summary prompts for a PM-style summary of the issue thread.
func Summary(in Input) Prompt {
	var b strings.Builder
	b.WriteString("チケットの題名と説明、直近コメントからPM観点の要約を作ってください。\n")
	writeThread(&b, in)
	writeFragments(&b, in.Fragments)
	return Prompt{System: summarySystem, User: b.String()}
}

// Ask prompts for an answer to the user's free-text question.
func Ask(question string, in Input) Prompt {
	var b strings.Builder
	b.WriteString("以下のチケット情報に基づいて質問に回答してください。\n")
	b.WriteString("質問: " + strings.TrimSpace(question) + "\n\n")
	writeThread(&b, in)
	writeFragments(&b, in.Fragments)
	return Prompt{System: askSystem, User: b.String()}
}

// Update prompts for proposed field changes in before/after form.
func Update(in Input) Prompt {
	var b strings.Builder
	b.WriteString("以下の本文から、期限・優先度・状態・担当の妥当性をレビューし、")
	b.WriteString("フォーマット『項目名: before → after （理由）』で更新提案を出してください。\n\n")
	writeThread(&b, in)
	writeFragments(&b, in.Fragments)
	return Prompt{System: updateSystem, User: b.String()}
}

func writeThread(b *strings.Builder, in Input) {
	b.WriteString("題名: " + in.IssueTitle + "\n")
	b.WriteString("説明: " + clip(in.IssueDescription, maxDescriptionChars) + "\n")

	comments := in.RecentComments
	if len(comments) > maxRecentComments {
		comments = comments[:maxRecentComments]
	}
	b.WriteString("直近コメント(新しい順に最大10):")
	for _, comment := range comments {
		b.WriteString("\n- " + strings.TrimSpace(comment))
	}
}

func writeFragments(b *strings.Builder, fragments []contextfetch.Fragment) {
	if len(fragments) == 0 {
		return
	}
	b.WriteString("\n\n追加コンテキスト:")
	for _, fragment := range fragments {
		b.WriteString("\n" + fragment.Text)
	}
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
