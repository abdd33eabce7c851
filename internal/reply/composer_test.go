package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backlogbot/internal/command"
)

func TestComposeSummaryAppendsContextURLs(t *testing.T) {
	draft := Compose(command.Summary, "summary text", []string{
		"https://space.backlog.com/view/PROJ-2",
		"https://space.backlog.com/wiki/99",
	})

	assert.False(t, draft.IsFallback)
	assert.Contains(t, draft.Body, "summary text")
	assert.Contains(t, draft.Body, "**参照コンテキスト**")
	assert.Contains(t, draft.Body, "- https://space.backlog.com/view/PROJ-2")
	assert.Contains(t, draft.Body, "- https://space.backlog.com/wiki/99")
}

func TestComposeSummaryWithoutContext(t *testing.T) {
	draft := Compose(command.Summary, "summary text\n", nil)
	assert.Equal(t, "summary text", draft.Body)
}

func TestComposeAskNeverListsContextURLs(t *testing.T) {
	draft := Compose(command.Ask, "the answer", []string{"https://space.backlog.com/view/PROJ-2"})
	assert.Equal(t, "the answer", draft.Body)
}

func TestFallback(t *testing.T) {
	draft := Fallback()
	assert.True(t, draft.IsFallback)
	assert.Contains(t, draft.Body, "管理者")
}
