package contextfetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/backlogbot/internal/backlog"
)

// Fragment is the text gathered from one accepted directive entry.
type Fragment struct {
	SourceURL string
	Text      string
	Truncated bool
}

// Fetcher is the subset of the tracker API the collector reads through. It
// never touches any other origin.
type Fetcher interface {
	GetIssue(ctx context.Context, issueIDOrKey string) (*backlog.Issue, error)
	ListComments(ctx context.Context, issueIDOrKey string, count int) ([]backlog.Comment, error)
	GetWiki(ctx context.Context, wikiID int64) (*backlog.Wiki, error)
	ListWikiAttachments(ctx context.Context, wikiID int64) ([]backlog.Attachment, error)
}

// Collector gathers context fragments within per-resource and total byte
// budgets. Fragments keep the order URLs appeared in the directive.
type Collector struct {
	fetcher          Fetcher
	trackerBase      *url.URL
	perResourceBytes int
	totalBytes       int
	recentCount      int
}

// NewCollector creates a Collector bound to the tracker origin trackerBase.
func NewCollector(fetcher Fetcher, trackerBase *url.URL, perResourceBytes, totalBytes, recentCount int) *Collector {
	return &Collector{
		fetcher:          fetcher,
		trackerBase:      trackerBase,
		perResourceBytes: perResourceBytes,
		totalBytes:       totalBytes,
		recentCount:      recentCount,
	}
}

// Collect parses the comment's context directive and fetches each accepted
// reference sequentially. A failed fetch skips that fragment only. Once the
// total budget is reached, remaining references are omitted.
func (c *Collector) Collect(ctx context.Context, commentBody string) []Fragment {
	var fragments []Fragment
	used := 0

	for _, raw := range Directive(commentBody) {
		if used >= c.totalBytes {
			break
		}

		ref := Classify(raw, c.trackerBase)
		if ref.Kind == Rejected {
			continue
		}

		text, err := c.fetchText(ctx, ref)
		if err != nil {
			log.Warn().Err(err).Str("url", ref.URL).Msg("context fetch failed, skipping")
			continue
		}
		if text == "" {
			continue
		}

		// The per-resource cap is further clamped so the running total can
		// never exceed the overall budget.
		limit := c.perResourceBytes
		if remaining := c.totalBytes - used; remaining < limit {
			limit = remaining
		}

		fragment := Fragment{SourceURL: ref.URL, Text: text}
		if len(fragment.Text) > limit {
			fragment.Text = fragment.Text[:limit]
			fragment.Truncated = true
		}

		used += len(fragment.Text)
		fragments = append(fragments, fragment)
	}

	return fragments
}

func (c *Collector) fetchText(ctx context.Context, ref Ref) (string, error) {
	switch ref.Kind {
	case IssueRef:
		issue, err := c.fetcher.GetIssue(ctx, ref.IssueKey)
		if err != nil {
			return "", err
		}
		comments, err := c.fetcher.ListComments(ctx, ref.IssueKey, c.recentCount)
		if err != nil {
			return "", err
		}
		return issueText(issue, comments, ref.CommentID), nil

	case WikiRef:
		wiki, err := c.fetcher.GetWiki(ctx, ref.WikiID)
		if err != nil {
			return "", err
		}
		attachments, err := c.fetcher.ListWikiAttachments(ctx, ref.WikiID)
		if err != nil {
			return "", err
		}
		return wikiText(wiki, attachments), nil
	}
	return "", nil
}

// issueText flattens an issue and its comments into compact prompt text.
// When onlyCommentID is non-zero, only that comment is included.
func issueText(issue *backlog.Issue, comments []backlog.Comment, onlyCommentID int64) string {
	var parts []string

	parts = append(parts, "Backlog Issue "+issue.IssueKey)
	if issue.Summary != "" {
		parts = append(parts, "題名: "+issue.Summary)
	}
	if issue.Description != "" {
		parts = append(parts, "説明: "+issue.Description)
	}

	var fields []string
	if issue.Status != nil && issue.Status.Name != "" {
		fields = append(fields, "状態: "+issue.Status.Name)
	}
	if issue.Priority != nil && issue.Priority.Name != "" {
		fields = append(fields, "優先度: "+issue.Priority.Name)
	}
	if issue.Assignee != nil && issue.Assignee.Name != "" {
		fields = append(fields, "担当者: "+issue.Assignee.Name)
	}
	if issue.DueDate != "" {
		fields = append(fields, "期限: "+issue.DueDate)
	}
	if len(fields) > 0 {
		parts = append(parts, "フィールド: "+strings.Join(fields, ", "))
	}

	if len(comments) > 0 {
		var lines []string
		for _, comment := range comments {
			if onlyCommentID != 0 && comment.ID != onlyCommentID {
				continue
			}
			author := ""
			if comment.CreatedUser != nil {
				author = comment.CreatedUser.Name
			}
			content := strings.TrimSpace(comment.Content)
			lines = append(lines, fmt.Sprintf("- [%s] %s: %s", comment.Created, author, content))
		}
		if len(lines) > 0 {
			parts = append(parts, "コメント:")
			parts = append(parts, lines...)
		}
	}

	return strings.Join(parts, "\n")
}

// wikiText flattens a wiki page plus its attachment listing.
func wikiText(wiki *backlog.Wiki, attachments []backlog.Attachment) string {
	var parts []string

	parts = append(parts, "Backlog Wiki")
	if wiki.Project != nil && wiki.Project.ProjectKey != "" {
		parts = append(parts, "プロジェクト: "+wiki.Project.ProjectKey)
	}
	if wiki.Name != "" {
		parts = append(parts, "タイトル: "+wiki.Name)
	}
	if wiki.Created != "" || wiki.CreatedUser != nil {
		name := ""
		if wiki.CreatedUser != nil {
			name = wiki.CreatedUser.Name
		}
		parts = append(parts, strings.TrimSpace("作成: "+wiki.Created+" "+name))
	}
	if wiki.Updated != "" || wiki.UpdatedUser != nil {
		name := ""
		if wiki.UpdatedUser != nil {
			name = wiki.UpdatedUser.Name
		}
		parts = append(parts, strings.TrimSpace("更新: "+wiki.Updated+" "+name))
	}
	if wiki.Content != "" {
		parts = append(parts, "本文:", wiki.Content)
	}
	if len(attachments) > 0 {
		parts = append(parts, "添付:")
		for _, a := range attachments {
			parts = append(parts, fmt.Sprintf("- %s (%d)", a.Name, a.Size))
		}
	}

	return strings.Join(parts, "\n")
}
