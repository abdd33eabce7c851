package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CommentEvent is the normalized "comment added" webhook event. It is
// immutable once extracted; everything downstream reads from it.
type CommentEvent struct {
	IssueKey        string
	IssueID         string
	CommentID       int64
	CommentBody     string
	AuthorID        int64
	NotifiedUserIDs []int64
}

// IdempotencyKey identifies this delivery in the marker store.
func (e *CommentEvent) IdempotencyKey() string {
	return e.IssueKey + "/" + strconv.FormatInt(e.CommentID, 10)
}

// Backlog delivers the comment and issue either at the top level or nested
// under "content", depending on webhook configuration. Both shapes are
// accepted; unknown fields are ignored.

type rawPayload struct {
	Comment *rawComment `json:"comment"`
	Issue   *rawIssue   `json:"issue"`
	Content *rawContent `json:"content"`
}

type rawContent struct {
	// Comment is kept raw: some notification payloads carry a bare string
	// here, which does not constitute a processable comment.
	Comment json.RawMessage `json:"comment"`
	Issue   *rawIssue       `json:"issue"`
}

type rawComment struct {
	ID            int64             `json:"id"`
	Content       string            `json:"content"`
	CreatedUser   *rawUser          `json:"createdUser"`
	Notifications []rawNotification `json:"notifications"`
}

type rawNotification struct {
	User rawUser `json:"user"`
}

type rawUser struct {
	ID int64 `json:"id"`
}

type rawIssue struct {
	ID       int64  `json:"id"`
	IssueKey string `json:"issueKey"`
	Key      string `json:"key"`
}

// ExtractEvent parses a webhook payload into a CommentEvent. It returns an
// error wrapping ErrMalformedPayload when the issue key, comment id, or
// comment body is absent or of the wrong shape.
func ExtractEvent(payload []byte) (*CommentEvent, error) {
	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	comment := raw.Comment
	issue := raw.Issue
	if raw.Content != nil {
		if comment == nil && len(raw.Content.Comment) > 0 {
			var nested rawComment
			if err := json.Unmarshal(raw.Content.Comment, &nested); err != nil {
				return nil, fmt.Errorf("%w: content.comment: %v", ErrMalformedPayload, err)
			}
			comment = &nested
		}
		if issue == nil {
			issue = raw.Content.Issue
		}
	}

	if comment == nil || comment.ID == 0 {
		return nil, fmt.Errorf("%w: missing comment id", ErrMalformedPayload)
	}
	if comment.Content == "" {
		return nil, fmt.Errorf("%w: missing comment body", ErrMalformedPayload)
	}
	if issue == nil {
		return nil, fmt.Errorf("%w: missing issue", ErrMalformedPayload)
	}

	issueKey := issue.IssueKey
	if issueKey == "" {
		issueKey = issue.Key
	}
	if issueKey == "" && issue.ID != 0 {
		issueKey = strconv.FormatInt(issue.ID, 10)
	}
	if issueKey == "" {
		return nil, fmt.Errorf("%w: missing issue key", ErrMalformedPayload)
	}

	event := &CommentEvent{
		IssueKey:    issueKey,
		IssueID:     strconv.FormatInt(issue.ID, 10),
		CommentID:   comment.ID,
		CommentBody: comment.Content,
	}
	if comment.CreatedUser != nil {
		event.AuthorID = comment.CreatedUser.ID
	}
	for _, n := range comment.Notifications {
		event.NotifiedUserIDs = append(event.NotifiedUserIDs, n.User.ID)
	}
	return event, nil
}
