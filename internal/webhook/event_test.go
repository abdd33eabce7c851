package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEventTopLevel(t *testing.T) {
	payload := []byte(`{
		"comment": {
			"id": 999,
			"content": "@bot /summary",
			"createdUser": {"id": 5},
			"notifications": [{"user": {"id": 111}}, {"user": {"id": 123}}]
		},
		"issue": {"issueKey": "PROJ-1", "id": 1},
		"unexpected": {"extra": true}
	}`)

	event, err := ExtractEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, "PROJ-1", event.IssueKey)
	assert.Equal(t, "1", event.IssueID)
	assert.Equal(t, int64(999), event.CommentID)
	assert.Equal(t, "@bot /summary", event.CommentBody)
	assert.Equal(t, int64(5), event.AuthorID)
	assert.Equal(t, []int64{111, 123}, event.NotifiedUserIDs)
	assert.Equal(t, "PROJ-1/999", event.IdempotencyKey())
}

func TestExtractEventNestedContent(t *testing.T) {
	payload := []byte(`{
		"type": 3,
		"content": {
			"comment": {
				"id": 1000,
				"content": "@bot /summary",
				"notifications": [{"user": {"id": 123}}],
				"createdUser": {"id": 123}
			},
			"issue": {"issueKey": "PROJ-2", "id": 2}
		}
	}`)

	event, err := ExtractEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-2", event.IssueKey)
	assert.Equal(t, int64(1000), event.CommentID)
}

func TestExtractEventIssueKeyFallbacks(t *testing.T) {
	// "key" instead of "issueKey"
	event, err := ExtractEvent([]byte(`{
		"comment": {"id": 1, "content": "hi"},
		"issue": {"key": "PROJ-3"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "PROJ-3", event.IssueKey)

	// numeric id only
	event, err = ExtractEvent([]byte(`{
		"comment": {"id": 1, "content": "hi"},
		"issue": {"id": 42}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "42", event.IssueKey)
}

func TestExtractEventMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{{{`},
		{name: "empty object", payload: `{}`},
		{name: "missing comment id", payload: `{"comment": {"content": "hi"}, "issue": {"issueKey": "P-1"}}`},
		{name: "missing comment body", payload: `{"comment": {"id": 1}, "issue": {"issueKey": "P-1"}}`},
		{name: "missing issue", payload: `{"comment": {"id": 1, "content": "hi"}}`},
		{name: "issue without any key", payload: `{"comment": {"id": 1, "content": "hi"}, "issue": {}}`},
		{name: "comment is a bare string", payload: `{"content": {"comment": "@bot /summary", "issue": {"issueKey": "P-1"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractEvent([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
