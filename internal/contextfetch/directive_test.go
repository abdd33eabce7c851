package contextfetch

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirective(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "no directive",
			body: "@bot /summary",
			want: nil,
		},
		{
			name: "single url",
			body: "/summary\ncontext: https://space.backlog.com/view/PROJ-1",
			want: []string{"https://space.backlog.com/view/PROJ-1"},
		},
		{
			name: "multiple urls keep order",
			body: "/ask q\ncontext: https://a.example/x https://b.example/y",
			want: []string{"https://a.example/x", "https://b.example/y"},
		},
		{
			name: "last directive line wins",
			body: "context: https://a.example/one\n/summary\ncontext: https://a.example/two",
			want: []string{"https://a.example/two"},
		},
		{
			name: "non-url tokens dropped",
			body: "/summary\ncontext: see https://a.example/x please",
			want: []string{"https://a.example/x"},
		},
		{
			name: "case-insensitive prefix",
			body: "/summary\nContext: https://a.example/x",
			want: []string{"https://a.example/x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Directive(tt.body))
		})
	}
}

func TestStripDirective(t *testing.T) {
	body := "@bot /ask migration status\ncontext: https://space.backlog.com/view/PROJ-2"
	assert.Equal(t, "@bot /ask migration status", StripDirective(body))

	// Without a directive the body is untouched.
	assert.Equal(t, "@bot /summary", StripDirective("@bot /summary"))
}

func TestClassify(t *testing.T) {
	base, err := url.Parse("https://space.backlog.com")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want Ref
	}{
		{
			name: "issue url",
			raw:  "https://space.backlog.com/view/PROJ-123",
			want: Ref{Kind: IssueRef, URL: "https://space.backlog.com/view/PROJ-123", IssueKey: "PROJ-123"},
		},
		{
			name: "issue url with comment fragment",
			raw:  "https://space.backlog.com/view/PROJ-123#comment-456",
			want: Ref{Kind: IssueRef, URL: "https://space.backlog.com/view/PROJ-123#comment-456", IssueKey: "PROJ-123", CommentID: 456},
		},
		{
			name: "wiki url",
			raw:  "https://space.backlog.com/wiki/12345",
			want: Ref{Kind: WikiRef, URL: "https://space.backlog.com/wiki/12345", WikiID: 12345},
		},
		{
			name: "wiki url with project segment",
			raw:  "https://space.backlog.com/wiki/PROJ/12345",
			want: Ref{Kind: WikiRef, URL: "https://space.backlog.com/wiki/PROJ/12345", WikiID: 12345},
		},
		{
			name: "foreign origin rejected",
			raw:  "https://evil.example.com/view/PROJ-123",
			want: Ref{Kind: Rejected, URL: "https://evil.example.com/view/PROJ-123"},
		},
		{
			name: "non-numeric wiki id rejected",
			raw:  "https://space.backlog.com/wiki/Home",
			want: Ref{Kind: Rejected, URL: "https://space.backlog.com/wiki/Home"},
		},
		{
			name: "unrelated tracker path rejected",
			raw:  "https://space.backlog.com/projects/PROJ",
			want: Ref{Kind: Rejected, URL: "https://space.backlog.com/projects/PROJ"},
		},
		{
			name: "non-http scheme rejected",
			raw:  "ftp://space.backlog.com/view/PROJ-1",
			want: Ref{Kind: Rejected, URL: "ftp://space.backlog.com/view/PROJ-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw, base))
		})
	}
}
