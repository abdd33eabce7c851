package webhook

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySecret(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		query      string
		configured string
		want       bool
	}{
		{
			name:       "valid header",
			header:     "s3cret",
			configured: "s3cret",
			want:       true,
		},
		{
			name:       "valid query param",
			query:      "s3cret",
			configured: "s3cret",
			want:       true,
		},
		{
			name:       "wrong header",
			header:     "nope",
			configured: "s3cret",
			want:       false,
		},
		{
			name:       "missing secret",
			configured: "s3cret",
			want:       false,
		},
		{
			name:       "header wins over disagreeing query param",
			header:     "nope",
			query:      "s3cret",
			configured: "s3cret",
			want:       false,
		},
		{
			name:       "header wins when query is wrong",
			header:     "s3cret",
			query:      "nope",
			configured: "s3cret",
			want:       true,
		},
		{
			name: "empty configured secret disables the check",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/webhook"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			r := httptest.NewRequest("POST", url, nil)
			if tt.header != "" {
				r.Header.Set("X-Webhook-Secret", tt.header)
			}
			assert.Equal(t, tt.want, VerifySecret(r, tt.configured))
		})
	}
}
