package webhook

import (
	"crypto/subtle"
	"net/http"
)

const (
	secretHeader     = "X-Webhook-Secret"
	secretQueryParam = "token"
)

// VerifySecret checks the shared secret presented by the caller, taken from
// the X-Webhook-Secret header or the ?token= query parameter. A non-empty
// header always wins; a disagreeing query parameter is ignored. Comparison is
// constant-time. An empty configured secret disables the check.
func VerifySecret(r *http.Request, configured string) bool {
	if configured == "" {
		return true
	}

	supplied := r.Header.Get(secretHeader)
	if supplied == "" {
		supplied = r.URL.Query().Get(secretQueryParam)
	}

	return subtle.ConstantTimeCompare([]byte(supplied), []byte(configured)) == 1
}
