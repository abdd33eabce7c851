package webhook

import "errors"

var (
	// ErrMalformedPayload indicates the webhook body is missing required
	// fields or cannot be parsed at all.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
