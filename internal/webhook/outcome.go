package webhook

// Outcome is the terminal state of one delivery. The pipeline is linear;
// every outcome other than OutcomeDone short-circuits it, and no stage is
// ever revisited.
type Outcome int

const (
	// OutcomeDone means a model-generated reply was posted.
	OutcomeDone Outcome = iota
	// OutcomeUnauthorized means the shared secret was missing or wrong.
	OutcomeUnauthorized
	// OutcomeMalformed means the payload lacked required fields.
	OutcomeMalformed
	// OutcomeDuplicate means the idempotency guard had already seen this
	// comment; nothing was posted.
	OutcomeDuplicate
	// OutcomeNotTriggered means no mention/allowlist match or no recognized
	// command; nothing was posted.
	OutcomeNotTriggered
	// OutcomeFallback means model invocation exhausted its retries and the
	// fixed fallback reply was posted instead.
	OutcomeFallback
	// OutcomeTrackerError means reading the issue thread failed.
	OutcomeTrackerError
	// OutcomeReplyFailed means posting the reply comment failed.
	OutcomeReplyFailed
	// OutcomeStoreError means the idempotency store was unreachable.
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "ok"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeDuplicate:
		return "duplicate_ignored"
	case OutcomeNotTriggered:
		return "ignored"
	case OutcomeFallback:
		return "fallback"
	case OutcomeTrackerError:
		return "tracker_error"
	case OutcomeReplyFailed:
		return "reply_failed"
	case OutcomeStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}
