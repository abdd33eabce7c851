// Package command decides whether a comment event should produce a bot
// action and which of the slash commands it carries.
package command

import (
	"regexp"
	"slices"
	"strings"
)

// Kind identifies one of the recognized slash commands.
type Kind int

const (
	// Unknown means no recognized command token was found.
	Unknown Kind = iota
	// Summary requests a PM-style summary of the issue thread.
	Summary
	// Ask answers a free-text question against the issue thread.
	Ask
	// Update proposes field changes in comment text (no write-back).
	Update
)

func (k Kind) String() string {
	switch k {
	case Summary:
		return "summary"
	case Ask:
		return "ask"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// Command is the parsed slash command of a comment.
type Command struct {
	Kind Kind
	// Question is the free text following /ask; empty for other kinds.
	Question string
}

// Slash tokens are case-sensitive literals; the first occurrence wins and
// anything after it belongs to the command.
var commandRE = regexp.MustCompile(`(?s)/(summary|ask|update)\b(.*)`)

// Parse extracts the command from a comment body. The body must already have
// its trailing context directive removed so that an /ask question does not
// swallow the URL list. Returns ok=false when no recognized token is present.
func Parse(body string) (Command, bool) {
	m := commandRE.FindStringSubmatch(body)
	if m == nil {
		return Command{}, false
	}

	switch m[1] {
	case "summary":
		return Command{Kind: Summary}, true
	case "ask":
		return Command{Kind: Ask, Question: strings.TrimSpace(m[2])}, true
	case "update":
		return Command{Kind: Update}, true
	}
	return Command{}, false
}

// Trigger holds the two gates that may authorize an event: the default
// mention gate and the optional trial-mode allowlist.
type Trigger struct {
	BotUserID      int64
	TrialEnabled   bool
	TrialAllowlist []int64
}

// Authorized reports whether either gate fires for the event. Trial mode with
// an empty allowlist never fires: an unset list must not mean "everyone".
func (t Trigger) Authorized(authorID int64, notifiedUserIDs []int64) bool {
	if t.BotUserID != 0 && slices.Contains(notifiedUserIDs, t.BotUserID) {
		return true
	}
	if t.TrialEnabled && len(t.TrialAllowlist) > 0 && slices.Contains(t.TrialAllowlist, authorID) {
		return true
	}
	return false
}
