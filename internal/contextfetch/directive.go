// Package contextfetch ingests supplementary tracker resources named by a
// comment's trailing "context:" directive.
package contextfetch

import (
	"net/url"
	"strconv"
	"strings"
)

const directivePrefix = "context:"

// RefKind classifies a directive URL.
type RefKind int

const (
	// Rejected URLs are silently dropped and are never fetched. Anything
	// outside the configured tracker origin lands here; this is a security
	// boundary, not a convenience filter.
	Rejected RefKind = iota
	// IssueRef points at an issue view page of the tracker.
	IssueRef
	// WikiRef points at a wiki page of the tracker.
	WikiRef
)

// Ref is one classified directive entry.
type Ref struct {
	Kind     RefKind
	URL      string
	IssueKey string
	// CommentID narrows an issue reference to a single comment when the URL
	// carries a #comment-N fragment.
	CommentID int64
	WikiID    int64
}

// Directive returns the ordered URLs of the comment's context directive.
// The directive is the last line beginning with "context:" (case-insensitive);
// entries that are not http(s) URLs are dropped.
func Directive(commentBody string) []string {
	lines := strings.Split(commentBody, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(strings.ToLower(trimmed), directivePrefix) {
			continue
		}
		rest := trimmed[len(directivePrefix):]
		var urls []string
		for _, field := range strings.Fields(rest) {
			if isHTTPURL(field) {
				urls = append(urls, field)
			}
		}
		return urls
	}
	return nil
}

// StripDirective removes the context directive line from a comment body so
// command arguments can be parsed without it.
func StripDirective(commentBody string) string {
	lines := strings.Split(commentBody, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(strings.ToLower(trimmed), directivePrefix) {
			return strings.TrimSpace(strings.Join(append(lines[:i:i], lines[i+1:]...), "\n"))
		}
	}
	return commentBody
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Classify matches a directive URL against the tracker origin. Issue view
// URLs look like https://space.backlog.com/view/PROJ-123[#comment-456], wiki
// URLs like https://space.backlog.com/wiki/PROJ/12345 (last segment numeric).
func Classify(raw string, trackerBase *url.URL) Ref {
	rejected := Ref{Kind: Rejected, URL: raw}

	u, err := url.Parse(raw)
	if err != nil {
		return rejected
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return rejected
	}
	if u.Host != trackerBase.Host {
		return rejected
	}

	if key, ok := strings.CutPrefix(u.Path, "/view/"); ok {
		key = strings.Trim(key, "/")
		if key == "" {
			return rejected
		}
		ref := Ref{Kind: IssueRef, URL: raw, IssueKey: key}
		if rest, ok := strings.CutPrefix(u.Fragment, "comment-"); ok {
			if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
				ref.CommentID = id
			}
		}
		return ref
	}

	if strings.HasPrefix(u.Path, "/wiki/") {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		last := segments[len(segments)-1]
		id, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			return rejected
		}
		return Ref{Kind: WikiRef, URL: raw, WikiID: id}
	}

	return rejected
}
