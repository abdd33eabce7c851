// Package webhook implements the request processing pipeline: authenticate
// the delivery, extract the comment event, suppress duplicates, evaluate the
// trigger, gather context, invoke the model, and post the reply.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/backlogbot/internal/backlog"
	"github.com/backlogbot/internal/command"
	"github.com/backlogbot/internal/contextfetch"
	"github.com/backlogbot/internal/idempotency"
	"github.com/backlogbot/internal/prompt"
	"github.com/backlogbot/internal/reply"
)

// Tracker is the slice of the Backlog API the pipeline itself reads and
// writes. Context fetching goes through the Collector instead.
type Tracker interface {
	GetIssue(ctx context.Context, issueIDOrKey string) (*backlog.Issue, error)
	ListComments(ctx context.Context, issueIDOrKey string, count int) ([]backlog.Comment, error)
	PostComment(ctx context.Context, issueIDOrKey, content string) error
}

// Collector gathers context fragments for a comment body.
type Collector interface {
	Collect(ctx context.Context, commentBody string) []contextfetch.Fragment
}

// Model invokes the language model; retry policy lives behind this interface.
type Model interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// HandlerConfig carries the per-delivery decision inputs.
type HandlerConfig struct {
	SharedSecret       string
	Trigger            command.Trigger
	RecentCommentCount int
}

// Handler processes one webhook delivery per request. It holds no mutable
// state; concurrent deliveries share only the external idempotency store.
type Handler struct {
	cfg       HandlerConfig
	tracker   Tracker
	collector Collector
	model     Model
	// store may be nil, which disables duplicate suppression.
	store idempotency.Store
}

// NewHandler wires the pipeline's collaborators.
func NewHandler(cfg HandlerConfig, tracker Tracker, collector Collector, model Model, store idempotency.Store) *Handler {
	return &Handler{
		cfg:       cfg,
		tracker:   tracker,
		collector: collector,
		model:     model,
		store:     store,
	}
}

// Handle serves POST /webhook.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("delivery_id", uuid.NewString()).Logger()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read payload")
		respond(w, http.StatusBadRequest, map[string]string{"error": "unreadable payload"})
		return
	}

	if !VerifySecret(r, h.cfg.SharedSecret) {
		logger.Warn().Str("outcome", OutcomeUnauthorized.String()).Msg("secret verification failed")
		respond(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	event, err := ExtractEvent(payload)
	if err != nil {
		logger.Warn().Err(err).Str("outcome", OutcomeMalformed.String()).Msg("payload rejected")
		respond(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	logger = logger.With().
		Str("issue", event.IssueKey).
		Int64("comment_id", event.CommentID).
		Logger()

	outcome, err := h.process(r.Context(), logger, event)
	if err != nil {
		logger.Error().Err(err).Str("outcome", outcome.String()).Msg("pipeline failed")
	} else {
		logger.Info().Str("outcome", outcome.String()).Msg("pipeline finished")
	}

	switch outcome {
	case OutcomeDone, OutcomeDuplicate, OutcomeNotTriggered, OutcomeFallback:
		respond(w, http.StatusOK, map[string]string{"result": outcome.String()})
	case OutcomeTrackerError, OutcomeReplyFailed:
		respond(w, http.StatusBadGateway, map[string]string{"error": outcome.String()})
	default:
		respond(w, http.StatusInternalServerError, map[string]string{"error": outcome.String()})
	}
}

// process runs the pipeline stages after authentication and extraction.
// Every return is a terminal outcome for this delivery.
func (h *Handler) process(ctx context.Context, logger zerolog.Logger, event *CommentEvent) (Outcome, error) {
	// Duplicate suppression. The marker is written before any reply is
	// attempted so redelivered events cannot post twice outside the
	// documented race window.
	if h.store != nil {
		key := event.IdempotencyKey()
		exists, err := h.store.Exists(ctx, key)
		if err != nil {
			return OutcomeStoreError, fmt.Errorf("idempotency check: %w", err)
		}
		if exists {
			return OutcomeDuplicate, nil
		}
		if err := h.store.Put(ctx, key); err != nil {
			return OutcomeStoreError, fmt.Errorf("idempotency mark: %w", err)
		}
	}

	if !h.cfg.Trigger.Authorized(event.AuthorID, event.NotifiedUserIDs) {
		return OutcomeNotTriggered, nil
	}

	cmd, ok := command.Parse(contextfetch.StripDirective(event.CommentBody))
	if !ok {
		return OutcomeNotTriggered, nil
	}
	logger.Info().Str("command", cmd.Kind.String()).Msg("comment triggered the bot")

	issue, err := h.tracker.GetIssue(ctx, event.IssueKey)
	if err != nil {
		return OutcomeTrackerError, fmt.Errorf("fetch issue: %w", err)
	}
	recent, err := h.tracker.ListComments(ctx, event.IssueKey, h.cfg.RecentCommentCount)
	if err != nil {
		return OutcomeTrackerError, fmt.Errorf("fetch comments: %w", err)
	}

	fragments := h.collector.Collect(ctx, event.CommentBody)

	p := prompt.Build(cmd, prompt.Input{
		IssueTitle:       issue.Summary,
		IssueDescription: issue.Description,
		RecentComments:   commentTexts(recent),
		Fragments:        fragments,
	})

	var draft reply.Draft
	outcome := OutcomeDone

	text, err := h.model.Invoke(ctx, p.System, p.User)
	if err != nil {
		logger.Error().Err(err).Msg("model invocation exhausted, replying with fallback")
		draft = reply.Fallback()
		outcome = OutcomeFallback
	} else {
		draft = reply.Compose(cmd.Kind, text, fragmentURLs(fragments))
	}

	if err := h.tracker.PostComment(ctx, event.IssueKey, draft.Body); err != nil {
		return OutcomeReplyFailed, fmt.Errorf("post reply: %w", err)
	}
	logger.Info().Bool("fallback", draft.IsFallback).Msg("reply posted")

	return outcome, nil
}

func commentTexts(comments []backlog.Comment) []string {
	var texts []string
	for _, c := range comments {
		if c.Content == "" {
			continue
		}
		texts = append(texts, c.Content)
	}
	return texts
}

func fragmentURLs(fragments []contextfetch.Fragment) []string {
	var urls []string
	for _, f := range fragments {
		urls = append(urls, f.SourceURL)
	}
	return urls
}

func respond(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
