// Package async presents job-and-poll providers through the synchronous
// response contract. A submitted job becomes AsyncInvocationMetadata plus a
// placeholder reply; each poll maps the upstream status onto in_progress,
// completed or failed.
package async

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"gatewire/internal/core"
	"gatewire/internal/observability"
	"gatewire/internal/responses"
)

// DefaultPollIntervalMs is the advisory poll cadence for new invocations.
const DefaultPollIntervalMs = 2000

const (
	defaultPlaceholder = "Your request is being processed. Check back shortly for the result."
	defaultFailure     = "The request failed."
)

// Formatter formats a finished job's reply.
type Formatter interface {
	Format(ctx context.Context, data []byte, provider string, opts responses.Options) (*core.Response, error)
}

// StatusSource fetches the current state of an upstream job.
type StatusSource interface {
	FetchStatus(ctx context.Context, id string) ([]byte, error)
}

// IsTerminal reports whether status is completed or failed.
func IsTerminal(status core.AsyncStatus) bool {
	return status == core.AsyncCompleted || status == core.AsyncFailed
}

// MapStatus maps an upstream job status onto the tracker's states. Matching
// is exact; unrecognized values, other spellings included, are in progress.
func MapStatus(upstream string) core.AsyncStatus {
	switch upstream {
	case "succeeded":
		return core.AsyncCompleted
	case "failed", "canceled", "cancelled":
		return core.AsyncFailed
	}
	return core.AsyncInProgress
}

// ReplyTerminal reports whether an initial provider reply already carries a
// terminal status and so needs no tracking.
func ReplyTerminal(reply []byte) bool {
	return IsTerminal(MapStatus(gjson.GetBytes(reply, "status").String()))
}

// CreateInput describes a job submission.
type CreateInput struct {
	Provider     string
	Type         string
	Reply        []byte
	Context      core.InvocationContext
	ContentHints core.ContentHints
	// PollIntervalMs of zero uses the tracker default.
	PollIntervalMs int
}

// PollResult is the outcome of one poll.
type PollResult struct {
	Status core.AsyncStatus
	// Result is the formatted reply once completed, the failure reply once
	// failed, and the placeholder otherwise.
	Result *core.Response
	Raw    []byte
}

// Tracker creates and polls async invocations. It holds no per-job state.
type Tracker struct {
	formatter      Formatter
	env            *core.Env
	pollIntervalMs int
	now            func() time.Time
}

// NewTracker returns a Tracker that formats finished jobs with f, persisting
// media through env when it is set.
func NewTracker(f Formatter, env *core.Env, pollIntervalMs int) *Tracker {
	if pollIntervalMs <= 0 {
		pollIntervalMs = DefaultPollIntervalMs
	}
	return &Tracker{formatter: f, env: env, pollIntervalMs: pollIntervalMs, now: time.Now}
}

// Create turns a non-terminal reply into invocation metadata and the
// placeholder response shown while the job runs.
func (t *Tracker) Create(in CreateInput) (*core.AsyncInvocationMetadata, *core.Response, error) {
	if !gjson.ValidBytes(in.Reply) {
		return nil, nil, core.NewProviderError(in.Provider, http.StatusBadGateway, "unparseable job submission reply", nil)
	}
	reply := gjson.ParseBytes(in.Reply)
	if status := reply.Get("status").String(); IsTerminal(MapStatus(status)) {
		return nil, nil, core.NewProviderError(in.Provider, http.StatusBadGateway, "job reply is already terminal: "+status, nil)
	}
	id := reply.Get("id").String()
	if id == "" {
		return nil, nil, core.NewProviderError(in.Provider, http.StatusBadGateway, "job reply carries no id", nil)
	}

	interval := in.PollIntervalMs
	if interval <= 0 {
		interval = t.pollIntervalMs
	}
	hints := in.ContentHints
	if len(hints.Placeholder) == 0 {
		hints.Placeholder = []core.Block{core.TextBlock(defaultPlaceholder)}
	}
	if len(hints.Failure) == 0 {
		hints.Failure = []core.Block{core.TextBlock(defaultFailure)}
	}
	ictx := in.Context
	if ictx.StatusURL == "" {
		ictx.StatusURL = reply.Get("urls.get").String()
	}

	now := t.now().Unix()
	meta := &core.AsyncInvocationMetadata{
		Provider:        in.Provider,
		ID:              id,
		Type:            in.Type,
		PollIntervalMs:  interval,
		InitialResponse: append([]byte(nil), in.Reply...),
		Context:         ictx,
		ContentHints:    hints,
		Status:          core.AsyncInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	slog.Info("async invocation created", "provider", in.Provider, "id", id, "type", in.Type)
	return meta, Placeholder(meta), nil
}

// Placeholder is the reply shown while meta is in progress.
func Placeholder(meta *core.AsyncInvocationMetadata) *core.Response {
	resp := &core.Response{Response: core.Parts(core.TextBlock(hintText(meta.ContentHints.Placeholder, defaultPlaceholder)))}
	resp.EnsureData().AsyncInvocation = meta
	return resp
}

// Settled reports whether meta already holds its terminal outcome.
func Settled(meta *core.AsyncInvocationMetadata) bool {
	switch meta.Status {
	case core.AsyncCompleted:
		return meta.Result != nil
	case core.AsyncFailed:
		return true
	}
	return false
}

// Poll fetches the job status once and updates meta's status, timestamp and,
// on a terminal status, its outcome. It never retries. A settled meta is
// answered from its stored outcome without contacting the provider.
func (t *Tracker) Poll(ctx context.Context, source StatusSource, meta *core.AsyncInvocationMetadata) (*PollResult, error) {
	if Settled(meta) {
		res := &PollResult{Status: meta.Status, Result: meta.Result}
		if meta.Status == core.AsyncFailed {
			res.Result = failure(meta)
		}
		return res, nil
	}

	raw, err := source.FetchStatus(ctx, meta.ID)
	if err != nil {
		observability.AsyncPolls.WithLabelValues(meta.Provider, "error").Inc()
		return nil, err
	}

	upstream := gjson.GetBytes(raw, "status").String()
	status := MapStatus(upstream)
	result := &PollResult{Status: status, Raw: raw}

	switch status {
	case core.AsyncCompleted:
		resp, err := t.formatter.Format(ctx, raw, meta.Provider, responses.Options{
			Model:        meta.Context.Model,
			CompletionID: meta.Context.CompletionID,
			Type:         meta.Type,
			Env:          t.env,
		})
		if err != nil {
			observability.AsyncPolls.WithLabelValues(meta.Provider, "error").Inc()
			return nil, err
		}
		meta.Result = resp
		result.Result = resp
	case core.AsyncFailed:
		meta.Failure = errorText(gjson.GetBytes(raw, "error"))
		result.Result = failure(meta)
	default:
		result.Result = Placeholder(meta)
	}

	meta.Status = status
	meta.UpdatedAt = t.now().Unix()
	observability.AsyncPolls.WithLabelValues(meta.Provider, string(status)).Inc()
	slog.Debug("async invocation polled", "provider", meta.Provider, "id", meta.ID, "upstream_status", upstream, "status", status)
	return result, nil
}

// Wait polls on every tick until the job is terminal or ctx is done. The
// first poll happens immediately.
func (t *Tracker) Wait(ctx context.Context, source StatusSource, meta *core.AsyncInvocationMetadata, tick <-chan time.Time) (*PollResult, error) {
	for {
		res, err := t.Poll(ctx, source, meta)
		if err != nil {
			return nil, err
		}
		if IsTerminal(res.Status) {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-tick:
		}
	}
}

func failure(meta *core.AsyncInvocationMetadata) *core.Response {
	parts := []any{core.TextBlock(hintText(meta.ContentHints.Failure, defaultFailure))}
	if meta.Failure != "" {
		parts = append(parts, core.TextBlock(meta.Failure))
	}
	resp := &core.Response{Response: core.Parts(parts...)}
	resp.EnsureData().AsyncInvocation = meta
	return resp
}

func errorText(r gjson.Result) string {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return ""
	case r.Type == gjson.String:
		return r.String()
	case r.Get("message").Exists():
		return r.Get("message").String()
	}
	return r.Raw
}

func hintText(blocks []core.Block, fallback string) string {
	var texts []string
	for _, b := range blocks {
		if s, ok := core.BlockTextOf(b); ok && s != "" {
			texts = append(texts, s)
		}
	}
	if len(texts) == 0 {
		return fallback
	}
	return strings.Join(texts, "\n")
}
