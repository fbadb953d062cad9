// Package server provides the HTTP surface of the gateway: message and
// response formatting, stream decoding, upstream invocation and async
// invocation tracking.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"gatewire/internal/async"
	"gatewire/internal/core"
	"gatewire/internal/messages"
	"gatewire/internal/observability"
	"gatewire/internal/providers"
	"gatewire/internal/responses"
	"gatewire/internal/streaming"
)

// maxWait bounds GET /v1/invocations/:id?wait=true.
const maxWait = 60 * time.Second

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Registry  *providers.Registry
	Formatter *responses.Formatter
	Tracker   *async.Tracker
	Store     async.Store
	// Env enables media persistence. Nil passes media URLs through.
	Env *core.Env
	// MaxResyncBytes caps binary stream resynchronization. Zero uses the
	// decoder default.
	MaxResyncBytes int
}

// Handler holds the HTTP handlers
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new handler with the given dependencies
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type formatMessagesRequest struct {
	Messages           []core.Message `json:"messages"`
	Provider           string         `json:"provider"`
	Model              string         `json:"model"`
	MaxTokens          int            `json:"max_tokens"`
	TruncationStrategy string         `json:"truncation_strategy"`
	SystemPrompt       string         `json:"system_prompt"`
}

func (r formatMessagesRequest) options() messages.Options {
	return messages.Options{
		MaxTokens:          r.MaxTokens,
		TruncationStrategy: r.TruncationStrategy,
		Provider:           r.Provider,
		Model:              r.Model,
		SystemPrompt:       r.SystemPrompt,
	}
}

// FormatMessages handles POST /v1/format/messages
func (h *Handler) FormatMessages(c echo.Context) error {
	var req formatMessagesRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if req.Provider == "" {
		return handleError(c, core.NewInvalidRequestError("provider is required", nil))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"messages": messages.Format(req.Messages, req.options()),
	})
}

type responseOptions struct {
	Model        string `json:"model"`
	CompletionID string `json:"completion_id"`
	Type         string `json:"type"`
	Stream       bool   `json:"stream"`
	// Persist stores generated media when an object store is configured.
	Persist bool `json:"persist"`
}

type formatResponseRequest struct {
	Provider string `json:"provider"`
	// Data is the provider reply. A JSON string is taken as the raw reply
	// text; any other JSON value is the reply itself.
	Data    json.RawMessage `json:"data"`
	Options responseOptions `json:"options"`
}

// FormatResponse handles POST /v1/format/response
func (h *Handler) FormatResponse(c echo.Context) error {
	var req formatResponseRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if len(req.Data) == 0 {
		return handleError(c, core.NewInvalidRequestError("data is required", nil))
	}

	data := []byte(req.Data)
	var s string
	if json.Unmarshal(req.Data, &s) == nil {
		data = []byte(s)
	}

	opts := responses.Options{
		Model:        req.Options.Model,
		CompletionID: req.Options.CompletionID,
		Type:         req.Options.Type,
		Stream:       req.Options.Stream,
	}
	if req.Options.Persist {
		opts.Env = h.deps.Env
	}

	resp, err := h.deps.Formatter.Format(c.Request().Context(), data, req.Provider, opts)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DecodeStream handles POST /v1/stream/decode. The request body is either a
// binary event stream or SSE; the reply is SSE ending in [DONE].
func (h *Handler) DecodeStream(c echo.Context) error {
	body := streaming.NewDecoder(h.deps.MaxResyncBytes).Wrap(c.Request().Body)
	return pipeSSE(c, body)
}

type invokeRequest struct {
	Model              string            `json:"model"`
	Messages           []core.Message    `json:"messages"`
	SystemPrompt       string            `json:"system_prompt"`
	Stream             bool              `json:"stream"`
	Params             map[string]any    `json:"params"`
	MaxTokens          int               `json:"max_tokens"`
	TruncationStrategy string            `json:"truncation_strategy"`
	CompletionID       string            `json:"completion_id"`
	Persist            bool              `json:"persist"`
	ContentHints       core.ContentHints `json:"content_hints"`
	PollIntervalMs     int               `json:"poll_interval_ms"`
	Attributes         map[string]string `json:"attributes"`
}

// Invoke handles POST /v1/invoke/:category/:provider
func (h *Handler) Invoke(c echo.Context) error {
	category, ok := providers.ParseCategory(c.Param("category"))
	if !ok {
		return handleError(c, core.NewInvalidRequestError("unknown category: "+c.Param("category"), nil))
	}
	name := c.Param("provider")

	var req invokeRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	adapter, err := h.deps.Registry.Resolve(category, name)
	if err != nil {
		return handleError(c, err)
	}

	formatted := messages.Format(req.Messages, messages.Options{
		MaxTokens:          req.MaxTokens,
		TruncationStrategy: req.TruncationStrategy,
		Provider:           name,
		Model:              req.Model,
		SystemPrompt:       req.SystemPrompt,
	})
	upstream, err := adapter.Build(providers.Invocation{
		Category:     category,
		Model:        req.Model,
		Messages:     formatted,
		SystemPrompt: req.SystemPrompt,
		Stream:       req.Stream,
		Params:       req.Params,
	})
	if err != nil {
		var gatewayErr *core.GatewayError
		if !errors.As(err, &gatewayErr) {
			err = core.NewInvalidRequestError(err.Error(), err)
		}
		return handleError(c, err)
	}

	ctx := c.Request().Context()
	start := time.Now()
	if body, _ := upstream.Body.(map[string]any); req.Stream || streaming.DetectStreaming(body, upstream.Path) {
		stream, err := adapter.Stream(ctx, upstream.Path, upstream.Body)
		observability.ObserveUpstream(name, string(category), "stream", start)
		if err != nil {
			return handleError(c, err)
		}
		return pipeSSE(c, streaming.NewDecoder(h.deps.MaxResyncBytes).Wrap(stream))
	}

	reply, err := adapter.Invoke(ctx, upstream.Path, upstream.Body)
	observability.ObserveUpstream(name, string(category), "sync", start)
	if err != nil {
		return handleError(c, err)
	}

	if adapter.Async() && !async.ReplyTerminal(reply) {
		meta, placeholder, err := h.deps.Tracker.Create(async.CreateInput{
			Provider: name,
			Type:     category.Modality(),
			Reply:    reply,
			Context: core.InvocationContext{
				Model:        req.Model,
				CompletionID: req.CompletionID,
				Category:     string(category),
				Attributes:   req.Attributes,
			},
			ContentHints:   req.ContentHints,
			PollIntervalMs: req.PollIntervalMs,
		})
		if err != nil {
			return handleError(c, err)
		}
		if err := h.deps.Store.Create(ctx, meta); err != nil {
			return handleError(c, err)
		}
		return c.JSON(http.StatusAccepted, placeholder)
	}

	opts := responses.Options{
		Model:        req.Model,
		CompletionID: req.CompletionID,
		Type:         category.Modality(),
	}
	if req.Persist {
		opts.Env = h.deps.Env
	}
	resp, err := h.deps.Formatter.Format(ctx, reply, name, opts)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

type invocationResponse struct {
	Status     core.AsyncStatus              `json:"status"`
	Invocation *core.AsyncInvocationMetadata `json:"invocation"`
	Response   *core.Response                `json:"response"`
}

// GetInvocation handles GET /v1/invocations/:id. It polls the provider once,
// or until the job ends when wait=true, and stores the new state. Finished
// jobs are answered from the stored record.
func (h *Handler) GetInvocation(c echo.Context) error {
	ctx := c.Request().Context()

	meta, err := h.deps.Store.Get(ctx, c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	adapter, ok := h.deps.Registry.Lookup(meta.Provider)
	if !ok {
		return handleError(c, core.NewNotFoundError("provider "+meta.Provider+" is not configured"))
	}

	if async.Settled(meta) {
		res, err := h.deps.Tracker.Poll(ctx, adapter, meta)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(http.StatusOK, invocationResponse{Status: res.Status, Invocation: meta, Response: res.Result})
	}

	var res *async.PollResult
	start := time.Now()
	if c.QueryParam("wait") == "true" {
		res, err = h.wait(ctx, adapter, meta)
	} else {
		res, err = h.deps.Tracker.Poll(ctx, adapter, meta)
	}
	observability.ObserveUpstream(meta.Provider, meta.Context.Category, "poll", start)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.deps.Store.Update(ctx, meta); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, invocationResponse{
		Status:     res.Status,
		Invocation: meta,
		Response:   res.Result,
	})
}

func (h *Handler) wait(ctx context.Context, source async.StatusSource, meta *core.AsyncInvocationMetadata) (*async.PollResult, error) {
	interval := time.Duration(meta.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = async.DefaultPollIntervalMs * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	res, err := h.deps.Tracker.Wait(waitCtx, source, meta, ticker.C)
	if errors.Is(err, context.DeadlineExceeded) && res != nil && ctx.Err() == nil {
		return res, nil
	}
	return res, err
}

// ListInvocations handles GET /v1/invocations
func (h *Handler) ListInvocations(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return handleError(c, core.NewInvalidRequestError("limit must be an integer", err))
		}
		limit = n
	}

	items, err := h.deps.Store.List(c.Request().Context(), limit, c.QueryParam("after"))
	if err != nil {
		return handleError(c, err)
	}
	if items == nil {
		items = []*core.AsyncInvocationMetadata{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   items,
	})
}

// pipeSSE streams body to the client as server-sent events.
func pipeSSE(c echo.Context, body io.ReadCloser) error {
	defer func() {
		_ = body.Close() //nolint:errcheck
	}()

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return nil
			}
			w.Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Can't return error after headers are sent, log it
			slog.Warn("stream aborted", "error", err, "request_id", core.GetRequestID(c.Request().Context()))
			return nil
		}
	}
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	if errors.Is(err, async.ErrNotFound) {
		err = core.NewNotFoundError(err.Error())
	}

	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	slog.Error("unexpected error", "error", err, "request_id", core.GetRequestID(c.Request().Context()))
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
