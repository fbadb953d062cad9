package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatewire/internal/core"
	"gatewire/internal/responses"
)

type stubSource struct {
	replies [][]byte
	calls   int
	err     error
}

func (s *stubSource) FetchStatus(_ context.Context, id string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return r, nil
}

func newTracker() *Tracker {
	tr := NewTracker(responses.New(nil), nil, 0)
	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tr
}

func TestMapStatus(t *testing.T) {
	tests := map[string]core.AsyncStatus{
		"succeeded":  core.AsyncCompleted,
		"SUCCEEDED":  core.AsyncInProgress,
		" succeeded": core.AsyncInProgress,
		"Failed":     core.AsyncInProgress,
		"failed":     core.AsyncFailed,
		"canceled":   core.AsyncFailed,
		"cancelled":  core.AsyncFailed,
		"starting":   core.AsyncInProgress,
		"processing": core.AsyncInProgress,
		"completed":  core.AsyncInProgress,
		"":           core.AsyncInProgress,
	}
	for upstream, want := range tests {
		t.Run(upstream, func(t *testing.T) {
			assert.Equal(t, want, MapStatus(upstream))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(core.AsyncCompleted))
	assert.True(t, IsTerminal(core.AsyncFailed))
	assert.False(t, IsTerminal(core.AsyncInProgress))
}

func TestCreate(t *testing.T) {
	tr := newTracker()
	meta, placeholder, err := tr.Create(CreateInput{
		Provider: "replicate",
		Type:     "image",
		Reply:    []byte(`{"id":"p1","status":"starting","urls":{"get":"https://api.replicate.com/v1/predictions/p1"}}`),
		Context:  core.InvocationContext{Model: "flux", CompletionID: "c1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "p1", meta.ID)
	assert.Equal(t, DefaultPollIntervalMs, meta.PollIntervalMs)
	assert.Equal(t, core.AsyncInProgress, meta.Status)
	assert.Equal(t, "https://api.replicate.com/v1/predictions/p1", meta.Context.StatusURL)
	assert.Equal(t, int64(1700000000), meta.CreatedAt)
	assert.NotEmpty(t, meta.ContentHints.Failure)

	parts := placeholder.Response.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, core.BlockText, core.BlockType(parts[0]))
	require.NotNil(t, placeholder.Data)
	assert.Same(t, meta, placeholder.Data.AsyncInvocation)
}

func TestCreate_UsesPlaceholderHint(t *testing.T) {
	_, placeholder, err := newTracker().Create(CreateInput{
		Provider:     "replicate",
		Reply:        []byte(`{"id":"p1","status":"processing"}`),
		ContentHints: core.ContentHints{Placeholder: []core.Block{core.TextBlock("Rendering your video")}},
	})
	require.NoError(t, err)
	text, _ := core.BlockTextOf(placeholder.Response.Parts()[0])
	assert.Equal(t, "Rendering your video", text)
}

func TestCreate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"succeeded", `{"id":"p1","status":"succeeded","output":"x"}`},
		{"failed", `{"id":"p1","status":"failed"}`},
		{"missing id", `{"status":"starting"}`},
		{"invalid json", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, _, err := newTracker().Create(CreateInput{Provider: "replicate", Reply: []byte(tt.reply)})
			assert.Nil(t, meta)
			var gwErr *core.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, core.ErrorTypeProvider, gwErr.Type)
		})
	}
}

func TestReplyTerminal(t *testing.T) {
	assert.True(t, ReplyTerminal([]byte(`{"status":"succeeded"}`)))
	assert.True(t, ReplyTerminal([]byte(`{"status":"canceled"}`)))
	assert.False(t, ReplyTerminal([]byte(`{"status":"starting"}`)))
	assert.False(t, ReplyTerminal([]byte(`{}`)))
}

func createMeta(t *testing.T, tr *Tracker) *core.AsyncInvocationMetadata {
	t.Helper()
	meta, _, err := tr.Create(CreateInput{
		Provider: "replicate",
		Type:     "text",
		Reply:    []byte(`{"id":"p1","status":"starting"}`),
		Context:  core.InvocationContext{Model: "meta/llama"},
	})
	require.NoError(t, err)
	return meta
}

func TestPoll_StatusTransitions(t *testing.T) {
	tests := []struct {
		upstream string
		want     core.AsyncStatus
	}{
		{"starting", core.AsyncInProgress},
		{"processing", core.AsyncInProgress},
		{"something-new", core.AsyncInProgress},
		{"succeeded", core.AsyncCompleted},
		{"failed", core.AsyncFailed},
		{"canceled", core.AsyncFailed},
		{"cancelled", core.AsyncFailed},
	}

	for _, tt := range tests {
		t.Run(tt.upstream, func(t *testing.T) {
			tr := newTracker()
			meta := createMeta(t, tr)
			src := &stubSource{replies: [][]byte{[]byte(`{"id":"p1","status":"` + tt.upstream + `","output":["Hi"],"error":"boom"}`)}}

			res, err := tr.Poll(context.Background(), src, meta)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.want, meta.Status)
			require.NotNil(t, res.Result)
		})
	}
}

func TestPoll_CompletedFormatsResult(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	src := &stubSource{replies: [][]byte{[]byte(`{"id":"p1","status":"succeeded","output":["Hel","lo"]}`)}}

	res, err := tr.Poll(context.Background(), src, meta)
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Result.Response.String())
}

func TestPoll_FailedIncludesUpstreamError(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	src := &stubSource{replies: [][]byte{[]byte(`{"id":"p1","status":"failed","error":"CUDA out of memory"}`)}}

	res, err := tr.Poll(context.Background(), src, meta)
	require.NoError(t, err)

	parts := res.Result.Response.Parts()
	require.Len(t, parts, 2)
	first, _ := core.BlockTextOf(parts[0])
	second, _ := core.BlockTextOf(parts[1])
	assert.Equal(t, defaultFailure, first)
	assert.Equal(t, "CUDA out of memory", second)
}

func TestPoll_SettledJobIsNotPolledAgain(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		want     core.AsyncStatus
		wantText string
	}{
		{"completed", `{"id":"p1","status":"succeeded","output":["Hel","lo"]}`, core.AsyncCompleted, "Hello"},
		{"failed", `{"id":"p1","status":"failed","error":"CUDA out of memory"}`, core.AsyncFailed, "CUDA out of memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker()
			meta := createMeta(t, tr)
			src := &stubSource{replies: [][]byte{[]byte(tt.reply)}}

			first, err := tr.Poll(context.Background(), src, meta)
			require.NoError(t, err)
			assert.True(t, Settled(meta))

			second, err := tr.Poll(context.Background(), src, meta)
			require.NoError(t, err)

			assert.Equal(t, 1, src.calls)
			assert.Equal(t, tt.want, second.Status)
			assert.Equal(t, first.Result.Response, second.Result.Response)
			assert.Contains(t, second.Result.Response.String()+textOfParts(second.Result), tt.wantText)
		})
	}
}

func TestPoll_CompletedWithoutStoredResultPollsAgain(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	meta.Status = core.AsyncCompleted
	src := &stubSource{replies: [][]byte{[]byte(`{"id":"p1","status":"succeeded","output":"done"}`)}}

	assert.False(t, Settled(meta))
	res, err := tr.Poll(context.Background(), src, meta)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "done", res.Result.Response.String())
	assert.Same(t, res.Result, meta.Result)
}

func textOfParts(resp *core.Response) string {
	var out string
	for _, p := range resp.Response.Parts() {
		if s, ok := core.BlockTextOf(p); ok {
			out += s
		}
	}
	return out
}

func TestPoll_SourceErrorNoRetry(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	src := &stubSource{err: errors.New("unreachable")}

	_, err := tr.Poll(context.Background(), src, meta)
	require.Error(t, err)
	assert.Equal(t, core.AsyncInProgress, meta.Status)
}

func TestWait(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	src := &stubSource{replies: [][]byte{
		[]byte(`{"id":"p1","status":"starting"}`),
		[]byte(`{"id":"p1","status":"processing"}`),
		[]byte(`{"id":"p1","status":"succeeded","output":"done"}`),
	}}

	tick := make(chan time.Time, 2)
	tick <- time.Now()
	tick <- time.Now()

	res, err := tr.Wait(context.Background(), src, meta, tick)
	require.NoError(t, err)
	assert.Equal(t, core.AsyncCompleted, res.Status)
	assert.Equal(t, 3, src.calls)
}

func TestWait_ContextCancelled(t *testing.T) {
	tr := newTracker()
	meta := createMeta(t, tr)
	src := &stubSource{replies: [][]byte{[]byte(`{"id":"p1","status":"starting"}`)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := tr.Wait(ctx, src, meta, make(chan time.Time))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, core.AsyncInProgress, res.Status)
}
