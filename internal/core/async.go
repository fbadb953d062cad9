package core

import "encoding/json"

// AsyncStatus is the lifecycle state of a tracked asynchronous invocation.
type AsyncStatus string

const (
	AsyncInProgress AsyncStatus = "in_progress"
	AsyncCompleted  AsyncStatus = "completed"
	AsyncFailed     AsyncStatus = "failed"
)

// ContentHints holds the content blocks shown while an invocation is pending
// and when it fails.
type ContentHints struct {
	Placeholder []Block `json:"placeholder"`
	Failure     []Block `json:"failure"`
}

// InvocationContext keeps what is needed to format the eventual result.
type InvocationContext struct {
	Model        string            `json:"model,omitempty"`
	CompletionID string            `json:"completionId,omitempty"`
	Category     string            `json:"category,omitempty"`
	StatusURL    string            `json:"statusUrl,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// AsyncInvocationMetadata describes a provider job that was submitted but has
// not finished. It is produced once and consumed by every poll until the job
// reaches a terminal state, after which it also carries the outcome. Callers
// own its persistence.
type AsyncInvocationMetadata struct {
	Provider        string            `json:"provider"`
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	PollIntervalMs  int               `json:"pollIntervalMs"`
	InitialResponse json.RawMessage   `json:"initialResponse,omitempty"`
	Context         InvocationContext `json:"context"`
	ContentHints    ContentHints      `json:"contentHints"`
	Status          AsyncStatus       `json:"status,omitempty"`
	CreatedAt       int64             `json:"createdAt,omitempty"`
	UpdatedAt       int64             `json:"updatedAt,omitempty"`
	// Result is the formatted reply of a completed job. Later reads return
	// it without polling or persisting media again.
	Result *Response `json:"result,omitempty"`
	// Failure is the upstream error text of a failed job.
	Failure string `json:"failure,omitempty"`
}
