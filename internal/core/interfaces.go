// Package core defines the core interfaces and types for the gateway.
package core

import "context"

// UploadOptions describes an object being uploaded.
type UploadOptions struct {
	ContentType   string
	ContentLength int64
}

// ObjectStorage is the durable storage collaborator used to persist
// generated media. Implementations must be safe for concurrent use.
type ObjectStorage interface {
	// UploadObject stores body under key and returns the stored key.
	UploadObject(ctx context.Context, key string, body []byte, opts UploadOptions) (string, error)
}

// Env carries the storage collaborator into response formatting.
// A nil *Env means generated media is passed through untouched.
type Env struct {
	Storage       ObjectStorage
	PublicBaseURL string
}
