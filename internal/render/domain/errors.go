package domain

import "errors"

// ErrKind definition job error kind
type ErrKind string

const (
	//ErrUnauthorized bad or missing credential, rejected before any allocation
	ErrUnauthorized ErrKind = "unauthorized"
	//ErrInvalidRequest malformed or out-of-range request fields
	ErrInvalidRequest ErrKind = "invalid_request"
	//ErrWorkspace scratch directory could not be created
	ErrWorkspace ErrKind = "workspace_error"
	//ErrRender bundling, composition resolution or browser capture failure
	ErrRender ErrKind = "render_error"
	//ErrEncode external encoder nonzero exit or missing output
	ErrEncode ErrKind = "encode_error"
	//ErrUpload storage service failure
	ErrUpload ErrKind = "upload_error"
	//ErrInternal any other unexpected failure
	ErrInternal ErrKind = "internal_error"
)

// JobError uniform error carried from any stage to the response boundary
type JobError struct {
	Kind    ErrKind
	Message string
}

// Error implement the error interface
func (e *JobError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewJobError create a JobError
func NewJobError(kind ErrKind, msg string) *JobError {
	return &JobError{Kind: kind, Message: msg}
}

// AsJobError unwrap err to a JobError, anything else becomes ErrInternal
func AsJobError(err error) *JobError {
	var je *JobError
	if errors.As(err, &je) {
		return je
	}
	return &JobError{Kind: ErrInternal, Message: err.Error()}
}
