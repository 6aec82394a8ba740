package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSessionNotFound   = errors.New("session not found")
	ErrMessageEmpty      = errors.New("message content is empty")
	ErrNoContent         = errors.New("no text could be extracted from the file")
	ErrEmbeddingFailure  = errors.New("embedding provider failed")
	ErrGenerationFailure = errors.New("generation failed")
)
