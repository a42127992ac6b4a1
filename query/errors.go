package query

import "errors"

// Failure kinds for the query pipeline. The API layer maps these to HTTP
// status codes with errors.Is; everything except ErrInvalidRequest is a
// dependency failure surfaced as-is, never a partial answer.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrGenerationFailed = errors.New("generation failed")
)
