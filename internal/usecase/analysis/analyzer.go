package analysis

import "context"

// Usage is the token cost reported by the AI service for one call.
type Usage struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

// Response is the raw reply of one analysis call.
type Response struct {
	Body  string
	Usage Usage
}

// Analyzer sends article text to an AI service and returns its raw reply.
// The reply is expected to contain a JSON object; it is parsed by Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Response, error)
}
