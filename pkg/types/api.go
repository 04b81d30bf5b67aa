package types

// GenerateRequest is the payload for POST /generate. Sampling parameters
// are session-scoped and set at load time; see LoadRequest.
type GenerateRequest struct {
	// Required prompt text to generate a completion for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
}

// LoadRequest is the payload for POST /engine/load. It establishes the model
// and a session; the sampling parameters apply to every generation run on
// that session.
type LoadRequest struct {
	// Model identifier from the registry. If empty, the server default is used.
	// example: tinyllama-q4_k_m
	Model string `json:"model,omitempty" example:"tinyllama-q4_k_m"`
	// Maximum number of new tokens per generation.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	Stop []string `json:"stop,omitempty"`
	// Random seed for reproducibility; 0 or omitted lets the engine choose.
	// example: 42
	Seed int `json:"seed,omitempty" example:"42"`
}

// TokenLine is one NDJSON line of a streamed generation.
type TokenLine struct {
	// Token text fragment.
	Token string `json:"token"`
	// Identifier of the generation this token belongs to.
	GenerationID string `json:"generation_id"`
	// Zero-based token index within the generation.
	Index int `json:"index"`
}

// DoneLine terminates a naturally completed generation stream.
// Cancelled streams end without one.
type DoneLine struct {
	Done         bool   `json:"done"`
	GenerationID string `json:"generation_id"`
	// Total number of tokens forwarded to the consumer.
	TokenCount int `json:"token_count"`
}

// StopResponse is returned by POST /generate/stop.
type StopResponse struct {
	// True when an in-flight generation was told to stop; false for a no-op.
	// example: true
	Stopped bool `json:"stopped" example:"true"`
}

// ResetResponse is returned by POST /context/reset.
type ResetResponse struct {
	// Always true; local handles are cleared even on engine teardown failure.
	Reset bool `json:"reset"`
	// Warning message when the engine failed to release a handle.
	Warning string `json:"warning,omitempty"`
}

// GenerationStatus describes the in-flight generation, if any.
type GenerationStatus struct {
	// Identifier of the active generation.
	ID string `json:"id"`
	// Lifecycle state of the generation.
	// example: streaming
	State string `json:"state" example:"streaming"`
	// Tokens forwarded so far.
	// example: 17
	TokenCount int `json:"token_count" example:"17"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// True when a model and session are established.
	// example: true
	EngineReady bool `json:"engine_ready" example:"true"`
	// ID of the loaded model, when a model is loaded.
	// example: tinyllama-q4_k_m
	Model string `json:"model,omitempty" example:"tinyllama-q4_k_m"`
	// Active generation, when one is streaming.
	Active *GenerationStatus `json:"active,omitempty"`
	// Generations told to stop whose loops have not yet observed cancellation.
	// example: 0
	PendingCancels int `json:"pending_cancels" example:"0"`
	// Total generations started since boot.
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// Total context resets since boot.
	// example: 3
	ResetsTotal uint64 `json:"resets_total" example:"3"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
