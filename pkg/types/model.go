package types

// Model represents a discoverable GGUF model on disk.
type Model struct {
	// Stable identifier derived from the filename.
	// example: tinyllama-q4_k_m
	ID string `json:"id" example:"tinyllama-q4_k_m"`
	// Human-friendly name.
	// example: tinyllama (Q4_K_M)
	Name string `json:"name" example:"tinyllama (Q4_K_M)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/tinyllama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/tinyllama.Q4_K_M.gguf"`
	// Quantization variant parsed from the filename, when recognizable.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
}
