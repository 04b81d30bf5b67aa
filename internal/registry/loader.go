package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"inferd/pkg/types"
)

var quantRe = regexp.MustCompile(`(?i)\b(q\d(?:_[a-z0-9]+)*|f16|f32)\b`)

// LoadDir scans a directory for *.gguf files and builds a registry from
// filenames. The ID is the filename without extension, lowercased; the
// quantization variant is parsed from the filename when recognizable.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		stem := name[:len(name)-len(".gguf")]
		id := strings.ToLower(strings.ReplaceAll(stem, ".", "-"))
		m := types.Model{
			ID:   id,
			Name: stem,
			Path: filepath.Join(abs, name),
		}
		if q := quantRe.FindString(stem); q != "" {
			m.Quant = strings.ToUpper(q)
		}
		models = append(models, m)
	}
	return models, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
