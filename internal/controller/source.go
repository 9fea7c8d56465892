package controller

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultConfig is written to disk when no configuration file exists yet.
//
//go:embed default_config.yml
var DefaultConfig []byte

// Source supplies the raw configuration document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource reads the configuration from Path, first writing Default there
// if the file does not exist.
type FileSource struct {
	Path    string
	Default []byte
}

// Load implements Source.
func (f FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || f.Default == nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(f.Path, f.Default, 0o644); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return f.Default, nil
}
