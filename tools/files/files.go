// Package files provides the read_file tool, confined to one directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
)

const (
	ToolName       = "read_file"
	DefaultMaxSize = 1 << 20
)

var (
	ErrNoPath   = errors.New("file_path is required")
	ErrTooLarge = errors.New("file exceeds size limit")
)

// Reader reads files below a base directory.
type Reader struct {
	dir     string
	maxSize int64
}

func NewReader(cfg config.FilesConfig) *Reader {
	dir := cfg.BaseDir
	if dir == "" {
		dir = "."
	}
	size := cfg.MaxSize
	if size <= 0 {
		size = DefaultMaxSize
	}
	return &Reader{dir: dir, maxSize: size}
}

// Read returns the content of name, which must stay inside the base directory.
func (r *Reader) Read(name string) (string, error) {
	if name == "" {
		return "", ErrNoPath
	}
	if filepath.IsAbs(name) {
		abs, err := filepath.Abs(r.dir)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(abs, name)
		if err != nil {
			return "", fmt.Errorf("%s is outside %s", name, r.dir)
		}
		name = rel
	}

	root, err := os.OpenRoot(r.dir)
	if err != nil {
		return "", fmt.Errorf("open base dir: %w", err)
	}
	defer root.Close()

	f, err := root.Open(filepath.Clean(name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, r.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > r.maxSize {
		return "", fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, name, r.maxSize)
	}
	return string(b), nil
}

// Spec describes the read_file tool.
func Spec() models.ToolSpec {
	return models.ToolSpec{
		Name:        ToolName,
		Description: "Reads a file from the filesystem",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string"},
				"path":      map[string]any{"type": "string"},
			},
		},
		OutputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"content": map[string]any{"type": "string"}},
		},
		TimeoutSeconds: 10,
	}
}

// NewTool exposes r as the read_file tool. "path" is accepted as an alias of "file_path".
func NewTool(r *Reader) *capability.Tool {
	return capability.MustNew(Spec(), func(_ context.Context, args map[string]any) (models.Result, error) {
		name := capability.String(args, "file_path", capability.String(args, "path", ""))
		content, err := r.Read(name)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		return models.FileRead{Path: name, Content: content}, nil
	})
}
