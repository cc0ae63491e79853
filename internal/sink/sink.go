// Package sink saves finished exports.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/deepmd/internal/pathstore"
)

// Dir writes exports into a local directory.
type Dir struct {
	Path string
}

// Save writes content to Path/filename via a temp file and rename, so a
// failed write never leaves a partial export behind.
func (d Dir) Save(ctx context.Context, filename string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.Path, ".export-*.md")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(d.Path, filepath.Base(filename)))
}

// Pathstore stores exports as nodes under exports/<filename>.
type Pathstore struct {
	Client *pathstore.Client
	Source string
}

// Save implements exporter.Sink.
func (p Pathstore) Save(ctx context.Context, filename string, content []byte) error {
	return p.Client.PutNode(ctx, "exports/"+filename, pathstore.NodeRequest{
		Value: map[string]any{
			"filename": filename,
			"markdown": string(content),
		},
		MemoryType: "document",
		Source:     p.Source,
	})
}

// Saver is the contract shared by every sink.
type Saver interface {
	Save(ctx context.Context, filename string, content []byte) error
}

// Multi saves to every sink in order and stops at the first failure.
type Multi []Saver

// Save implements exporter.Sink.
func (m Multi) Save(ctx context.Context, filename string, content []byte) error {
	for _, s := range m {
		if err := s.Save(ctx, filename, content); err != nil {
			return err
		}
	}
	return nil
}
