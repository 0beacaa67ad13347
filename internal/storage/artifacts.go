package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/render"
)

// Artifacts writes the outputs of a run: the HTML digest and, optionally,
// the JSON page data. Each run replaces the previous files wholesale.
type Artifacts struct {
	htmlPath string
	jsonPath string
	mu       sync.Mutex
}

// NewArtifacts creates a writer. An empty jsonPath disables the JSON output.
func NewArtifacts(htmlPath, jsonPath string) *Artifacts {
	return &Artifacts{htmlPath: htmlPath, jsonPath: jsonPath}
}

// Save renders doc and writes every configured artifact.
func (a *Artifacts) Save(doc render.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var buf bytes.Buffer
	if err := render.HTML(&buf, doc); err != nil {
		return err
	}
	if err := WriteFileAtomic(a.htmlPath, buf.Bytes(), 0644); err != nil {
		return err
	}
	logger.Info("digest saved", "path", a.htmlPath, "size", humanize.Bytes(uint64(buf.Len())), "items", doc.Total)

	if a.jsonPath == "" {
		return nil
	}

	buf.Reset()
	if err := render.JSON(&buf, doc); err != nil {
		return err
	}
	if err := WriteFileAtomic(a.jsonPath, buf.Bytes(), 0644); err != nil {
		return err
	}
	logger.Info("page data saved", "path", a.jsonPath, "size", humanize.Bytes(uint64(buf.Len())))
	return nil
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %v", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %v", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %v", path, err)
	}
	return nil
}
