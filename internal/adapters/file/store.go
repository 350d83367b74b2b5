package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/intheflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of checkpoint files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Store implements ports.CanvasStore using the local filesystem.
// It stores one checkpoint file per session in a configured directory.
type Store struct {
	BasePath string
	Format   Format
}

// New creates a new JSON Store with the given base path.
// If basePath is empty, it defaults to ".intheflow/canvases".
func New(basePath string) *Store {
	return NewWithFormat(basePath, FormatJSON)
}

// NewWithFormat creates a Store that encodes checkpoints in the given format.
func NewWithFormat(basePath string, format Format) *Store {
	if basePath == "" {
		basePath = filepath.Join(".intheflow", "canvases")
	}
	if format != FormatYAML {
		format = FormatJSON
	}
	return &Store{BasePath: basePath, Format: format}
}

func (s *Store) ext() string { return "." + string(s.Format) }

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+s.ext())
}

func (s *Store) marshal(cp *domain.Checkpoint) ([]byte, error) {
	if s.Format == FormatYAML {
		return yaml.Marshal(cp)
	}
	return json.MarshalIndent(cp, "", "  ")
}

func (s *Store) unmarshal(data []byte, cp *domain.Checkpoint) error {
	if s.Format == FormatYAML {
		return yaml.Unmarshal(data, cp)
	}
	return json.Unmarshal(data, cp)
}

// Save persists the checkpoint atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure canvas directory: %w", err)
	}

	data, err := s.marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*"+s.ext()+".part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(sessionID)
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing checkpoint for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint from its file.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var cp domain.Checkpoint
	if err := s.unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") || filepath.Ext(name) != s.ext() {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, s.ext()))
	}
	sort.Strings(sessions)
	return sessions, nil
}
