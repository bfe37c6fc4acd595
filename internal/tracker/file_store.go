package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gmdb/internal/domain"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// FileStore keeps the whole history as a single JSON blob on disk, in the
// {lastChecked, knownAccounts} shape.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load treats a missing or unreadable blob as empty history.
func (s *FileStore) Load(ctx context.Context) (domain.History, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmptyHistory(), err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EmptyHistory(), nil
	}
	if err != nil {
		return domain.EmptyHistory(), fmt.Errorf("failed to read history file: %w", err)
	}

	var h domain.History
	if err := json.Unmarshal(data, &h); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("malformed history file, starting fresh")
		return domain.EmptyHistory(), nil
	}
	if h.KnownAccounts == nil {
		h.KnownAccounts = map[string]int64{}
	}
	return h, nil
}

func (s *FileStore) Commit(ctx context.Context, history domain.History) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	// write-then-rename
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	s.logger.Debug().Str("path", s.path).Int("known", len(history.KnownAccounts)).Msg("history committed")
	return nil
}

func (s *FileStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}
