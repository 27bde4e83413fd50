package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// FileStore keeps each artifact in a single file at its location path.
type FileStore struct {
	logger *slog.Logger
}

func NewFileStore() *FileStore {
	return &FileStore{
		logger: slog.Default().With("component", "artifact-file-store"),
	}
}

// Save writes to a temp file in the destination directory, syncs it and
// renames it over location.
func (s *FileStore) Save(ctx context.Context, location string, a *artifact.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := artifact.Encode(a)
	if err != nil {
		return fmt.Errorf("encoding artifact for %s: %w", location, err)
	}
	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(location)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, location); err != nil {
		return fmt.Errorf("renaming artifact file: %w", err)
	}
	committed = true

	s.logger.Info("artifact saved",
		"location", location,
		"model_id", a.ModelID,
		"bytes", len(data),
	)
	return nil
}

func (s *FileStore) Load(ctx context.Context, location string) (*artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, location)
		}
		return nil, fmt.Errorf("reading artifact %s: %w", location, err)
	}
	a, err := artifact.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", location, err)
	}
	return a, nil
}
