// Package store persists model artifacts. FileStore writes one file per
// location with an atomic rename; PostgresStore keeps named artifacts in a
// table.
package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

// Store saves and loads whole artifacts. Save either replaces the artifact at
// location completely or leaves the previous one untouched.
type Store interface {
	Save(ctx context.Context, location string, a *artifact.Artifact) error
	Load(ctx context.Context, location string) (*artifact.Artifact, error)
}

const (
	KindFile     = "file"
	KindPostgres = "postgres"
)

// New returns the store named by kind. pg may be nil for the file store.
func New(kind string, pg *postgres.Client) (Store, error) {
	switch kind {
	case KindFile, "":
		return NewFileStore(), nil
	case KindPostgres:
		if pg == nil {
			return nil, fmt.Errorf("%w: postgres artifact store needs a database connection", apperrors.ErrConfiguration)
		}
		return NewPostgresStore(pg), nil
	default:
		return nil, fmt.Errorf("%w: unknown artifact store %q", apperrors.ErrConfiguration, kind)
	}
}
