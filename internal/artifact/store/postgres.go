package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

const createArtifactsTable = `CREATE TABLE IF NOT EXISTS model_artifacts (
	name       TEXT PRIMARY KEY,
	model_id   UUID NOT NULL,
	payload    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps artifacts in model_artifacts keyed by location name.
type PostgresStore struct {
	pg     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(pg *postgres.Client) *PostgresStore {
	return &PostgresStore{
		pg:     pg,
		logger: slog.Default().With("component", "artifact-pg-store"),
	}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return s.pg.EnsureSchema(ctx, createArtifactsTable)
}

func (s *PostgresStore) Save(ctx context.Context, location string, a *artifact.Artifact) error {
	data, err := artifact.Encode(a)
	if err != nil {
		return fmt.Errorf("encoding artifact for %s: %w", location, err)
	}
	err = s.pg.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO model_artifacts (name, model_id, payload, created_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (name) DO UPDATE
			 SET model_id = EXCLUDED.model_id,
			     payload = EXCLUDED.payload,
			     created_at = EXCLUDED.created_at,
			     saved_at = NOW()`,
			location, a.ModelID, data, a.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving artifact %s: %w", location, err)
	}
	s.logger.Info("artifact saved", "location", location, "model_id", a.ModelID, "bytes", len(data))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, location string) (*artifact.Artifact, error) {
	var data []byte
	err := s.pg.DB.QueryRowContext(ctx,
		`SELECT payload FROM model_artifacts WHERE name = $1`, location,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("querying artifact %s: %w", location, err)
	}
	a, err := artifact.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", location, err)
	}
	return a, nil
}
