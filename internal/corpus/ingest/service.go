package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

// Repository persists examples. FindByKey returns nil when the key is
// unknown.
type Repository interface {
	FindByKey(ctx context.Context, key string) (*Response, error)
	Insert(ctx context.Context, req *Request) (int64, error)
}

// Service stores examples and publishes a CorpusEvent for each new one.
type Service struct {
	repo      Repository
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wires a repository and an optional publisher; a nil publisher
// disables events.
func NewService(repo Repository, publisher kafka.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    slog.Default().With("component", "corpus-ingest"),
	}
}

// WithMetrics counts stored examples on m.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Ingest stores req. A repeated idempotency key returns the original result
// without inserting again.
func (s *Service) Ingest(ctx context.Context, req *Request) (*Response, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.repo.FindByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			s.logger.Info("duplicate example detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.ExampleID,
			)
			existing.Duplicate = true
			return existing, nil
		}
	}

	id, err := s.repo.Insert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("inserting example: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ExamplesIngestedTotal.Inc()
	}

	if s.publisher != nil {
		event := kafka.Event{
			Key: req.Disease,
			Value: CorpusEvent{
				ExampleID:  id,
				Disease:    req.Disease,
				Symptoms:   req.Symptoms,
				IngestedAt: time.Now().UTC(),
			},
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish corpus event, example stored without notification",
				"example_id", id,
				"error", err,
			)
		}
	}
	return &Response{ExampleID: id, Status: StatusStored}, nil
}

// PostgresRepository implements Repository on training_examples.
type PostgresRepository struct {
	db *postgres.Client
}

func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	return r.db.EnsureSchema(ctx, corpus.Schema)
}

func (r *PostgresRepository) FindByKey(ctx context.Context, key string) (*Response, error) {
	var resp Response
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT id FROM training_examples WHERE idempotency_key = $1`, key,
	).Scan(&resp.ExampleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	resp.Status = StatusStored
	return &resp, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, req *Request) (int64, error) {
	var id int64
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO training_examples (symptoms, disease, idempotency_key)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (idempotency_key) DO NOTHING
			 RETURNING id`,
			req.Symptoms, req.Disease, nullableString(req.IdempotencyKey),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict, "idempotency key already in use")
		}
		return err
	})
	return id, err
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
