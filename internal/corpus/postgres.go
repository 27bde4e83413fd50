package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/postgres"
)

// Schema creates the table that corpus ingestion writes and PostgresSource
// reads.
const Schema = `CREATE TABLE IF NOT EXISTS training_examples (
	id              BIGSERIAL PRIMARY KEY,
	symptoms        TEXT NOT NULL,
	disease         TEXT NOT NULL,
	idempotency_key TEXT UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresSource reads training_examples in insertion order.
type PostgresSource struct {
	pg *postgres.Client
}

func NewPostgresSource(pg *postgres.Client) *PostgresSource {
	return &PostgresSource{pg: pg}
}

func (s *PostgresSource) Name() string {
	return "postgres:training_examples"
}

func (s *PostgresSource) Load(ctx context.Context) (*Corpus, error) {
	rows, err := s.pg.DB.QueryContext(ctx,
		`SELECT symptoms, disease FROM training_examples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying training examples: %w", err)
	}
	defer rows.Close()

	c := &Corpus{Source: s.Name()}
	for rows.Next() {
		var ex Example
		if err := rows.Scan(&ex.Symptoms, &ex.Disease); err != nil {
			return nil, fmt.Errorf("scanning training example: %w", err)
		}
		if ex.Disease == "" {
			c.Skipped++
			continue
		}
		c.Examples = append(c.Examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating training examples: %w", err)
	}
	return c, nil
}
