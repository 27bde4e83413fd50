// Package ingest accepts labeled symptom examples over HTTP, stores them in
// training_examples and announces them on the corpus topic so a retraining
// job can pick them up.
package ingest

import "time"

// Request is the JSON body accepted by POST /api/v1/examples.
type Request struct {
	Symptoms       string `json:"symptoms"`
	Disease        string `json:"disease"`
	IdempotencyKey string `json:"idempotency_key"`
}

type Response struct {
	ExampleID int64  `json:"example_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// CorpusEvent is published after an example is committed.
type CorpusEvent struct {
	ExampleID  int64     `json:"example_id"`
	Disease    string    `json:"disease"`
	Symptoms   string    `json:"symptoms"`
	IngestedAt time.Time `json:"ingested_at"`
}

const (
	StatusStored = "STORED"
)
