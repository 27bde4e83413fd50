package ingest

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxSymptomsLength = 10000
	maxDiseaseLength  = 256
	maxKeyLength      = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// Validate normalises req in place and checks field constraints. Symptom
// text may be blank; the disease label may not.
func Validate(req *Request) error {
	errs := make(map[string]string)

	req.Disease = strings.TrimSpace(req.Disease)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	if req.Disease == "" {
		errs["disease"] = "disease is required"
	} else if utf8.RuneCountInString(req.Disease) > maxDiseaseLength {
		errs["disease"] = fmt.Sprintf("disease must be at most %d characters", maxDiseaseLength)
	}
	if utf8.RuneCountInString(req.Symptoms) > maxSymptomsLength {
		errs["symptoms"] = fmt.Sprintf("symptoms must be at most %d characters", maxSymptomsLength)
	}
	if !utf8.ValidString(req.Symptoms) {
		errs["symptoms"] = "symptoms must be valid UTF-8"
	}
	if len(req.IdempotencyKey) > maxKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
