package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// CSVSource reads a UTF-8 CSV file whose header names the text and label
// columns.
type CSVSource struct {
	Path        string
	TextColumn  string
	LabelColumn string
}

func NewCSVSource(path, textColumn, labelColumn string) *CSVSource {
	if textColumn == "" {
		textColumn = "symptoms"
	}
	if labelColumn == "" {
		labelColumn = "disease"
	}
	return &CSVSource{Path: path, TextColumn: textColumn, LabelColumn: labelColumn}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

func (s *CSVSource) Load(ctx context.Context) (*Corpus, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: corpus file %s does not exist", apperrors.ErrConfiguration, s.Path)
		}
		return nil, fmt.Errorf("opening corpus %s: %w", s.Path, err)
	}
	defer f.Close()
	c, err := s.read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", s.Path, err)
	}
	return c, nil
}

// read parses CSV from r. Rows with a blank label are skipped and counted; a
// blank symptom text is kept.
func (s *CSVSource) read(ctx context.Context, r io.Reader) (*Corpus, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: corpus has no header row", apperrors.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}
	textIdx, labelIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, s.TextColumn):
			textIdx = i
		case strings.EqualFold(name, s.LabelColumn):
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("%w: header %v lacks %q or %q column",
			apperrors.ErrConfiguration, header, s.TextColumn, s.LabelColumn)
	}

	c := &Corpus{Source: s.Name()}
	line := 1
	for {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if textIdx >= len(record) || labelIdx >= len(record) {
			c.Skipped++
			continue
		}
		label := strings.TrimSpace(record[labelIdx])
		if label == "" {
			c.Skipped++
			continue
		}
		c.Examples = append(c.Examples, Example{
			Symptoms: record[textIdx],
			Disease:  label,
		})
	}
	if c.Skipped > 0 {
		slog.Default().With("component", "corpus").Warn("skipped corpus rows",
			"source", s.Name(),
			"skipped", c.Skipped,
		)
	}
	return c, nil
}
