package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact-file>",
	Short: "Verify an artifact file and print its metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	h, err := artifact.ReadHeader(data)
	if err != nil {
		return err
	}
	a, err := artifact.Decode(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "format version:  %d\n", h.Version)
	fmt.Fprintf(out, "payload:         %d bytes (crc32 %08x)\n", h.PayloadLen, h.Checksum)
	fmt.Fprintf(out, "model id:        %s\n", a.ModelID)
	fmt.Fprintf(out, "created:         %s\n", h.Created().Format(time.RFC3339))
	fmt.Fprintf(out, "classes:         %d (%s)\n", len(a.Classes()), strings.Join(a.Classes(), ", "))
	fmt.Fprintf(out, "vocabulary size: %d\n", a.VocabularySize())
	t := a.Training
	if t.CorpusSize > 0 {
		fmt.Fprintf(out, "corpus:          %d rows from %s (%d skipped)\n", t.CorpusSize, t.Source, t.SkippedRows)
		fmt.Fprintf(out, "split:           %d train / %d test, seed %d\n", t.TrainSize, t.TestSize, t.Seed)
		fmt.Fprintf(out, "accuracy:        train %.4f, test %.4f\n", t.TrainAccuracy, t.TestAccuracy)
	}
	return nil
}
