package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact/store"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/rpcapi"
)

var predictCmd = &cobra.Command{
	Use:   "predict <symptoms...>",
	Short: "Predict the disease for a symptom description",
	Long: "Predict sends the symptom text to a running predictor, or scores it\n" +
		"locally when --model points at an artifact file.",
	Args: cobra.ArbitraryArgs,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().Bool("confidence", false, "print the ranked predictions with probabilities")
	predictCmd.Flags().String("model", "", "score locally against this artifact file instead of calling the predictor")
}

func runPredict(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	confidence, _ := cmd.Flags().GetBool("confidence")
	modelPath, _ := cmd.Flags().GetString("model")

	ctx, cancel := callContext(cmd)
	defer cancel()

	if modelPath != "" {
		return predictLocal(ctx, cmd, modelPath, text, confidence)
	}

	addr, _ := cmd.Flags().GetString("addr")
	client, err := rpcapi.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connecting to predictor at %s: %w", addr, err)
	}
	defer client.Close()

	if !confidence {
		resp, err := client.PredictDisease(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Disease)
		return nil
	}
	resp, err := client.PredictWithConfidence(ctx, text)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func predictLocal(ctx context.Context, cmd *cobra.Command, path, text string, confidence bool) error {
	a, err := store.NewFileStore().Load(ctx, path)
	if err != nil {
		return err
	}
	m, err := inference.NewModel(a)
	if err != nil {
		return err
	}
	if !confidence {
		disease, err := m.PredictDisease(text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), disease)
		return nil
	}
	res, err := m.PredictWithConfidence(text, inference.DefaultTopK)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func callContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(cmd.Context(), timeout)
}
