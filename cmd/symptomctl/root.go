package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "symptomctl",
	Short:         "Query and inspect symptom checker models",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("addr", "localhost:9100", "predictor RPC address")
	rootCmd.PersistentFlags().Duration("timeout", 0, "per-call timeout (0 uses 5s)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
