package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference/rpcapi"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the model served by a running predictor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := callContext(cmd)
		defer cancel()

		addr, _ := cmd.Flags().GetString("addr")
		client, err := rpcapi.Dial(ctx, addr)
		if err != nil {
			return fmt.Errorf("connecting to predictor at %s: %w", addr, err)
		}
		defer client.Close()

		health, err := client.Health(ctx)
		if err != nil {
			return err
		}
		info, err := client.ModelInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", health.Status)
		return printJSON(cmd.OutOrStdout(), info)
	},
}
