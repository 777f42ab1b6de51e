package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metronai/costmeter/pkg/tokenizer"
	"github.com/metronai/costmeter/pkg/tracker"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate [text...]",
	Short: "Estimate token count and cost for a prompt before sending it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)
	estimateCmd.Flags().StringP("provider", "p", "openai", "LLM provider")
	estimateCmd.Flags().StringP("model", "m", "gpt-4o", "Model name")
	estimateCmd.Flags().Int64("expected-output", 0, "Expected output tokens to include in the cost estimate")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")
	expectedOut, _ := cmd.Flags().GetInt64("expected-output")

	text := strings.Join(args, " ")
	tokensIn, err := tokenizer.Count(text, provider, modelName)
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	cost, err := tracker.NewCalculator(table).Compute(provider, modelName, tokensIn, expectedOut)
	if err != nil {
		return fmt.Errorf("estimate cost: %w", err)
	}

	fmt.Printf("Input tokens:   %d\n", tokensIn)
	if expectedOut > 0 {
		fmt.Printf("Output tokens:  %d (assumed)\n", expectedOut)
	}
	fmt.Printf("Estimated cost: $%s\n", cost.StringFixed(6))
	return nil
}
