package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metronai/costmeter/pkg/tokenizer"
	"github.com/metronai/costmeter/pkg/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record an LLM API call manually",
	Long: `Record a single LLM API call with explicit token counts, or derive the
counts from raw prompt/completion text when the provider did not report usage.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().StringP("user", "u", "", "User the call is attributed to")
	trackCmd.Flags().StringP("feature", "f", "", "Feature the call is attributed to")
	trackCmd.Flags().StringP("provider", "p", "openai", "LLM provider (e.g. openai, anthropic)")
	trackCmd.Flags().StringP("model", "m", "", "Model name (e.g. gpt-4o, claude-sonnet-4)")
	trackCmd.Flags().Int64("input-tokens", -1, "Number of input tokens")
	trackCmd.Flags().Int64("output-tokens", -1, "Number of output tokens")
	trackCmd.Flags().String("prompt", "", "Raw prompt text, counted when --input-tokens is not given")
	trackCmd.Flags().String("completion", "", "Raw completion text, counted when --output-tokens is not given")
	trackCmd.Flags().Int64("latency-ms", -1, "Call latency in milliseconds")
	trackCmd.Flags().String("org", "", "Organization id (default from config)")
	trackCmd.Flags().StringSlice("meta", nil, "Metadata entries as key=value")
	_ = trackCmd.MarkFlagRequired("user")
	_ = trackCmd.MarkFlagRequired("feature")
	_ = trackCmd.MarkFlagRequired("model")
}

func runTrack(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	user, _ := cmd.Flags().GetString("user")
	feature, _ := cmd.Flags().GetString("feature")
	provider, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")
	tokensIn, _ := cmd.Flags().GetInt64("input-tokens")
	tokensOut, _ := cmd.Flags().GetInt64("output-tokens")
	prompt, _ := cmd.Flags().GetString("prompt")
	completion, _ := cmd.Flags().GetString("completion")
	latencyMS, _ := cmd.Flags().GetInt64("latency-ms")
	org, _ := cmd.Flags().GetString("org")
	metaFlags, _ := cmd.Flags().GetStringSlice("meta")

	if tokensIn < 0 {
		if prompt == "" {
			return fmt.Errorf("either --input-tokens or --prompt is required")
		}
		tokensIn, err = tokenizer.Count(prompt, provider, modelName)
		if err != nil {
			return fmt.Errorf("count prompt tokens: %w", err)
		}
	}
	if tokensOut < 0 {
		if completion == "" {
			return fmt.Errorf("either --output-tokens or --completion is required")
		}
		tokensOut, err = tokenizer.Count(completion, provider, modelName)
		if err != nil {
			return fmt.Errorf("count completion tokens: %w", err)
		}
	}

	metadata, err := parseMetadata(metaFlags)
	if err != nil {
		return err
	}

	t, store, err := newTracker(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	manual := tracker.Manual{
		UserID:    user,
		Feature:   feature,
		Provider:  provider,
		Model:     modelName,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Metadata:  metadata,
		OrgID:     org,
	}
	if latencyMS >= 0 {
		manual.LatencyMS = &latencyMS
	}

	record, err := t.TrackManual(cmd.Context(), manual)
	if err != nil {
		return fmt.Errorf("track usage: %w", err)
	}

	fmt.Printf("Recorded cost:\n")
	fmt.Printf("  ID:         %d\n", record.ID)
	fmt.Printf("  User:       %s\n", record.UserID)
	fmt.Printf("  Feature:    %s\n", record.Feature)
	fmt.Printf("  Provider:   %s\n", record.Provider)
	fmt.Printf("  Model:      %s\n", record.Model)
	fmt.Printf("  Tokens:     %d in / %d out\n", record.TokensIn, record.TokensOut)
	fmt.Printf("  Cost:       $%s\n", record.CostUSD.StringFixed(6))
	return nil
}

func parseMetadata(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta entry %q, expected key=value", entry)
		}
		metadata[key] = value
	}
	return metadata, nil
}
