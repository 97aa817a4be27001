package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/relstatus/internal/llm"
	"github.com/joescharf/relstatus/internal/output"
	"github.com/joescharf/relstatus/internal/report"
)

var digestRisks bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Summarize release status with an LLM",
	Long: `Build the report and ask Claude for a short prose digest of where the
release stands and what needs attention. With --risks, rate the delivery
risk of every active blueprint instead.

Requires anthropic.api_key (or ANTHROPIC_API_KEY).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newLLMClient()
		if client == nil {
			return errors.New("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
		}
		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rep, err := openPipeline(cfg).Report(ctx)
		if err != nil {
			return err
		}
		return digestRun(ctx, client, rep)
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestRisks, "risks", false, "Rate the delivery risk of each active blueprint")
	rootCmd.AddCommand(digestCmd)
}

func digestRun(ctx context.Context, client *llm.Client, rep *report.Report) error {
	ui.VerboseLog("Asking %s about %d active blueprints", rep.Series, len(rep.Active))

	if !digestRisks {
		text, err := client.Digest(ctx, rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, text)
		return nil
	}

	risks, err := client.AssessRisks(ctx, rep)
	if err != nil {
		return err
	}
	table := ui.Table([]string{"Blueprint", "Risk", "Reason"})
	for _, r := range risks {
		table.Append([]string{output.Cyan(r.Blueprint), riskColor(r.Level), r.Reason})
	}
	table.Render()
	return nil
}

// newLLMClient returns nil when no API key is configured in either the
// config or the SDK's own environment variable.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}

func riskColor(level string) string {
	switch level {
	case "high":
		return output.Red(level)
	case "medium":
		return output.Yellow(level)
	case "low":
		return output.Green(level)
	default:
		return level
	}
}
