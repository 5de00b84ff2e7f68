package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/thesis-scout/internal/pipeline"
)

var (
	runDry  bool
	runJSON bool
)

var runCmd = &cobra.Command{
	Use:   "run <thesis>",
	Short: "Research a single investment thesis",
	Long:  "Runs the full research pipeline for one thesis and streams progress to stderr. The final ranked result is printed to stdout.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, runDry)
		if err != nil {
			return err
		}
		defer env.Close()

		thesisText := strings.Join(args, " ")
		result, err := streamRun(ctx, env.Pipeline, thesisText)
		if err != nil {
			return err
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printResult(result)
		return nil
	},
}

// streamRun drains a run's event stream, echoing progress and per-company
// events to stderr, and returns the terminal Complete event.
func streamRun(ctx context.Context, p *pipeline.Pipeline, thesisText string) (*pipeline.Complete, error) {
	var result *pipeline.Complete
	for ev := range p.Run(ctx, thesisText) {
		switch e := ev.(type) {
		case pipeline.Progress:
			fmt.Fprintf(os.Stderr, "... %s\n", e.Message)
		case pipeline.Company:
			fmt.Fprintf(os.Stderr, "  + %s (%d/30)\n", e.Record.Name, e.Record.TotalScore)
		case pipeline.Complete:
			result = &e
		case pipeline.Error:
			return nil, eris.New(e.Message)
		}
	}
	if result == nil {
		return nil, eris.New("run ended without a terminal event")
	}
	return result, nil
}

func printResult(result *pipeline.Complete) {
	fmt.Println()
	fmt.Println(result.Summary)
	fmt.Println()

	if len(result.Companies) == 0 {
		fmt.Println("No companies passed the fit filter.")
		return
	}

	for i, c := range result.Companies {
		fmt.Printf("%d. %s", i+1, c.Name)
		if c.Website != "" {
			fmt.Printf(" (%s)", c.Website)
		}
		fmt.Printf(" - score %d/30 [relevance %d, recency %d, team %d]\n",
			c.TotalScore, c.ThesisRelevance, c.Recency, c.FoundingTeam)
		if c.Writeup != "" {
			fmt.Printf("   %s\n", c.Writeup)
		}
		fmt.Println()
	}

	if len(result.PublicComps) > 0 {
		fmt.Printf("Public comps: %s\n", strings.Join(result.PublicComps, ", "))
	}
	fmt.Printf("Discovered direct: %d, via adjacent themes: %d\n",
		result.Stats.DirectThesis, result.Stats.AdjacentThemes)
	if len(result.ThesisSources) > 0 {
		fmt.Printf("Supporting sources: %d (top: %s)\n",
			len(result.ThesisSources), result.ThesisSources[0].URL)
	}
}

func init() {
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "run without persisting anything")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(runCmd)
}
