package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/thesis-scout/internal/pipeline"
)

var (
	batchDry    bool
	batchOutput string
)

// batchFile is the YAML shape the batch command consumes.
type batchFile struct {
	Theses []string `yaml:"theses"`
}

// batchResult pairs one thesis with its outcome for the output report.
type batchResult struct {
	Thesis string             `json:"thesis"`
	Error  string             `json:"error,omitempty"`
	Result *pipeline.Complete `json:"result,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Research every thesis listed in a YAML file",
	Long:  "Reads a YAML file with a top-level `theses` list and runs the pipeline for each entry in order. One failed thesis does not stop the batch.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read batch file")
		}
		var bf batchFile
		if err := yaml.Unmarshal(data, &bf); err != nil {
			return eris.Wrap(err, "parse batch file")
		}
		if len(bf.Theses) == 0 {
			return eris.New("batch file lists no theses")
		}

		env, err := initPipeline(ctx, batchDry)
		if err != nil {
			return err
		}
		defer env.Close()

		results := make([]batchResult, 0, len(bf.Theses))
		for i, thesisText := range bf.Theses {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", i+1, len(bf.Theses), thesisText)

			res, err := streamRun(ctx, env.Pipeline, thesisText)
			br := batchResult{Thesis: thesisText, Result: res}
			if err != nil {
				br.Error = err.Error()
				zap.L().Error("batch thesis failed",
					zap.String("thesis", thesisText), zap.Error(err))
			}
			results = append(results, br)
		}

		out := os.Stdout
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return eris.Wrap(err, "write batch report")
		}

		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
			}
		}
		zap.L().Info("batch complete",
			zap.Int("theses", len(results)),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return eris.Errorf("%d of %d theses failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchDry, "dry-run", false, "run without persisting anything")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write the JSON report to a file instead of stdout")
	rootCmd.AddCommand(batchCmd)
}
