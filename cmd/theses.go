package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/thesis-scout/internal/store"
)

var thesesCmd = &cobra.Command{
	Use:   "theses",
	Short: "Inspect past research runs",
	Long:  "Commands for listing, viewing, and deleting researched theses.",
}

// -- theses list --

var thesesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List researched theses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		theses, err := st.ListTheses(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "theses list")
		}

		if len(theses) == 0 {
			fmt.Fprintln(os.Stderr, "No theses found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tTHESIS")
		for _, t := range theses {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				t.ID, t.Status, t.CreatedAt.Format("2006-01-02 15:04"), clipText(t.Text, 60))
		}
		return w.Flush()
	},
}

// -- theses show --

var thesesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one thesis with its companies and findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		thesis, err := st.GetThesis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "theses show")
		}
		if thesis == nil {
			return eris.Errorf("thesis %s not found", args[0])
		}

		companies, err := st.ListCompaniesByThesis(ctx, thesis.ID)
		if err != nil {
			return eris.Wrap(err, "list companies")
		}
		findings, err := st.ListFindingsByThesis(ctx, thesis.ID)
		if err != nil {
			return eris.Wrap(err, "list findings")
		}

		out := struct {
			Thesis    any `json:"thesis"`
			Companies any `json:"companies"`
			Findings  any `json:"findings"`
		}{thesis, companies, findings}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// -- theses delete --

var thesesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a thesis and its companies and findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteThesis(ctx, args[0]); err != nil {
			return eris.Wrap(err, "theses delete")
		}
		fmt.Printf("Deleted thesis %s\n", args[0])
		return nil
	},
}

// openStore opens and migrates the configured store for read-mostly
// commands that do not need the full pipeline environment.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	thesesListCmd.Flags().Int("limit", 20, "maximum theses to list")
	thesesCmd.AddCommand(thesesListCmd, thesesShowCmd, thesesDeleteCmd)
	rootCmd.AddCommand(thesesCmd)
}
