package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"docforge/internal/schema"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Store schemas and answers in the local database",
}

var importName string

var importSchemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Validate and store a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		s, err := schema.Load(args[0])
		if err != nil {
			return err
		}
		name := schemaName(importName, s)
		if err := a.store.SaveSchema(ctx, name, s); err != nil {
			return fmt.Errorf("save schema: %w", err)
		}
		fmt.Printf("💾 Stored schema %q (%d required headings)\n", name, len(s.Required()))
		return nil
	},
}

var importAnswersCmd = &cobra.Command{
	Use:   "answers <file>",
	Short: "Store answers for a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importName == "" {
			return fmt.Errorf("--name is required")
		}
		ctx := cmd.Context()
		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		items, err := schema.LoadAnswers(args[0])
		if err != nil {
			return err
		}
		if err := a.store.SaveAnswers(ctx, importName, items); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		fmt.Printf("💾 Stored %d answers for %q\n", len(items), importName)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past generation runs",
}

var (
	runsName  string
	runsLimit int
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		runs, err := a.store.ListRuns(ctx, runsName, runsLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCHEMA\tMODE\tSTATUS\tREPAIRS\tISSUES\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.SchemaName, r.Mode, r.Status, r.RetryCount, len(r.Issues), r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		r, err := a.store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, r)
	},
}

func init() {
	importCmd.PersistentFlags().StringVarP(&importName, "name", "n", "", "Name to store under (schema: defaults to its document name)")
	importCmd.AddCommand(importSchemaCmd)
	importCmd.AddCommand(importAnswersCmd)

	runsListCmd.Flags().StringVarP(&runsName, "name", "n", "", "Only runs for this schema")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Maximum number of runs")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
