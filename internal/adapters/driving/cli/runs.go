package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

var (
	runsRegion string
	runsLimit  int
	runsJSON   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past pipeline runs",
	Long:  `List and inspect pipeline runs recorded in the run history.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the full metadata of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().StringVarP(&runsRegion, "region", "r", "", "only runs for this region")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runHistory == nil {
		return notConfigured("run history")
	}

	runs, err := runHistory.List(cmd.Context(), domain.RunFilter{Region: runsRegion, Limit: runsLimit})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		return printJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		cmd.Printf("%s  %-12s %-14s %-22s %-6s %s\n",
			r.ID, r.Region, r.Mode, r.State, status, r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runHistory == nil {
		return notConfigured("run history")
	}

	run, err := runHistory.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	return printJSON(cmd, run)
}
