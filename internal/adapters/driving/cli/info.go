package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [point-cloud]",
	Short: "Show point cloud statistics",
	Long:  `Reports the point count, bounds and spatial reference of a point cloud.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	if statisticsService == nil {
		return notConfigured("statistics")
	}

	info, err := statisticsService.Info(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("info failed: %w", err)
	}

	if infoJSON {
		return printJSON(cmd, info)
	}

	b := info.Bounds
	cmd.Printf("Point cloud: %s\n", info.Path)
	cmd.Printf("  Points: %d\n", info.PointCount)
	cmd.Printf("  X: %.3f .. %.3f\n", b.MinX, b.MaxX)
	cmd.Printf("  Y: %.3f .. %.3f\n", b.MinY, b.MaxY)
	cmd.Printf("  Z: %.3f .. %.3f\n", b.MinZ, b.MaxZ)
	if info.SRS != "" {
		cmd.Printf("  SRS: %s\n", info.SRS)
	}
	return nil
}
