package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	cleanRegion string
	cleanRaster string
	cleanMask   string
	cleanOutput string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Mask derivative rasters with the validity mask",
	Long: `Sets every cell outside the validity mask to nodata.

Without --raster, every recognised derivative (DTM, DSM, CHM, Hillshade,
Slope, Aspect, Roughness, TRI, TPI, ColorRelief) under the region directory
is cleaned into a cleaned/ directory next to it. Failures are reported per
file and do not stop the batch.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanRegion, "region", "r", "", "region name")
	cleanCmd.Flags().StringVar(&cleanRaster, "raster", "", "clean a single raster")
	cleanCmd.Flags().StringVar(&cleanMask, "mask", "", "mask raster (default: the region's mask)")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "output raster for --raster (default: cleaned/ sibling)")
	_ = cleanCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	if cleanService == nil {
		return notConfigured("clean")
	}

	layout := layoutFor(cleanRegion)
	mask := cleanMask
	if mask == "" {
		mask = layout.MaskPath()
	}

	if cleanRaster != "" {
		res, err := cleanService.Clean(cmd.Context(), driving.CleanRequest{
			RasterPath: cleanRaster,
			MaskPath:   mask,
			OutputPath: cleanOutput,
		})
		if err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		cmd.Printf("Cleaned: %s -> %s (%d cells masked)\n", res.InputPath, res.OutputPath, res.CellsMasked)
		return nil
	}

	report, err := cleanService.CleanBatch(cmd.Context(), layout.RegionDir(), mask)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}
	printCleanReport(cmd, report)
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d rasters failed to clean", report.Failed, report.Processed)
	}
	return nil
}

func printCleanReport(cmd *cobra.Command, r *domain.CleanBatchReport) {
	cmd.Printf("Cleaned %d of %d rasters under %s\n", r.Successful, r.Processed, r.RegionDir)
	for _, res := range r.Results {
		if res.Success {
			cmd.Printf("  [ok]     %s -> %s\n", res.InputPath, res.OutputPath)
		} else {
			cmd.Printf("  [failed] %s: %s\n", res.InputPath, res.Error)
		}
	}
}
