package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	maskRegion    string
	maskThreshold float64
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Threshold the density raster into a validity mask",
	Long: `Marks each density cell valid (1) when its point count is strictly
greater than the threshold, and artifact (0) otherwise. Nodata cells are
artifacts.

Reads <region>_density from the region's density directory and writes
<region>_valid_mask under density/masks/.`,
	RunE: runMask,
}

func init() {
	maskCmd.Flags().StringVarP(&maskRegion, "region", "r", "", "region name")
	maskCmd.Flags().Float64VarP(&maskThreshold, "threshold", "t", 0, "minimum points per valid cell (default from config)")
	_ = maskCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(maskCmd)
}

func runMask(cmd *cobra.Command, _ []string) error {
	if maskService == nil {
		return notConfigured("mask")
	}

	layout := layoutFor(maskRegion)
	req := driving.MaskRequest{
		Density:     &domain.DensityRaster{Path: layout.DensityPath()},
		OutputPath:  layout.MaskPath(),
		PreviewPath: layout.MaskPreviewPath(),
		Threshold:   appSettings.Mask.Threshold,
		Force:       forceStages,
	}
	if cmd.Flags().Changed("threshold") {
		req.Threshold = maskThreshold
	}

	mask, err := maskService.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("mask failed: %w", err)
	}

	s := mask.Stats
	cmd.Printf("Mask: %s%s\n", mask.Path, cachedSuffix(mask.Cached))
	cmd.Printf("  Method: %s\n", s.Method)
	cmd.Printf("  Threshold: %g\n", mask.Threshold)
	cmd.Printf("  Coverage: %.2f%% valid, %.2f%% artifact (%d of %d cells valid)\n",
		s.CoveragePercent, s.ArtifactPercent, s.ValidPixels, s.TotalPixels)
	return nil
}
