package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	densityRegion     string
	densityInput      string
	densityResolution float64
	densityNoData     int
)

var densityCmd = &cobra.Command{
	Use:   "density",
	Short: "Generate a point density raster",
	Long: `Counts points per cell of a regular grid covering the cloud.

Writes <region>_density, a PNG preview and a statistics sidecar under
<output-root>/<region>/lidar/density/. Existing outputs newer than the
cloud are reused unless --force is given.`,
	RunE: runDensity,
}

func init() {
	densityCmd.Flags().StringVarP(&densityRegion, "region", "r", "", "region name")
	densityCmd.Flags().StringVarP(&densityInput, "input", "i", "", "input point cloud")
	densityCmd.Flags().Float64Var(&densityResolution, "resolution", 0, "cell size in map units (default from config)")
	densityCmd.Flags().IntVar(&densityNoData, "nodata", 0, "nodata value (default from config)")
	_ = densityCmd.MarkFlagRequired("region")
	_ = densityCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(densityCmd)
}

func runDensity(cmd *cobra.Command, _ []string) error {
	if densityService == nil {
		return notConfigured("density")
	}

	cloud, err := domain.OpenPointCloud(densityInput)
	if err != nil {
		return err
	}

	req := driving.DensityRequest{
		Cloud:      cloud,
		Resolution: appSettings.Density.Resolution,
		NoData:     appSettings.Density.NoData,
		Force:      forceStages,
	}
	if cmd.Flags().Changed("resolution") {
		req.Resolution = densityResolution
	}
	if cmd.Flags().Changed("nodata") {
		req.NoData = densityNoData
	}
	layout := layoutFor(densityRegion)
	req.OutputPath = layout.DensityPath()
	req.PreviewPath = layout.DensityPreviewPath()
	req.MetadataPath = layout.DensityMetadataPath()

	density, err := densityService.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("density failed: %w", err)
	}

	printDensity(cmd, density)
	return nil
}

func printDensity(cmd *cobra.Command, d *domain.DensityRaster) {
	cmd.Printf("Density raster: %s%s\n", d.Path, cachedSuffix(d.Cached))
	cmd.Printf("  Grid: %d x %d at %g\n", d.Width, d.Height, d.Resolution)
	cmd.Printf("  Points per cell: min %.2f  max %.2f  mean %.2f  stddev %.2f\n",
		d.Stats.Min, d.Stats.Max, d.Stats.Mean, d.Stats.StdDev)
	cmd.Printf("  Cells: %d with points, %d nodata\n", d.Stats.ValidCount, d.Stats.NoDataCount)
	if d.PreviewPath != "" {
		cmd.Printf("  Preview: %s\n", d.PreviewPath)
	}
}

func cachedSuffix(cached bool) string {
	if cached {
		return " (cached)"
	}
	return ""
}
