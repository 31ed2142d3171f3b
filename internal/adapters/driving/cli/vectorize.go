package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	vectorizeRegion    string
	vectorizeTolerance float64
	vectorizeMinArea   float64
	vectorizeFormat    string
)

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Trace the validity mask into footprint polygons",
	Long: `Traces connected valid regions of the mask into polygons, discards
polygons smaller than --min-area and simplifies the rest.

Formats: geojson, shapefile, wkt.`,
	RunE: runVectorize,
}

func init() {
	vectorizeCmd.Flags().StringVarP(&vectorizeRegion, "region", "r", "", "region name")
	vectorizeCmd.Flags().Float64Var(&vectorizeTolerance, "simplify", 0, "simplification tolerance in map units (default from config)")
	vectorizeCmd.Flags().Float64Var(&vectorizeMinArea, "min-area", 0, "minimum polygon area in square map units (default from config)")
	vectorizeCmd.Flags().StringVarP(&vectorizeFormat, "format", "f", "", "vector format (default from config)")
	_ = vectorizeCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(vectorizeCmd)
}

func runVectorize(cmd *cobra.Command, _ []string) error {
	if vectorizeService == nil {
		return notConfigured("vectorize")
	}

	layout := layoutFor(vectorizeRegion)
	req := driving.VectorizeRequest{
		Mask:              &domain.BinaryMask{Path: layout.MaskPath()},
		SimplifyTolerance: appSettings.Vector.SimplifyTolerance,
		MinArea:           appSettings.Vector.MinArea,
		OutputPath:        layout.FootprintPath(""),
		Format:            appSettings.Vector.Format,
	}
	if cmd.Flags().Changed("simplify") {
		req.SimplifyTolerance = vectorizeTolerance
	}
	if cmd.Flags().Changed("min-area") {
		req.MinArea = vectorizeMinArea
	}
	if vectorizeFormat != "" {
		req.Format = vectorizeFormat
	}

	fp, err := vectorizeService.Vectorize(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("vectorize failed: %w", err)
	}

	cmd.Printf("Footprint: %s\n", fp.Path)
	cmd.Printf("  Polygons: %d kept, %d below min area\n", fp.PolygonCount, fp.DiscardedCount)
	cmd.Printf("  Area: %.2f\n", fp.TotalArea)
	if fp.IsEmpty() {
		cmd.Println("  Warning: the mask has no valid regions")
	}
	return nil
}
