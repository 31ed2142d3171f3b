package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	regenerateRegion     string
	regenerateInput      string
	regenerateTypes      string
	regenerateResolution float64
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate derivative rasters from a point cloud",
	Long: `Runs the configured generator for each derivative type. DTM-based
types (Hillshade, Slope, ...) use the DTM generated in the same invocation.
One failed type never stops the others.

--types takes a comma separated list, e.g. DTM,Hillshade,Slope.`,
	RunE: runRegenerate,
}

func init() {
	regenerateCmd.Flags().StringVarP(&regenerateRegion, "region", "r", "", "region name")
	regenerateCmd.Flags().StringVarP(&regenerateInput, "input", "i", "", "point cloud (default: the region's cropped cloud)")
	regenerateCmd.Flags().StringVar(&regenerateTypes, "types", "", "derivative types (default from config)")
	regenerateCmd.Flags().Float64Var(&regenerateResolution, "resolution", 0, "output cell size (default from config)")
	_ = regenerateCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(regenerateCmd)
}

func runRegenerate(cmd *cobra.Command, _ []string) error {
	if regenerateService == nil {
		return notConfigured("regenerate")
	}

	layout := layoutFor(regenerateRegion)
	input := regenerateInput
	if input == "" {
		input = layout.CroppedPath(cropExt)
	}
	if _, err := domain.OpenPointCloud(input); err != nil {
		return err
	}

	types, err := parseTypes(regenerateTypes)
	if err != nil {
		return err
	}

	req := driving.RegenerateRequest{
		Region:     regenerateRegion,
		CloudPath:  input,
		Types:      types,
		OutputDir:  layout.CleanRastersDir(),
		Resolution: appSettings.Density.Resolution,
	}
	if cmd.Flags().Changed("resolution") {
		req.Resolution = regenerateResolution
	}

	report := regenerateService.Regenerate(cmd.Context(), req)
	printRegeneration(cmd, report)
	if report.Succeeded() == 0 && len(report.Results) > 0 {
		return fmt.Errorf("%w: no derivative could be regenerated", domain.ErrEngineExecutionFailed)
	}
	return nil
}

// parseTypes reads a comma separated list, falling back to the
// configured types.
func parseTypes(s string) ([]domain.RasterType, error) {
	if strings.TrimSpace(s) == "" {
		return appSettings.RegenerateTypes()
	}
	var types []domain.RasterType
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := domain.ParseRasterType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return domain.SortRasterTypes(types), nil
}

func printRegeneration(cmd *cobra.Command, r *domain.RegenerationReport) {
	cmd.Printf("Regenerated %d of %d derivatives into %s\n", r.Succeeded(), len(r.Results), r.OutputDir)
	for _, res := range r.Results {
		if res.Success {
			cmd.Printf("  [ok]     %s: %s\n", res.Type, res.OutputPath)
		} else {
			cmd.Printf("  [failed] %s: %s\n", res.Type, res.Error)
		}
	}
}
