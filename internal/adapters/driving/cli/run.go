package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

var (
	runRegion       string
	runInput        string
	runMode         string
	runResolution   float64
	runThreshold    float64
	runNoRegenerate bool
	runTypes        string
	runJSON         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality pipeline for a region",
	Long: `Runs the full pipeline for one region.

Modes:
  standard       - density, mask, then clean existing derivative rasters
  quality-first  - density, mask, footprint, crop the cloud, then regenerate
                   derivatives from the cropped cloud

Every stage is recorded in <region>_<mode>_mode_metadata.json and in the
run history (see 'lidarqc runs').`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runRegion, "region", "r", "", "region name")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input point cloud")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "standard", "pipeline mode: standard or quality-first")
	runCmd.Flags().Float64Var(&runResolution, "resolution", 0, "density cell size (default from config)")
	runCmd.Flags().Float64VarP(&runThreshold, "threshold", "t", 0, "mask threshold (default from config)")
	runCmd.Flags().BoolVar(&runNoRegenerate, "no-regenerate", false, "skip derivative regeneration in quality-first mode")
	runCmd.Flags().StringVar(&runTypes, "types", "", "derivative types to regenerate (default from config)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run metadata as JSON")
	_ = runCmd.MarkFlagRequired("region")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	if qualityPipeline == nil {
		return notConfigured("pipeline")
	}

	req, err := qualityRequest(cmd)
	if err != nil {
		return err
	}

	run := qualityPipeline.Run(cmd.Context(), req)

	if runJSON {
		if err := printJSON(cmd, run); err != nil {
			return err
		}
	} else {
		printRunSummary(cmd, run)
	}

	if !run.Success {
		return fmt.Errorf("run %s ended in state %s", run.ID, run.State)
	}
	return nil
}

// qualityRequest merges flags over the configured defaults.
func qualityRequest(cmd *cobra.Command) (domain.QualityRequest, error) {
	mode, err := domain.ParsePipelineMode(runMode)
	if err != nil {
		return domain.QualityRequest{}, err
	}
	types, err := parseTypes(runTypes)
	if err != nil {
		return domain.QualityRequest{}, err
	}

	s := appSettings
	params := domain.RunParameters{
		Resolution:        s.Density.Resolution,
		NoData:            s.Density.NoData,
		Threshold:         s.Mask.Threshold,
		SimplifyTolerance: s.Vector.SimplifyTolerance,
		MinArea:           s.Vector.MinArea,
		VectorFormat:      s.Vector.Format,
		CropMode:          s.Crop.Mode,
		Regenerate:        s.Regenerate.Enabled && !runNoRegenerate,
		RegenerateTypes:   types,
		Force:             forceStages,
	}
	if cmd.Flags().Changed("resolution") {
		params.Resolution = runResolution
	}
	if cmd.Flags().Changed("threshold") {
		params.Threshold = runThreshold
	}

	return domain.QualityRequest{
		Region:     runRegion,
		InputPath:  runInput,
		OutputRoot: resolvedOutputRoot(),
		Mode:       mode,
		Parameters: params,
	}, nil
}

func printRunSummary(cmd *cobra.Command, run *domain.RunMetadata) {
	st := stylesFor(cmd.OutOrStdout())

	cmd.Println(st.Title.Render(fmt.Sprintf("Run %s", run.ID)))
	cmd.Printf("%s %s\n", st.Label.Render("Region:"), run.Region)
	cmd.Printf("%s %s\n", st.Label.Render("Mode:"), run.Mode.Description())

	state := string(run.State)
	switch {
	case !run.Success:
		state = st.Error.Render(state + " (failed)")
	case run.Degraded:
		state = st.Warning.Render(state + " (degraded)")
	default:
		state = st.Success.Render(state)
	}
	cmd.Printf("%s %s\n", st.Label.Render("State:"), state)
	cmd.Println()

	cmd.Println(st.Label.Render("Stages:"))
	for _, s := range run.Stages {
		cmd.Printf("  %s %-12s %s\n", stageMarker(st, s), s.Stage, stageDetail(st, s))
	}

	if run.Mask != nil {
		cmd.Println()
		cmd.Printf("%s %.2f%% valid, %.2f%% artifact\n", st.Label.Render("Mask coverage:"),
			run.Mask.Stats.CoveragePercent, run.Mask.Stats.ArtifactPercent)
	}
	if run.Crop != nil {
		cmd.Printf("%s %d of %d points (%.2f%%)\n", st.Label.Render("Retained:"),
			run.Crop.PointsAfter, run.Crop.PointsBefore, run.Crop.RetentionPercent)
	}

	if len(run.Warnings) > 0 {
		cmd.Println()
		cmd.Println(st.Warning.Render("Warnings:"))
		for _, w := range run.Warnings {
			cmd.Printf("  - %s\n", w)
		}
	}

	if run.MetadataPath != "" {
		cmd.Println()
		cmd.Printf("%s %s\n", st.Label.Render("Metadata:"), st.Muted.Render(run.MetadataPath))
	}
}

func stageMarker(st styles, s domain.StageResult) string {
	switch {
	case s.Skipped:
		return st.Muted.Render("[skip]")
	case s.Success:
		return st.Success.Render("[ok]  ")
	default:
		return st.Error.Render("[fail]")
	}
}

func stageDetail(st styles, s domain.StageResult) string {
	var parts []string
	switch {
	case s.Skipped:
		parts = append(parts, "skipped")
	case s.Cached:
		parts = append(parts, "cached")
	default:
		parts = append(parts, (time.Duration(s.DurationMS) * time.Millisecond).String())
	}
	if s.Error != "" {
		parts = append(parts, st.Error.Render(s.Error))
	}
	return strings.Join(parts, "  ")
}
