package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	assert.Contains(t, runCmd.Long, "quality-first")
	assert.Equal(t, "standard", runCmd.Flags().Lookup("mode").DefValue)
}

func TestRunCmd_RequiresRegionAndInput(t *testing.T) {
	_, err := executeCommand(t, "run", "--region", "r1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"input"`)
}

func TestRunCmd_StandardSummary(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()

	out, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz", "-o", "/data/out")

	require.NoError(t, err)
	req := ts.pipeline.req
	assert.Equal(t, "r1", req.Region)
	assert.Equal(t, "r1.laz", req.InputPath)
	assert.Equal(t, "/data/out", req.OutputRoot)
	assert.Equal(t, domain.ModeStandard, req.Mode)

	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "State: standard_done")
	assert.Contains(t, out, "[ok]   statistics")
	assert.Contains(t, out, "density      cached")
	assert.Contains(t, out, "[skip] vectorize    skipped")
	assert.Contains(t, out, "Mask coverage: 75.00% valid")
	assert.Contains(t, out, "Metadata: out/r1/lidar/r1_standard_mode_metadata.json")
}

func TestRunCmd_ParametersFromConfigAndFlags(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()
	appSettings.Vector.MinArea = 25
	appSettings.Crop.Mode = domain.CropOutside

	_, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz",
		"--mode", "quality-first", "--threshold", "2", "--resolution", "0.5",
		"--no-regenerate", "--types", "DTM,Aspect", "--force")

	require.NoError(t, err)
	req := ts.pipeline.req
	assert.Equal(t, domain.ModeQualityFirst, req.Mode)
	p := req.Parameters
	assert.Equal(t, 2.0, p.Threshold)
	assert.Equal(t, 0.5, p.Resolution)
	assert.Equal(t, 25.0, p.MinArea)
	assert.Equal(t, 0.5, p.SimplifyTolerance)
	assert.Equal(t, domain.CropOutside, p.CropMode)
	assert.Equal(t, "geojson", p.VectorFormat)
	assert.False(t, p.Regenerate)
	assert.True(t, p.Force)
	assert.Equal(t, []domain.RasterType{domain.RasterDTM, domain.RasterAspect}, p.RegenerateTypes)
}

func TestRunCmd_UnknownMode(t *testing.T) {
	_, restore := setupTestServices()
	defer restore()

	_, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz", "--mode", "fast")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunCmd_FailedRunIsAnError(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()
	ts.pipeline.run = &domain.RunMetadata{
		ID:       "run-7",
		Region:   "r1",
		Mode:     domain.ModeStandard,
		State:    domain.StateFailed,
		Warnings: []string{"density: engine execution failed: pdal exited 1"},
		Stages: []domain.StageResult{
			{Stage: domain.StageStatistics, Success: true},
			{Stage: domain.StageDensity, Error: "engine execution failed: pdal exited 1"},
		},
	}

	out, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run run-7 ended in state failed")
	assert.Contains(t, out, "failed (failed)")
	assert.Contains(t, out, "[fail] density")
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "pdal exited 1")
}

func TestRunCmd_DegradedRunSucceeds(t *testing.T) {
	ts, restore := setupTestServices()
	defer restore()
	ts.pipeline.run = &domain.RunMetadata{
		ID:       "run-8",
		Mode:     domain.ModeQualityFirst,
		State:    domain.StateDegraded,
		Success:  true,
		Degraded: true,
		Warnings: []string{"vectorize: empty footprint"},
		Crop:     &domain.CroppedPointCloud{PointsBefore: 10, PointsAfter: 10, RetentionPercent: 100},
	}

	out, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz", "--mode", "quality_first")

	require.NoError(t, err)
	assert.Contains(t, out, "degraded (degraded)")
	assert.Contains(t, out, "Retained: 10 of 10 points (100.00%)")
}

func TestRunCmd_JSONOutput(t *testing.T) {
	_, restore := setupTestServices()
	defer restore()

	out, err := executeCommand(t, "run", "-r", "r1", "-i", "r1.laz", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"id": "run-1"`)
	assert.Contains(t, out, `"state": "standard_done"`)
	assert.NotContains(t, out, "Stages:")
}

func TestPrintRunSummary_PlainWhenNotTerminal(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	printRunSummary(cmd, &domain.RunMetadata{ID: "x", State: domain.StateStandardDone, Success: true})

	assert.NotContains(t, buf.String(), "\x1b[")
}
