package pdal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

func TestEngine_Run_WritesPipelineAndRemovesIt(t *testing.T) {
	var pipelinePath string
	var doc domain.Pipeline
	runner := &process.MockRunner{Handler: func(_ context.Context, c process.Command) (*process.Result, error) {
		pipelinePath = c.Args[1]
		data, err := os.ReadFile(pipelinePath)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &doc))
		return &process.Result{}, nil
	}}

	n, err := New(runner, "").Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage("/data/r1.laz"),
		domain.CountGridStage("/out/r1_density.tif", 1, -9999),
	}})

	require.NoError(t, err)
	assert.Equal(t, domain.UnknownPointCount, n)
	assert.Equal(t, "pdal", runner.LastCommand().Path)
	assert.Equal(t, "pipeline", runner.LastCommand().Args[0])
	require.Len(t, doc.Stages, 2)
	assert.Equal(t, domain.StageReadersLAS, doc.Stages[0].Type())
	_, statErr := os.Stat(pipelinePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEngine_Run_PropagatesEngineError(t *testing.T) {
	runner := &process.MockRunner{Handler: func(context.Context, process.Command) (*process.Result, error) {
		return nil, &domain.EngineError{Engine: "pdal", Operation: "pipeline", ExitCode: 1, Stderr: "readers.las: unable to open"}
	}}

	_, err := New(runner, "").Run(context.Background(), domain.Pipeline{Stages: []domain.PipelineStage{
		domain.ReaderStage("/data/missing.laz"),
	}})

	assert.ErrorIs(t, err, domain.ErrEngineExecutionFailed)
	assert.Contains(t, err.Error(), "unable to open")
}

const infoJSON = `{
  "filename": "r1.laz",
  "pdal_version": "2.6.0",
  "summary": {
    "bounds": {"maxx": 637179.22, "maxy": 853535.43, "maxz": 586.38,
               "minx": 635577.79, "miny": 848882.15, "minz": 406.59},
    "dimensions": "X, Y, Z, Intensity",
    "num_points": 1065,
    "srs": {"wkt": "PROJCS[\"NAD83 / Oregon GIC Lambert (ft)\"]"}
  }
}`

func TestEngine_Info(t *testing.T) {
	cloud := filepath.Join(t.TempDir(), "r1.laz")
	require.NoError(t, os.WriteFile(cloud, []byte("LASF"), 0o600))
	runner := &process.MockRunner{Handler: func(context.Context, process.Command) (*process.Result, error) {
		return &process.Result{Stdout: []byte(infoJSON)}, nil
	}}

	info, err := New(runner, "/opt/pdal/bin/pdal").Info(context.Background(), cloud)

	require.NoError(t, err)
	assert.Equal(t, int64(1065), info.PointCount)
	assert.Equal(t, 635577.79, info.Bounds.MinX)
	assert.Equal(t, 586.38, info.Bounds.MaxZ)
	assert.Contains(t, info.SRS, "Oregon")
	assert.Equal(t, []string{"info", "--summary", cloud}, runner.LastCommand().Args)
	assert.Equal(t, "/opt/pdal/bin/pdal", runner.LastCommand().Path)
}

func TestEngine_Info_MissingInput(t *testing.T) {
	runner := &process.MockRunner{}

	_, err := New(runner, "").Info(context.Background(), filepath.Join(t.TempDir(), "none.laz"))

	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	assert.Nil(t, runner.LastCommand())
}
