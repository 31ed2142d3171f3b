// Package pdal runs point-cloud pipelines with the PDAL command line tool.
package pdal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.PointCloudEngine = (*Engine)(nil)

// Engine shells out to the pdal binary.
type Engine struct {
	runner process.Runner
	binary string
}

// New creates a PDAL engine. An empty binary defaults to "pdal".
func New(runner process.Runner, binary string) *Engine {
	if binary == "" {
		binary = "pdal"
	}
	return &Engine{runner: runner, binary: binary}
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "pdal"
}

// Run writes the pipeline to a scratch file and executes it.
// PDAL does not report a point count on the command line, so the
// result is always domain.UnknownPointCount.
func (e *Engine) Run(ctx context.Context, p domain.Pipeline) (int64, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode pipeline: %w", err)
	}
	err = process.WithTempFile("lidarqc-pipeline-*.json", data, func(path string) error {
		_, err := e.runner.Run(ctx, process.Command{
			Path:      e.binary,
			Args:      []string{"pipeline", path},
			Operation: "pipeline",
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return domain.UnknownPointCount, nil
}

// summary mirrors the parts of `pdal info --summary` we read.
type summary struct {
	Summary struct {
		NumPoints int64 `json:"num_points"`
		Bounds    struct {
			MinX float64 `json:"minx"`
			MinY float64 `json:"miny"`
			MinZ float64 `json:"minz"`
			MaxX float64 `json:"maxx"`
			MaxY float64 `json:"maxy"`
			MaxZ float64 `json:"maxz"`
		} `json:"bounds"`
		SRS struct {
			WKT string `json:"wkt"`
		} `json:"srs"`
	} `json:"summary"`
}

// Info runs `pdal info --summary` and parses the JSON report.
func (e *Engine) Info(ctx context.Context, path string) (*domain.PointCloudInfo, error) {
	if _, err := domain.OpenPointCloud(path); err != nil {
		return nil, err
	}
	res, err := e.runner.Run(ctx, process.Command{
		Path:      e.binary,
		Args:      []string{"info", "--summary", path},
		Operation: "info",
	})
	if err != nil {
		return nil, err
	}

	var s summary
	if err := json.Unmarshal(res.Stdout, &s); err != nil {
		return nil, fmt.Errorf("parse pdal info output: %w", err)
	}
	b := s.Summary.Bounds
	return &domain.PointCloudInfo{
		Path:       path,
		PointCount: s.Summary.NumPoints,
		Bounds: domain.Bounds{
			MinX: b.MinX, MinY: b.MinY, MinZ: b.MinZ,
			MaxX: b.MaxX, MaxY: b.MaxY, MaxZ: b.MaxZ,
		},
		SRS: s.Summary.SRS.WKT,
	}, nil
}
