package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// RunPipelineInput is the input schema for the run_quality_pipeline tool.
type RunPipelineInput struct {
	Region     string   `json:"region" jsonschema:"region name used for output paths"`
	InputPath  string   `json:"input_path" jsonschema:"path to the input point cloud"`
	Mode       string   `json:"mode,omitempty" jsonschema:"standard or quality_first (default standard)"`
	OutputRoot string   `json:"output_root,omitempty" jsonschema:"output root directory (default from config)"`
	Resolution *float64 `json:"resolution,omitempty" jsonschema:"density cell size in map units"`
	Threshold  *float64 `json:"threshold,omitempty" jsonschema:"minimum points per cell for a cell to be valid"`
	Regenerate *bool    `json:"regenerate,omitempty" jsonschema:"regenerate derivatives in quality_first mode"`
	Force      bool     `json:"force,omitempty" jsonschema:"recompute stages even when outputs are up to date"`
}

// RunPipelineOutput summarises a finished run.
type RunPipelineOutput struct {
	RunID           string        `json:"run_id"`
	State           string        `json:"state"`
	Success         bool          `json:"success"`
	Degraded        bool          `json:"degraded"`
	CoveragePercent *float64      `json:"coverage_percent,omitempty"`
	RetainedPercent *float64      `json:"retained_percent,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	MetadataPath    string        `json:"metadata_path,omitempty"`
	Stages          []StageOutput `json:"stages"`
}

// StageOutput is one stage of a run.
type StageOutput struct {
	Stage   string `json:"stage"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PointCloudInfoInput is the input schema for the point_cloud_info tool.
type PointCloudInfoInput struct {
	Path string `json:"path" jsonschema:"path to the point cloud"`
}

// PointCloudInfoOutput reports point cloud statistics.
type PointCloudInfoOutput struct {
	Path       string    `json:"path"`
	PointCount int64     `json:"point_count"`
	Bounds     []float64 `json:"bounds" jsonschema:"minx, miny, minz, maxx, maxy, maxz"`
	SRS        string    `json:"srs,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_quality_pipeline",
		Description: "Run the lidar quality pipeline (density, mask, then clean or crop and regenerate) for one region",
	}, s.handleRunPipeline)
	s.tools = append(s.tools, "run_quality_pipeline")

	if s.ports.Statistics != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "point_cloud_info",
			Description: "Report point count, bounds and spatial reference of a point cloud",
		}, s.handlePointCloudInfo)
		s.tools = append(s.tools, "point_cloud_info")
	}
}

// handleRunPipeline runs the pipeline. Stage failures are part of the
// output, not tool errors.
func (s *Server) handleRunPipeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunPipelineInput,
) (*mcp.CallToolResult, RunPipelineOutput, error) {
	req, err := s.qualityRequest(input)
	if err != nil {
		return nil, RunPipelineOutput{}, err
	}

	run := s.ports.Pipeline.Run(ctx, req)
	return nil, runOutput(run), nil
}

func (s *Server) qualityRequest(input RunPipelineInput) (domain.QualityRequest, error) {
	mode, err := domain.ParsePipelineMode(input.Mode)
	if err != nil {
		return domain.QualityRequest{}, err
	}
	types, err := s.ports.Settings.RegenerateTypes()
	if err != nil {
		return domain.QualityRequest{}, err
	}

	cfg := s.ports.Settings
	params := domain.RunParameters{
		Resolution:        cfg.Density.Resolution,
		NoData:            cfg.Density.NoData,
		Threshold:         cfg.Mask.Threshold,
		SimplifyTolerance: cfg.Vector.SimplifyTolerance,
		MinArea:           cfg.Vector.MinArea,
		VectorFormat:      cfg.Vector.Format,
		CropMode:          cfg.Crop.Mode,
		Regenerate:        cfg.Regenerate.Enabled,
		RegenerateTypes:   types,
		Force:             input.Force,
	}
	if input.Resolution != nil {
		params.Resolution = *input.Resolution
	}
	if input.Threshold != nil {
		params.Threshold = *input.Threshold
	}
	if input.Regenerate != nil {
		params.Regenerate = *input.Regenerate
	}

	root := input.OutputRoot
	if root == "" {
		root = s.ports.OutputRoot
	}
	if root == "" {
		root = cfg.Output.Root
	}

	return domain.QualityRequest{
		Region:     input.Region,
		InputPath:  input.InputPath,
		OutputRoot: root,
		Mode:       mode,
		Parameters: params,
	}, nil
}

func runOutput(run *domain.RunMetadata) RunPipelineOutput {
	out := RunPipelineOutput{
		RunID:        run.ID,
		State:        string(run.State),
		Success:      run.Success,
		Degraded:     run.Degraded,
		Warnings:     run.Warnings,
		MetadataPath: run.MetadataPath,
		Stages:       make([]StageOutput, len(run.Stages)),
	}
	for i, st := range run.Stages {
		out.Stages[i] = StageOutput{
			Stage:   string(st.Stage),
			Success: st.Success,
			Skipped: st.Skipped,
			Cached:  st.Cached,
			Error:   st.Error,
		}
	}
	if run.Mask != nil {
		v := run.Mask.Stats.CoveragePercent
		out.CoveragePercent = &v
	}
	if run.Crop != nil {
		v := run.Crop.RetentionPercent
		out.RetainedPercent = &v
	}
	return out
}

// handlePointCloudInfo reports engine statistics for a cloud.
func (s *Server) handlePointCloudInfo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PointCloudInfoInput,
) (*mcp.CallToolResult, PointCloudInfoOutput, error) {
	if s.ports.Statistics == nil {
		return nil, PointCloudInfoOutput{}, fmt.Errorf("statistics: %w", domain.ErrNotImplemented)
	}

	info, err := s.ports.Statistics.Info(ctx, input.Path)
	if err != nil {
		return nil, PointCloudInfoOutput{}, err
	}

	b := info.Bounds
	return nil, PointCloudInfoOutput{
		Path:       info.Path,
		PointCount: info.PointCount,
		Bounds:     []float64{b.MinX, b.MinY, b.MinZ, b.MaxX, b.MaxY, b.MaxZ},
		SRS:        info.SRS,
	}, nil
}
