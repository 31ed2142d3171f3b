package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

// mockStatistics implements driving.StatisticsService for testing.
type mockStatistics struct {
	err error
}

func (m *mockStatistics) Info(_ context.Context, path string) (*domain.PointCloudInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.PointCloudInfo{
		Path:       path,
		PointCount: 1500,
		Bounds:     domain.Bounds{MinX: 10, MinY: 20, MinZ: 1, MaxX: 14, MaxY: 24, MaxZ: 9},
		SRS:        "EPSG:32633",
	}, nil
}

func (m *mockStatistics) PointCount(_ context.Context, _ string) (int64, error) {
	return 1500, m.err
}

// mockDensity implements driving.DensityService for testing.
type mockDensity struct {
	req driving.DensityRequest
}

func (m *mockDensity) Generate(_ context.Context, req driving.DensityRequest) (*domain.DensityRaster, error) {
	m.req = req
	return &domain.DensityRaster{
		Path:        req.OutputPath,
		SourcePath:  req.Cloud.Path,
		Resolution:  req.Resolution,
		NoData:      req.NoData,
		Width:       4,
		Height:      3,
		Stats:       domain.RasterStats{Min: 1, Max: 7, Mean: 3.5, StdDev: 1.2, ValidCount: 10, NoDataCount: 2},
		PreviewPath: req.PreviewPath,
	}, nil
}

// mockMask implements driving.MaskService for testing.
type mockMask struct {
	req driving.MaskRequest
}

func (m *mockMask) Generate(_ context.Context, req driving.MaskRequest) (*domain.BinaryMask, error) {
	m.req = req
	return &domain.BinaryMask{
		Path:       req.OutputPath,
		SourcePath: req.Density.Path,
		Threshold:  req.Threshold,
		Stats:      domain.NewMaskStats(domain.MaskMethodArray, 3, 4),
		Cached:     true,
	}, nil
}

func (m *mockMask) Strategy() domain.MaskMethod {
	return domain.MaskMethodArray
}

// mockVectorize implements driving.VectorizeService for testing.
type mockVectorize struct {
	req      driving.VectorizeRequest
	readPath string
	empty    bool
}

func (m *mockVectorize) Vectorize(_ context.Context, req driving.VectorizeRequest) (*domain.Footprint, error) {
	m.req = req
	fp := &domain.Footprint{Path: req.OutputPath + ".geojson", Format: req.Format}
	if !m.empty {
		fp.Polygons = []domain.Polygon{{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}}}
		fp.PolygonCount = 1
		fp.DiscardedCount = 2
		fp.TotalArea = 0.5
	}
	return fp, nil
}

func (m *mockVectorize) ReadFootprint(path string) (*domain.Footprint, error) {
	m.readPath = path
	return &domain.Footprint{
		Path:     path,
		Polygons: []domain.Polygon{{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}}},
	}, nil
}

// mockCrop implements driving.CropService for testing.
type mockCrop struct {
	req driving.CropRequest
}

func (m *mockCrop) Crop(_ context.Context, req driving.CropRequest) (*domain.CroppedPointCloud, error) {
	m.req = req
	kind := "footprint"
	if req.Geometry.BBox != nil {
		kind = "bbox"
	}
	return &domain.CroppedPointCloud{
		Path:             req.OutputPath,
		SourcePath:       req.Cloud.Path,
		Mode:             req.Mode,
		GeometryKind:     kind,
		PointsBefore:     100,
		PointsAfter:      80,
		RetentionPercent: 80,
	}, nil
}

// mockClean implements driving.CleanService for testing.
type mockClean struct {
	req       driving.CleanRequest
	regionDir string
	maskPath  string
	failed    int
}

func (m *mockClean) Clean(_ context.Context, req driving.CleanRequest) (*domain.CleanResult, error) {
	m.req = req
	out := req.OutputPath
	if out == "" {
		out = domain.CleanedPath(req.RasterPath)
	}
	return &domain.CleanResult{InputPath: req.RasterPath, OutputPath: out, Success: true, CellsMasked: 5, BandsCleaned: 1}, nil
}

func (m *mockClean) CleanBatch(_ context.Context, regionDir, maskPath string) (*domain.CleanBatchReport, error) {
	m.regionDir = regionDir
	m.maskPath = maskPath
	report := &domain.CleanBatchReport{RegionDir: regionDir}
	report.Results = append(report.Results, domain.CleanResult{
		InputPath: regionDir + "/r1_DTM.tif", OutputPath: regionDir + "/cleaned/r1_DTM.tif", Type: domain.RasterDTM, Success: true,
	})
	for i := 0; i < m.failed; i++ {
		report.Results = append(report.Results, domain.CleanResult{
			InputPath: regionDir + "/r1_Slope.tif", Type: domain.RasterSlope, Error: "dimension mismatch",
		})
	}
	report.Processed = len(report.Results)
	report.Failed = m.failed
	report.Successful = report.Processed - m.failed
	return report, nil
}

// mockRegenerate implements driving.RegenerateService for testing.
type mockRegenerate struct {
	req     driving.RegenerateRequest
	failAll bool
}

func (m *mockRegenerate) Regenerate(_ context.Context, req driving.RegenerateRequest) *domain.RegenerationReport {
	m.req = req
	report := &domain.RegenerationReport{SourcePath: req.CloudPath, OutputDir: req.OutputDir}
	for _, t := range req.Types {
		res := domain.RegenerationResult{Type: t}
		if m.failAll {
			res.Error = "engine execution failed"
		} else {
			res.Success = true
			res.OutputPath = req.OutputDir + "/" + req.Region + "_" + string(t) + ".tif"
		}
		report.Results = append(report.Results, res)
	}
	return report
}

// mockPipeline implements driving.QualityPipeline for testing.
type mockPipeline struct {
	req domain.QualityRequest
	run *domain.RunMetadata
}

func (m *mockPipeline) Run(_ context.Context, req domain.QualityRequest) *domain.RunMetadata {
	m.req = req
	if m.run != nil {
		return m.run
	}
	return &domain.RunMetadata{
		ID:      "run-1",
		Region:  req.Region,
		Mode:    req.Mode,
		State:   domain.StateStandardDone,
		Success: true,
		Stages: []domain.StageResult{
			{Stage: domain.StageStatistics, Success: true, DurationMS: 3},
			{Stage: domain.StageDensity, Success: true, Cached: true},
			{Stage: domain.StageMask, Success: true, DurationMS: 12},
			{Stage: domain.StageVectorize, Skipped: true},
			{Stage: domain.StageClean, Success: true, DurationMS: 40},
		},
		Mask:         &domain.BinaryMask{Stats: domain.NewMaskStats(domain.MaskMethodArray, 3, 4)},
		MetadataPath: "out/" + req.Region + "/lidar/" + req.Region + "_standard_mode_metadata.json",
	}
}

// mockHistory implements driving.RunHistory for testing.
type mockHistory struct {
	filter domain.RunFilter
	err    error
}

func (m *mockHistory) List(_ context.Context, filter domain.RunFilter) ([]domain.RunSummary, error) {
	m.filter = filter
	if m.err != nil {
		return nil, m.err
	}
	return []domain.RunSummary{{
		ID:        "run-1",
		Region:    "r1",
		Mode:      domain.ModeQualityFirst,
		State:     domain.StateRegenerationDone,
		Success:   true,
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}, nil
}

func (m *mockHistory) Get(_ context.Context, id string) (*domain.RunMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RunMetadata{ID: id, Region: "r1", Mode: domain.ModeStandard, State: domain.StateStandardDone, Success: true}, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	statistics *mockStatistics
	density    *mockDensity
	mask       *mockMask
	vectorize  *mockVectorize
	crop       *mockCrop
	clean      *mockClean
	regenerate *mockRegenerate
	pipeline   *mockPipeline
	history    *mockHistory
}

// setupTestServices installs mocks and returns them with a restore func.
func setupTestServices() (*testServices, func()) {
	saved := Services{
		Statistics: statisticsService,
		Density:    densityService,
		Mask:       maskService,
		Vectorize:  vectorizeService,
		Crop:       cropService,
		Clean:      cleanService,
		Regenerate: regenerateService,
		Pipeline:   qualityPipeline,
		History:    runHistory,
		Settings:   appSettings,
		ConfigPath: appConfigPath,
		RasterExt:  rasterExt,
	}

	ts := &testServices{
		statistics: &mockStatistics{},
		density:    &mockDensity{},
		mask:       &mockMask{},
		vectorize:  &mockVectorize{},
		crop:       &mockCrop{},
		clean:      &mockClean{},
		regenerate: &mockRegenerate{},
		pipeline:   &mockPipeline{},
		history:    &mockHistory{},
	}
	SetServices(Services{
		Statistics: ts.statistics,
		Density:    ts.density,
		Mask:       ts.mask,
		Vectorize:  ts.vectorize,
		Crop:       ts.crop,
		Clean:      ts.clean,
		Regenerate: ts.regenerate,
		Pipeline:   ts.pipeline,
		History:    ts.history,
		Settings:   domain.DefaultSettings(),
		ConfigPath: "/home/test/.lidarqc/config.toml",
		RasterExt:  ".tif",
	})
	return ts, func() { SetServices(saved) }
}

// executeCommand runs the root command with args and resets every flag
// afterwards so tests do not leak state into each other.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
