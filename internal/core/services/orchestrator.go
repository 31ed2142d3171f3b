package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.QualityPipeline = (*Orchestrator)(nil)

// PipelineServices are the stage services an orchestrator sequences.
type PipelineServices struct {
	Statistics driving.StatisticsService
	Density    driving.DensityService
	Mask       driving.MaskService
	Vectorize  driving.VectorizeService
	Crop       driving.CropService
	Clean      driving.CleanService
	Regenerate driving.RegenerateService
}

// Orchestrator runs the standard and quality-first workflows for one
// region at a time.
type Orchestrator struct {
	svc       PipelineServices
	store     driven.RunStore
	rasterExt string
	cropExt   string

	newID func() string
	now   func() time.Time
}

// NewOrchestrator creates an orchestrator. store may be nil, in which
// case runs are only written as JSON next to the region outputs.
// rasterExt is the raster engine's extension; cropExt is used for
// cropped LAS-family clouds.
func NewOrchestrator(svc PipelineServices, store driven.RunStore, rasterExt, cropExt string) *Orchestrator {
	if cropExt == "" {
		cropExt = ".laz"
	}
	return &Orchestrator{
		svc:       svc,
		store:     store,
		rasterExt: rasterExt,
		cropExt:   cropExt,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Run executes the workflow and returns the sealed run record.
func (o *Orchestrator) Run(ctx context.Context, req domain.QualityRequest) *domain.RunMetadata {
	run := domain.NewRunMetadata(o.newID(), req, o.now())
	if err := req.Validate(); err != nil {
		logger.Error("pipeline: %v", err)
		_ = run.Warn(err.Error())
		o.finish(ctx, run, nil, domain.StateFailed, false)
		return run
	}

	layout := domain.NewRegionLayout(req.OutputRoot, req.Region).WithRasterExt(o.rasterExt)
	state, success := o.execute(ctx, req, run, layout)
	o.finish(ctx, run, &layout, state, success)
	return run
}

// execute runs the stages and returns the terminal state.
func (o *Orchestrator) execute(ctx context.Context, req domain.QualityRequest, run *domain.RunMetadata, layout domain.RegionLayout) (domain.PipelineState, bool) {
	p := req.Parameters
	logger.Info("pipeline: %s for region %s", req.Mode.Description(), req.Region)

	logger.Section("statistics")
	err := o.stage(run, domain.StageStatistics, func() (bool, []string, error) {
		info, err := o.svc.Statistics.Info(ctx, req.InputPath)
		if err != nil {
			return false, nil, err
		}
		run.Input = info
		return false, nil, nil
	})
	if errors.Is(err, domain.ErrInputNotFound) {
		return domain.StateFailed, false
	}

	logger.Section("density")
	var density *domain.DensityRaster
	err = o.stage(run, domain.StageDensity, func() (bool, []string, error) {
		d, err := o.svc.Density.Generate(ctx, driving.DensityRequest{
			Cloud:        domain.PointCloudFile{Path: req.InputPath},
			OutputPath:   layout.DensityPath(),
			PreviewPath:  layout.DensityPreviewPath(),
			MetadataPath: layout.DensityMetadataPath(),
			Resolution:   p.Resolution,
			NoData:       p.NoData,
			Force:        p.Force,
		})
		if err != nil {
			return false, nil, err
		}
		density = d
		run.Density = d
		var warnings []string
		if d.Stats.ValidCount == 0 {
			warnings = append(warnings, "density raster has no valid cells")
		}
		return d.Cached, warnings, nil
	})
	if err != nil {
		return domain.StateFailed, false
	}
	_ = run.Transition(domain.StateDensityComputed)
	if density.IsEmpty() {
		_ = run.Warn("density raster has no cells, nothing to mask")
		return domain.StateDegraded, true
	}

	logger.Section("mask")
	var mask *domain.BinaryMask
	err = o.stage(run, domain.StageMask, func() (bool, []string, error) {
		m, err := o.svc.Mask.Generate(ctx, driving.MaskRequest{
			Density:     density,
			OutputPath:  layout.MaskPath(),
			PreviewPath: layout.MaskPreviewPath(),
			Threshold:   p.Threshold,
			Force:       p.Force,
		})
		if err != nil {
			return false, nil, err
		}
		mask = m
		run.Mask = m
		var warnings []string
		if m.Stats.Method == domain.MaskMethodFallback {
			warnings = append(warnings, fmt.Sprintf("%v: mask computed with raster algebra", domain.ErrDegradedCapability))
		}
		if m.Stats.ValidPixels == 0 {
			warnings = append(warnings, fmt.Sprintf("mask has 0%% coverage at threshold %g", p.Threshold))
		}
		return m.Cached, warnings, nil
	})
	if err != nil {
		return domain.StateFailed, false
	}
	_ = run.Transition(domain.StateMaskComputed)

	if req.Mode == domain.ModeStandard {
		return o.standard(ctx, run, layout, mask)
	}
	return o.qualityFirst(ctx, req, run, layout, mask)
}

// standard masks the derivatives already present in the region tree.
func (o *Orchestrator) standard(ctx context.Context, run *domain.RunMetadata, layout domain.RegionLayout, mask *domain.BinaryMask) (domain.PipelineState, bool) {
	_ = run.Record(domain.StageResult{Stage: domain.StageVectorize, Skipped: true, Success: true, StartedAt: o.now()})

	logger.Section("clean")
	err := o.stage(run, domain.StageClean, func() (bool, []string, error) {
		report, err := o.svc.Clean.CleanBatch(ctx, layout.RegionDir(), mask.Path)
		if err != nil {
			return false, nil, err
		}
		run.Cleaning = report
		var warnings []string
		if report.Processed == 0 {
			warnings = append(warnings, "no derivative rasters found to clean")
		}
		for _, r := range report.Results {
			if !r.Success {
				warnings = append(warnings, fmt.Sprintf("clean %s: %s", filepath.Base(r.InputPath), r.Error))
			}
		}
		return false, warnings, nil
	})
	if err != nil {
		return domain.StateFailed, false
	}
	return domain.StateStandardDone, true
}

// qualityFirst crops artifact points and regenerates derivatives.
func (o *Orchestrator) qualityFirst(ctx context.Context, req domain.QualityRequest, run *domain.RunMetadata, layout domain.RegionLayout, mask *domain.BinaryMask) (domain.PipelineState, bool) {
	p := req.Parameters

	logger.Section("vectorize")
	var footprint *domain.Footprint
	err := o.stage(run, domain.StageVectorize, func() (bool, []string, error) {
		fp, err := o.svc.Vectorize.Vectorize(ctx, driving.VectorizeRequest{
			Mask:              mask,
			SimplifyTolerance: p.SimplifyTolerance,
			MinArea:           p.MinArea,
			OutputPath:        layout.FootprintPath(""),
			Format:            p.VectorFormat,
		})
		if err != nil {
			return false, nil, err
		}
		footprint = fp
		run.Footprint = fp
		return false, nil, nil
	})
	if err != nil {
		return domain.StateFailed, false
	}
	_ = run.Transition(domain.StatePolygonComputed)
	if footprint.IsEmpty() {
		_ = run.Warn(fmt.Sprintf("%v: no valid region survived vectorisation, cloud not cropped", domain.ErrEmptyFootprint))
		return domain.StateDegraded, true
	}

	logger.Section("crop")
	ext := o.cropExt
	if in := filepath.Ext(req.InputPath); domain.IsTextCloudExtension(in) {
		ext = in
	}
	var cropped *domain.CroppedPointCloud
	err = o.stage(run, domain.StageCrop, func() (bool, []string, error) {
		c, err := o.svc.Crop.Crop(ctx, driving.CropRequest{
			Cloud:      domain.PointCloudFile{Path: req.InputPath},
			Geometry:   domain.CropGeometry{Footprint: footprint},
			Mode:       p.CropMode,
			OutputPath: layout.CroppedPath(ext),
			Force:      p.Force,
		})
		if err != nil {
			return false, nil, err
		}
		cropped = c
		run.Crop = c
		return c.Cached, c.Notes, nil
	})
	if err != nil {
		_ = run.Warn("crop failed, derivatives not regenerated")
		return domain.StateDegraded, true
	}
	_ = run.Transition(domain.StateCropped)

	if !p.Regenerate {
		_ = run.Record(domain.StageResult{Stage: domain.StageRegenerate, Skipped: true, Success: true, StartedAt: o.now()})
		return domain.StateRegenerationSkipped, true
	}

	logger.Section("regenerate")
	success := true
	_ = o.stage(run, domain.StageRegenerate, func() (bool, []string, error) {
		report := o.svc.Regenerate.Regenerate(ctx, driving.RegenerateRequest{
			Region:     req.Region,
			CloudPath:  cropped.Path,
			Types:      p.RegenerateTypes,
			OutputDir:  layout.CleanRastersDir(),
			Resolution: p.Resolution,
		})
		run.Regeneration = report
		var warnings []string
		for _, r := range report.Results {
			if !r.Success {
				warnings = append(warnings, fmt.Sprintf("regenerate %s: %s", r.Type, r.Error))
			}
		}
		if len(report.Results) > 0 && report.Succeeded() == 0 {
			success = false
			return false, warnings, errors.New("no derivative could be regenerated")
		}
		return false, warnings, nil
	})
	return domain.StateRegenerationDone, success
}

// stage times fn and records its outcome. Warnings are copied to the run.
func (o *Orchestrator) stage(run *domain.RunMetadata, name domain.StageName, fn func() (cached bool, warnings []string, err error)) error {
	start := o.now()
	cached, warnings, err := fn()
	res := domain.StageResult{
		Stage:      name,
		Success:    err == nil,
		Cached:     cached,
		Warnings:   warnings,
		StartedAt:  start,
		DurationMS: o.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
		logger.Error("%s: %v", name, err)
	}
	_ = run.Record(res)
	for _, w := range warnings {
		logger.Warn("%s: %s", name, w)
		_ = run.Warn(fmt.Sprintf("%s: %s", name, w))
	}
	return err
}

// finish seals the run and persists it. Persistence failures are logged
// and never change the outcome.
func (o *Orchestrator) finish(ctx context.Context, run *domain.RunMetadata, layout *domain.RegionLayout, state domain.PipelineState, success bool) {
	if layout != nil {
		run.MetadataPath = layout.RunMetadataPath(run.Mode)
	}
	_ = run.Finish(state, success, o.now())
	logger.Info("pipeline: %s finished in state %s (success=%t)", run.ID, run.State, run.Success)

	if run.MetadataPath != "" {
		if err := writeJSON(run.MetadataPath, run); err != nil {
			logger.Error("pipeline: write %s: %v", run.MetadataPath, err)
		}
	}
	if o.store != nil {
		if err := o.store.Save(ctx, run); err != nil {
			logger.Error("pipeline: save run %s: %v", run.ID, err)
		}
	}
}
