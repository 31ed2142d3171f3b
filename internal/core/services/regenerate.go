package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Ensure RegenerateService implements the interface.
var _ driving.RegenerateService = (*RegenerateService)(nil)

// RegenerateService rebuilds derivatives from a cleaned cloud.
type RegenerateService struct {
	generators driven.GeneratorRegistry
	timeout    time.Duration
}

// NewRegenerateService creates a regenerate service.
func NewRegenerateService(generators driven.GeneratorRegistry, timeout time.Duration) *RegenerateService {
	return &RegenerateService{generators: generators, timeout: timeout}
}

// Regenerate runs each requested generator. Generators reading a DTM
// receive the one produced earlier in the same call.
func (s *RegenerateService) Regenerate(ctx context.Context, req driving.RegenerateRequest) *domain.RegenerationReport {
	report := &domain.RegenerationReport{SourcePath: req.CloudPath, OutputDir: req.OutputDir}

	types := domain.SortRasterTypes(req.Types)
	if len(types) == 0 && s.generators != nil {
		types = s.generators.Types()
	}
	for _, t := range types {
		report.Results = append(report.Results, s.generate(ctx, req, t, report))
	}
	logger.Info("regenerate: %d of %d derivatives produced", report.Succeeded(), len(report.Results))
	return report
}

func (s *RegenerateService) generate(ctx context.Context, req driving.RegenerateRequest, t domain.RasterType, report *domain.RegenerationReport) domain.RegenerationResult {
	res := domain.RegenerationResult{Type: t}
	if s.generators == nil {
		res.Error = fmt.Sprintf("%v: no generators configured", domain.ErrEngineUnavailable)
		return res
	}
	gen, ok := s.generators.Get(t)
	if !ok {
		res.Error = fmt.Sprintf("%v: no generator for %s", domain.ErrEngineUnavailable, t)
		logger.Warn("regenerate: %s", res.Error)
		return res
	}

	gr := domain.GenerateRequest{
		Region:     req.Region,
		PointCloud: req.CloudPath,
		OutputDir:  req.OutputDir,
		Resolution: req.Resolution,
	}
	if gen.Source() == domain.GeneratorSourceDTM {
		dtm, ok := report.Output(domain.RasterDTM)
		if !ok {
			res.Error = fmt.Sprintf("%s needs a DTM and none was generated in this run", t)
			logger.Warn("regenerate: %s", res.Error)
			return res
		}
		gr.DTM = dtm
	}

	logger.Debug("regenerate: %s", t)
	genCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	out, err := gen.Generate(genCtx, gr)
	if err != nil {
		res.Error = err.Error()
		logger.Error("regenerate: %s failed: %v", t, err)
		return res
	}
	res.Success = true
	res.OutputPath = out
	return res
}
