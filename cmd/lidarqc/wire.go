package main

import (
	"fmt"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/generator"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/maskmath"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/pointcloud/native"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/pointcloud/pdal"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/ascgrid"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/raster/gdal"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/render/plotpng"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lidarqc/internal/adapters/driven/vector"
	"github.com/custodia-labs/lidarqc/internal/adapters/driving/cli"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/core/services"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// lookupFunc reports whether an executable is on PATH.
type lookupFunc func(name string) bool

var available lookupFunc = process.Available

// application owns the adapters built during bootstrap.
type application struct {
	lookup lookupFunc
	closer func() error
}

func (a *application) bootstrap(opts cli.Options) (cli.Services, error) {
	store, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return cli.Services{}, err
	}
	settings, err := store.Load()
	if err != nil {
		return cli.Services{}, err
	}

	runner := process.NewExecRunner()
	raster, err := selectRaster(settings.Engines, runner, a.lookup)
	if err != nil {
		return cli.Services{}, err
	}
	pointcloud, err := selectPointCloud(settings.Engines, runner, raster, a.lookup)
	if err != nil {
		return cli.Services{}, err
	}
	strategy, err := maskmath.Select(settings.Mask.Strategy, raster)
	if err != nil {
		return cli.Services{}, err
	}
	generators, err := generator.NewRegistry(settings.Generators, runner)
	if err != nil {
		return cli.Services{}, err
	}
	history := a.openHistory(settings.Output.HistoryDB)

	renderer := plotpng.New()
	t := settings.Timeouts
	statistics := services.NewStatisticsService(pointcloud, t.Query.Std())
	pipeline := services.PipelineServices{
		Statistics: statistics,
		Density:    services.NewDensityService(pointcloud, raster, renderer, t),
		Mask:       services.NewMaskService(raster, strategy, renderer, t.RasterAlgebra.Std()),
		Vectorize:  services.NewVectorizeService(raster, vector.NewRegistry()),
		Crop:       services.NewCropService(pointcloud, statistics, t.Crop.Std(), settings.Crop.StrictGeometry),
		Clean:      services.NewCleanService(raster, float64(settings.Density.NoData), t.RasterAlgebra.Std()),
		Regenerate: services.NewRegenerateService(generators, t.Generator.Std()),
	}

	logger.Debug("engines: pointcloud=%s raster=%s mask=%s", pointcloud.Name(), raster.Name(), strategy.Method())

	return cli.Services{
		Statistics: pipeline.Statistics,
		Density:    pipeline.Density,
		Mask:       pipeline.Mask,
		Vectorize:  pipeline.Vectorize,
		Crop:       pipeline.Crop,
		Clean:      pipeline.Clean,
		Regenerate: pipeline.Regenerate,
		Pipeline:   services.NewOrchestrator(pipeline, history, raster.DefaultExtension(), settings.Crop.OutputExtension),
		History:    services.NewRunHistoryService(history),
		Settings:   settings,
		ConfigPath: store.Path(),
		RasterExt:  raster.DefaultExtension(),
	}, nil
}

// openHistory opens the SQLite run history. When the database cannot be
// opened runs are kept in memory for the life of the process.
func (a *application) openHistory(path string) driven.RunStore {
	db, err := sqlite.NewStore(path)
	if err != nil {
		logger.Warn("run history unavailable, keeping runs in memory: %v", err)
		return memory.NewRunStore()
	}
	a.closer = db.Close
	return db
}

// Close releases the run history database.
func (a *application) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}

func selectRaster(cfg domain.EngineSettings, runner process.Runner, lookup lookupFunc) (driven.RasterEngine, error) {
	bin := gdal.Binaries{
		Info:      cfg.GDALInfoPath,
		Translate: cfg.GDALTranslatePath,
		Calc:      cfg.GDALCalcPath,
		BuildVRT:  cfg.GDALBuildVRTPath,
	}
	switch cfg.Raster {
	case domain.EngineGDAL:
		if !lookup(orDefault(bin.Info, "gdalinfo")) {
			return nil, fmt.Errorf("%w: gdalinfo not found on PATH", domain.ErrEngineUnavailable)
		}
		return gdal.New(runner, bin), nil
	case domain.EngineNative:
		return ascgrid.New(), nil
	}
	if lookup(orDefault(bin.Info, "gdalinfo")) && lookup(orDefault(bin.Translate, "gdal_translate")) {
		return gdal.New(runner, bin), nil
	}
	logger.Warn("%v: GDAL not found, using the built-in ASCII grid engine", domain.ErrDegradedCapability)
	return ascgrid.New(), nil
}

func selectPointCloud(cfg domain.EngineSettings, runner process.Runner, raster driven.RasterEngine, lookup lookupFunc) (driven.PointCloudEngine, error) {
	binary := orDefault(cfg.PDALPath, "pdal")
	switch cfg.PointCloud {
	case domain.EnginePDAL:
		if !lookup(binary) {
			return nil, fmt.Errorf("%w: %s not found on PATH", domain.ErrEngineUnavailable, binary)
		}
		return pdal.New(runner, binary), nil
	case domain.EngineNative:
		return native.New(raster), nil
	}
	if lookup(binary) {
		return pdal.New(runner, binary), nil
	}
	logger.Warn("%v: PDAL not found, using the built-in text point cloud reader", domain.ErrDegradedCapability)
	return native.New(raster), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
