package domain

import (
	"errors"
	"fmt"
	"time"
)

// Engine backend selectors.
const (
	EngineAuto   = "auto"
	EnginePDAL   = "pdal"
	EngineGDAL   = "gdal"
	EngineNative = "native"
)

// Mask strategy selectors.
const (
	MaskStrategyAuto  = "auto"
	MaskStrategyArray = "array"
	MaskStrategyCalc  = "calc"
)

// Vector output formats.
const (
	VectorGeoJSON   = "geojson"
	VectorShapefile = "shapefile"
	VectorWKT       = "wkt"
)

// Generator input sources.
const (
	GeneratorSourcePointCloud = "pointcloud"
	GeneratorSourceDTM        = "dtm"
)

// Duration is a time.Duration that reads and writes "30s"-style text.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Settings is the complete application configuration.
type Settings struct {
	Engines    EngineSettings               `toml:"engines"`
	Timeouts   TimeoutSettings              `toml:"timeouts"`
	Density    DensitySettings              `toml:"density"`
	Mask       MaskSettings                 `toml:"mask"`
	Vector     VectorSettings               `toml:"vector"`
	Crop       CropSettings                 `toml:"crop"`
	Output     OutputSettings               `toml:"output"`
	Regenerate RegenerateSettings           `toml:"regenerate"`
	Generators map[string]GeneratorSettings `toml:"generators"`
}

// EngineSettings selects and locates the external engines.
type EngineSettings struct {
	PointCloud        string `toml:"pointcloud"`
	Raster            string `toml:"raster"`
	PDALPath          string `toml:"pdal_path"`
	GDALInfoPath      string `toml:"gdalinfo_path"`
	GDALTranslatePath string `toml:"gdal_translate_path"`
	GDALCalcPath      string `toml:"gdal_calc_path"`
	GDALBuildVRTPath  string `toml:"gdalbuildvrt_path"`
}

// TimeoutSettings bound each class of engine call.
type TimeoutSettings struct {
	Query         Duration `toml:"query"`
	RasterAlgebra Duration `toml:"raster_algebra"`
	Density       Duration `toml:"density"`
	Crop          Duration `toml:"crop"`
	Generator     Duration `toml:"generator"`
}

// DensitySettings configure density raster generation.
type DensitySettings struct {
	Resolution float64 `toml:"resolution"`
	NoData     int     `toml:"nodata"`
}

// MaskSettings configure mask thresholding.
type MaskSettings struct {
	Threshold float64 `toml:"threshold"`
	Strategy  string  `toml:"strategy"`
}

// VectorSettings configure footprint vectorisation.
type VectorSettings struct {
	SimplifyTolerance float64 `toml:"simplify_tolerance"`
	MinArea           float64 `toml:"min_area"`
	Format            string  `toml:"format"`
}

// CropSettings configure point cloud cropping.
type CropSettings struct {
	Mode            CropMode `toml:"mode"`
	OutputExtension string   `toml:"output_extension"`
	StrictGeometry  bool     `toml:"strict_geometry"`
}

// OutputSettings locate outputs and run history.
type OutputSettings struct {
	Root      string `toml:"root"`
	HistoryDB string `toml:"history_db"`
}

// RegenerateSettings control derivative regeneration in quality-first mode.
type RegenerateSettings struct {
	Enabled bool     `toml:"enabled"`
	Types   []string `toml:"types"`
}

// GeneratorSettings describe an external derivative generator command.
// Command arguments may contain {input}, {output}, {region} and {resolution}.
type GeneratorSettings struct {
	Command []string `toml:"command"`
	Source  string   `toml:"source"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Engines: EngineSettings{
			PointCloud:        EngineAuto,
			Raster:            EngineAuto,
			PDALPath:          "pdal",
			GDALInfoPath:      "gdalinfo",
			GDALTranslatePath: "gdal_translate",
			GDALCalcPath:      "gdal_calc.py",
			GDALBuildVRTPath:  "gdalbuildvrt",
		},
		Timeouts: TimeoutSettings{
			Query:         Duration(30 * time.Second),
			RasterAlgebra: Duration(120 * time.Second),
			Density:       Duration(300 * time.Second),
			Crop:          Duration(600 * time.Second),
			Generator:     Duration(600 * time.Second),
		},
		Density: DensitySettings{Resolution: 1.0, NoData: -9999},
		Mask:    MaskSettings{Threshold: 1.0, Strategy: MaskStrategyAuto},
		Vector: VectorSettings{
			SimplifyTolerance: 0.5,
			MinArea:           10.0,
			Format:            VectorGeoJSON,
		},
		Crop:       CropSettings{Mode: CropInside, OutputExtension: ".laz"},
		Output:     OutputSettings{Root: "output"},
		Regenerate: RegenerateSettings{Enabled: true, Types: []string{"DTM", "Hillshade", "Slope"}},
		Generators: DefaultGenerators(),
	}
}

// DefaultGenerators returns command templates for the standard derivatives.
func DefaultGenerators() map[string]GeneratorSettings {
	gdaldem := func(mode string) GeneratorSettings {
		return GeneratorSettings{
			Command: []string{"gdaldem", mode, "{input}", "{output}", "-compute_edges"},
			Source:  GeneratorSourceDTM,
		}
	}
	return map[string]GeneratorSettings{
		string(RasterDTM): {
			Command: []string{
				"pdal", "translate", "{input}", "{output}", "range",
				"--filters.range.limits=Classification[2:2]",
				"--writers.gdal.resolution={resolution}",
				"--writers.gdal.output_type=idw",
			},
			Source: GeneratorSourcePointCloud,
		},
		string(RasterDSM): {
			Command: []string{
				"pdal", "translate", "{input}", "{output}",
				"--writers.gdal.resolution={resolution}",
				"--writers.gdal.output_type=max",
			},
			Source: GeneratorSourcePointCloud,
		},
		string(RasterHillshade): gdaldem("hillshade"),
		string(RasterSlope):     gdaldem("slope"),
		string(RasterAspect):    gdaldem("aspect"),
		string(RasterRoughness): gdaldem("roughness"),
		string(RasterTRI):       gdaldem("TRI"),
		string(RasterTPI):       gdaldem("TPI"),
	}
}

// RegenerateTypes parses the configured regeneration types.
func (s Settings) RegenerateTypes() ([]RasterType, error) {
	types := make([]RasterType, 0, len(s.Regenerate.Types))
	for _, name := range s.Regenerate.Types {
		t, err := ParseRasterType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return SortRasterTypes(types), nil
}

// Validate checks the settings for out-of-range values.
func (s Settings) Validate() error {
	var errs []error
	switch s.Engines.PointCloud {
	case EngineAuto, EnginePDAL, EngineNative:
	default:
		errs = append(errs, fmt.Errorf("engines.pointcloud: unknown engine %q", s.Engines.PointCloud))
	}
	switch s.Engines.Raster {
	case EngineAuto, EngineGDAL, EngineNative:
	default:
		errs = append(errs, fmt.Errorf("engines.raster: unknown engine %q", s.Engines.Raster))
	}
	for name, d := range map[string]Duration{
		"query":          s.Timeouts.Query,
		"raster_algebra": s.Timeouts.RasterAlgebra,
		"density":        s.Timeouts.Density,
		"crop":           s.Timeouts.Crop,
		"generator":      s.Timeouts.Generator,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive", name))
		}
	}
	if s.Density.Resolution <= 0 {
		errs = append(errs, errors.New("density.resolution must be > 0"))
	}
	if s.Mask.Threshold < 0 {
		errs = append(errs, errors.New("mask.threshold must be >= 0"))
	}
	switch s.Mask.Strategy {
	case MaskStrategyAuto, MaskStrategyArray, MaskStrategyCalc:
	default:
		errs = append(errs, fmt.Errorf("mask.strategy: unknown strategy %q", s.Mask.Strategy))
	}
	if s.Vector.SimplifyTolerance < 0 || s.Vector.MinArea < 0 {
		errs = append(errs, errors.New("vector.simplify_tolerance and vector.min_area must be >= 0"))
	}
	switch s.Vector.Format {
	case VectorGeoJSON, VectorShapefile, VectorWKT:
	default:
		errs = append(errs, fmt.Errorf("vector.format: unknown format %q", s.Vector.Format))
	}
	if !s.Crop.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("crop.mode: unknown mode %q", s.Crop.Mode))
	}
	if _, err := s.RegenerateTypes(); err != nil {
		errs = append(errs, fmt.Errorf("regenerate.types: %w", err))
	}
	for name, g := range s.Generators {
		if len(g.Command) == 0 {
			errs = append(errs, fmt.Errorf("generators.%s: command is empty", name))
		}
		if g.Source != "" && g.Source != GeneratorSourcePointCloud && g.Source != GeneratorSourceDTM {
			errs = append(errs, fmt.Errorf("generators.%s: unknown source %q", name, g.Source))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
