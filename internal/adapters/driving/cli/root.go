// Package cli implements the lidarqc command line interface with cobra.
// Commands talk to the core only through driving ports; the concrete
// services are injected by cmd/lidarqc through SetServices or a
// Bootstrap hook that runs once flags are parsed.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

var version = "dev"

// Global flags.
var (
	configFile  string
	verbose     bool
	outputRoot  string
	forceStages bool
)

// Injected services. Nil services make their commands fail with
// domain.ErrNotImplemented.
var (
	statisticsService driving.StatisticsService
	densityService    driving.DensityService
	maskService       driving.MaskService
	vectorizeService  driving.VectorizeService
	cropService       driving.CropService
	cleanService      driving.CleanService
	regenerateService driving.RegenerateService
	qualityPipeline   driving.QualityPipeline
	runHistory        driving.RunHistory

	appSettings   = domain.DefaultSettings()
	appConfigPath string
	rasterExt     = ".tif"
	cropExt       = ".laz"
)

// Services holds everything the commands need.
type Services struct {
	Statistics driving.StatisticsService
	Density    driving.DensityService
	Mask       driving.MaskService
	Vectorize  driving.VectorizeService
	Crop       driving.CropService
	Clean      driving.CleanService
	Regenerate driving.RegenerateService
	Pipeline   driving.QualityPipeline
	History    driving.RunHistory

	Settings   domain.Settings
	ConfigPath string

	// RasterExt is the raster engine's output extension, e.g. ".tif".
	RasterExt string
}

// Options are the global flag values handed to a Bootstrap.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Bootstrap builds the services once global flags are known.
type Bootstrap func(opts Options) (Services, error)

var bootstrap Bootstrap

// skipBootstrap marks commands that never touch the services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "lidarqc",
	Short: "Lidar point cloud quality pipeline",
	Long: `lidarqc finds low-density artifacts in lidar point clouds and removes
them, either by masking derived rasters (standard mode) or by cropping the
cloud to its valid footprint and regenerating the rasters (quality-first mode).

Outputs are written under <output-root>/<region>/lidar/.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ~/.lidarqc/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "print stage progress and debug output")
	flags.StringVarP(&outputRoot, "output-root", "o", "", "output root directory (overrides output.root)")
	flags.BoolVar(&forceStages, "force", false, "recompute stages even when outputs are up to date")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	statisticsService = s.Statistics
	densityService = s.Density
	maskService = s.Mask
	vectorizeService = s.Vectorize
	cropService = s.Crop
	cleanService = s.Clean
	regenerateService = s.Regenerate
	qualityPipeline = s.Pipeline
	runHistory = s.History
	appSettings = s.Settings
	appConfigPath = s.ConfigPath
	rasterExt = s.RasterExt
	if rasterExt == "" {
		rasterExt = ".tif"
	}
	cropExt = s.Settings.Crop.OutputExtension
	if cropExt == "" {
		cropExt = ".laz"
	}
}

// SetBootstrap registers the hook that wires services after flag parsing.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command. Cancelling ctx stops running stages.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipBootstrap]; ok {
			return nil
		}
	}
	svc, err := bootstrap(Options{ConfigPath: configFile, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(svc)
	return nil
}

// resolvedOutputRoot returns --output-root or the configured root.
func resolvedOutputRoot() string {
	if outputRoot != "" {
		return outputRoot
	}
	if appSettings.Output.Root != "" {
		return appSettings.Output.Root
	}
	return "output"
}

// layoutFor returns the output tree of a region.
func layoutFor(region string) domain.RegionLayout {
	return domain.NewRegionLayout(resolvedOutputRoot(), region).WithRasterExt(rasterExt)
}

// notConfigured reports a missing service.
func notConfigured(name string) error {
	return fmt.Errorf("%s service not configured: %w", name, domain.ErrNotImplemented)
}

// ExitCode maps an error from Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInputNotFound):
		return 2
	default:
		return 1
	}
}
