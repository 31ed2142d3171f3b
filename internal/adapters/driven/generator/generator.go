// Package generator runs configured external commands that produce
// terrain derivatives such as DTM, hillshade and slope rasters.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/process"
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
)

// Ensure Command implements the interface.
var _ driven.DerivativeGenerator = (*Command)(nil)

// Command is a generator backed by a command template. Arguments may
// contain {input}, {output}, {region} and {resolution}.
type Command struct {
	typ      domain.RasterType
	source   string
	template []string
	runner   process.Runner
}

// NewCommand creates a command generator.
func NewCommand(t domain.RasterType, cfg domain.GeneratorSettings, runner process.Runner) (*Command, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("%w: generator %s has no command", domain.ErrInvalidInput, t)
	}
	source := cfg.Source
	if source == "" {
		source = domain.GeneratorSourcePointCloud
	}
	return &Command{typ: t, source: source, template: cfg.Command, runner: runner}, nil
}

// Type returns the derivative type.
func (c *Command) Type() domain.RasterType { return c.typ }

// Source returns where the generator reads from.
func (c *Command) Source() string { return c.source }

// OutputPath returns <dir>/<region>_<type>.tif.
func OutputPath(dir, region string, t domain.RasterType) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.tif", region, t))
}

// Generate runs the command and checks it produced the output file.
func (c *Command) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	input := req.PointCloud
	if c.source == domain.GeneratorSourceDTM {
		input = req.DTM
	}
	if input == "" {
		return "", fmt.Errorf("%w: %s generator needs a %s input", domain.ErrInvalidInput, c.typ, c.source)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", err
	}
	output := OutputPath(req.OutputDir, req.Region, c.typ)

	repl := strings.NewReplacer(
		"{input}", input,
		"{output}", output,
		"{region}", req.Region,
		"{resolution}", strconv.FormatFloat(req.Resolution, 'g', -1, 64),
	)
	args := make([]string, len(c.template))
	for i, a := range c.template {
		args[i] = repl.Replace(a)
	}

	if _, err := c.runner.Run(ctx, process.Command{
		Path:      args[0],
		Args:      args[1:],
		Operation: "generate " + string(c.typ),
	}); err != nil {
		return "", err
	}
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("%w: %s generator wrote no %s", domain.ErrEngineExecutionFailed, c.typ, output)
	}
	return output, nil
}
