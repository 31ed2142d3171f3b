package services

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driven"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// CacheKey is the evidence used to reuse a stage output.
type CacheKey struct {
	InputModTime  time.Time
	OutputModTime time.Time
	Valid         bool
}

// Fresh reports whether the output is newer than its input and passed
// its structural check.
func (k CacheKey) Fresh() bool {
	return k.Valid && k.OutputModTime.After(k.InputModTime)
}

// StageCache decides whether a stage can be skipped.
type StageCache struct {
	raster driven.RasterEngine
}

// NewStageCache creates a cache that validates rasters through raster.
func NewStageCache(raster driven.RasterEngine) *StageCache {
	return &StageCache{raster: raster}
}

// Key builds the cache key for output derived from input. validate runs
// only when both files exist.
func (c *StageCache) Key(input, output string, validate func() bool) CacheKey {
	in, err := os.Stat(input)
	if err != nil {
		return CacheKey{}
	}
	out, err := os.Stat(output)
	if err != nil || out.IsDir() || out.Size() == 0 {
		return CacheKey{InputModTime: in.ModTime()}
	}
	key := CacheKey{InputModTime: in.ModTime(), OutputModTime: out.ModTime()}
	if key.OutputModTime.After(key.InputModTime) {
		key.Valid = validate == nil || validate()
	}
	return key
}

// Raster returns the output's info when it is fresh, openable, has the
// expected band count and a numeric cell type.
func (c *StageCache) Raster(ctx context.Context, input, output string, bands int) (*domain.RasterInfo, bool) {
	var info *domain.RasterInfo
	key := c.Key(input, output, func() bool {
		i, err := c.raster.Info(ctx, output)
		if err != nil {
			logger.Debug("cache: %s is not readable: %v", output, err)
			return false
		}
		if i.BandCount != bands || !domain.IsNumericDataType(i.DataType) || i.Width*i.Height == 0 {
			logger.Debug("cache: %s has %d bands of %s", output, i.BandCount, i.DataType)
			return false
		}
		info = i
		return true
	})
	if !key.Fresh() {
		return nil, false
	}
	logger.Debug("cache: reusing %s", output)
	return info, true
}

// File reports whether a non-raster output is fresh and non-empty. The
// output must also be newer than every existing file in deps.
func (c *StageCache) File(input, output string, deps ...string) bool {
	key := c.Key(input, output, nil)
	if !key.Fresh() {
		return false
	}
	for _, dep := range deps {
		if dep == "" {
			continue
		}
		info, err := os.Stat(dep)
		if err != nil {
			continue
		}
		if !key.OutputModTime.After(info.ModTime()) {
			logger.Debug("cache: %s is older than %s", output, dep)
			return false
		}
	}
	return true
}

// ParamsPath is the sidecar recording the parameters output was built with.
func ParamsPath(output string) string {
	return output + ".params.json"
}

// Matches reports whether output was recorded with exactly params.
// A missing or unreadable sidecar never matches.
func (c *StageCache) Matches(output string, params any) bool {
	want, err := json.Marshal(params)
	if err != nil {
		return false
	}
	got, err := os.ReadFile(ParamsPath(output))
	if err != nil {
		return false
	}
	if !bytes.Equal(bytes.TrimSpace(got), want) {
		logger.Debug("cache: %s was built with %s", output, bytes.TrimSpace(got))
		return false
	}
	return true
}

// Record stores params next to output.
func (c *StageCache) Record(output string, params any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return os.WriteFile(ParamsPath(output), append(data, '\n'), 0o644)
}

// Forget drops the recorded params so a half-written output is never reused.
func (c *StageCache) Forget(output string) {
	if err := os.Remove(ParamsPath(output)); err != nil && !os.IsNotExist(err) {
		logger.Debug("cache: %v", err)
	}
}
