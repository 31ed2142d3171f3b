package domain

import (
	"path/filepath"
	"strings"
)

// RegionLayout resolves the per-region output tree:
//
//	<root>/<region>/lidar/density/<region>_density.<ext>
//	<root>/<region>/lidar/density/masks/<region>_valid_mask.<ext>
//	<root>/<region>/lidar/vectors/<region>_valid_footprint.<ext>
//	<root>/<region>/lidar/density/cropped/<region>_cropped.<ext>
//	<root>/<region>/lidar/clean_rasters/
//	<root>/<region>/lidar/<region>_<mode>_mode_metadata.json
type RegionLayout struct {
	Root   string
	Region string

	// RasterExt is the extension of rasters written by the raster engine.
	RasterExt string
}

// NewRegionLayout returns a layout with GeoTIFF rasters.
func NewRegionLayout(root, region string) RegionLayout {
	return RegionLayout{Root: root, Region: region, RasterExt: ".tif"}
}

// WithRasterExt returns a copy using a different raster extension.
func (l RegionLayout) WithRasterExt(ext string) RegionLayout {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	l.RasterExt = ext
	return l
}

func (l RegionLayout) ext() string {
	if l.RasterExt == "" {
		return ".tif"
	}
	return l.RasterExt
}

// RegionDir returns <root>/<region>.
func (l RegionLayout) RegionDir() string {
	return filepath.Join(l.Root, l.Region)
}

// LidarDir returns <root>/<region>/lidar.
func (l RegionLayout) LidarDir() string {
	return filepath.Join(l.RegionDir(), "lidar")
}

// DensityDir returns the density output directory.
func (l RegionLayout) DensityDir() string {
	return filepath.Join(l.LidarDir(), "density")
}

// DensityPath returns the density raster path.
func (l RegionLayout) DensityPath() string {
	return filepath.Join(l.DensityDir(), l.Region+"_density"+l.ext())
}

// DensityPreviewPath returns the density PNG path.
func (l RegionLayout) DensityPreviewPath() string {
	return filepath.Join(l.DensityDir(), l.Region+"_density.png")
}

// DensityMetadataPath returns the density statistics sidecar path.
func (l RegionLayout) DensityMetadataPath() string {
	return filepath.Join(l.DensityDir(), l.Region+"_density_metadata.json")
}

// MaskDir returns the mask output directory.
func (l RegionLayout) MaskDir() string {
	return filepath.Join(l.DensityDir(), "masks")
}

// MaskPath returns the binary mask raster path.
func (l RegionLayout) MaskPath() string {
	return filepath.Join(l.MaskDir(), l.Region+"_valid_mask"+l.ext())
}

// MaskPreviewPath returns the mask PNG path.
func (l RegionLayout) MaskPreviewPath() string {
	return filepath.Join(l.MaskDir(), l.Region+"_valid_mask.png")
}

// VectorDir returns the footprint output directory.
func (l RegionLayout) VectorDir() string {
	return filepath.Join(l.LidarDir(), "vectors")
}

// FootprintPath returns the footprint path for a vector extension.
func (l RegionLayout) FootprintPath(ext string) string {
	return filepath.Join(l.VectorDir(), l.Region+"_valid_footprint"+ext)
}

// CroppedDir returns the cropped cloud directory.
func (l RegionLayout) CroppedDir() string {
	return filepath.Join(l.DensityDir(), "cropped")
}

// CroppedPath returns the cropped cloud path for a cloud extension.
func (l RegionLayout) CroppedPath(ext string) string {
	return filepath.Join(l.CroppedDir(), l.Region+"_cropped"+ext)
}

// CleanRastersDir returns the directory for regenerated derivatives.
func (l RegionLayout) CleanRastersDir() string {
	return filepath.Join(l.LidarDir(), "clean_rasters")
}

// RunMetadataPath returns the run summary path for a mode.
func (l RegionLayout) RunMetadataPath(mode PipelineMode) string {
	name := "standard"
	if mode == ModeQualityFirst {
		name = "quality"
	}
	return filepath.Join(l.LidarDir(), l.Region+"_"+name+"_mode_metadata.json")
}

// CleanedDir is the sibling directory cleaned copies are written to.
const CleanedDir = "cleaned"

// CleanedPath returns the cleaned sibling path of a raster.
func CleanedPath(raster string) string {
	return filepath.Join(filepath.Dir(raster), CleanedDir, filepath.Base(raster))
}
