package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

var (
	cropRegion    string
	cropInput     string
	cropFootprint string
	cropBBox      string
	cropMode      string
	cropOutput    string
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Crop a point cloud to the valid footprint or a bounding box",
	Long: `Writes a new point cloud holding only the points inside (or outside)
a geometry. The input cloud is never modified.

The geometry is the region's footprint unless --footprint or --bbox is
given. --bbox takes minx,miny,maxx,maxy.`,
	RunE: runCrop,
}

func init() {
	cropCmd.Flags().StringVarP(&cropRegion, "region", "r", "", "region name")
	cropCmd.Flags().StringVarP(&cropInput, "input", "i", "", "input point cloud")
	cropCmd.Flags().StringVar(&cropFootprint, "footprint", "", "footprint file (default: the region's footprint)")
	cropCmd.Flags().StringVar(&cropBBox, "bbox", "", "bounding box minx,miny,maxx,maxy")
	cropCmd.Flags().StringVar(&cropMode, "mode", "", "inside or outside (default from config)")
	cropCmd.Flags().StringVar(&cropOutput, "output", "", "output cloud (default: the region's cropped cloud)")
	_ = cropCmd.MarkFlagRequired("region")
	_ = cropCmd.MarkFlagRequired("input")
	cropCmd.MarkFlagsMutuallyExclusive("footprint", "bbox")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(cmd *cobra.Command, _ []string) error {
	if cropService == nil {
		return notConfigured("crop")
	}

	cloud, err := domain.OpenPointCloud(cropInput)
	if err != nil {
		return err
	}

	layout := layoutFor(cropRegion)
	req := driving.CropRequest{
		Cloud:      cloud,
		Mode:       appSettings.Crop.Mode,
		OutputPath: cropOutput,
		Force:      forceStages,
	}
	if cropMode != "" {
		req.Mode = domain.CropMode(cropMode)
	}
	if req.OutputPath == "" {
		req.OutputPath = layout.CroppedPath(croppedExtension(cloud))
	}

	req.Geometry, err = cropGeometry(layout)
	if err != nil {
		return err
	}

	out, err := cropService.Crop(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("crop failed: %w", err)
	}

	cmd.Printf("Cropped cloud: %s%s\n", out.Path, cachedSuffix(out.Cached))
	cmd.Printf("  Geometry: %s (%s)\n", out.GeometryKind, out.Mode)
	cmd.Printf("  Points: %d -> %d (%.2f%% retained)\n", out.PointsBefore, out.PointsAfter, out.RetentionPercent)
	for _, note := range out.Notes {
		cmd.Printf("  Warning: %s\n", note)
	}
	return nil
}

// croppedExtension keeps text clouds as text; LAS-family output uses
// the configured extension.
func croppedExtension(cloud domain.PointCloudFile) string {
	if ext := cloud.Extension(); domain.IsTextCloudExtension(ext) {
		return ext
	}
	return cropExt
}

func cropGeometry(layout domain.RegionLayout) (domain.CropGeometry, error) {
	if cropBBox != "" {
		box, err := parseBBox(cropBBox)
		if err != nil {
			return domain.CropGeometry{}, err
		}
		return domain.CropGeometry{BBox: &box}, nil
	}

	if vectorizeService == nil {
		return domain.CropGeometry{}, notConfigured("vectorize")
	}
	path := cropFootprint
	if path == "" {
		var err error
		path, err = findFootprint(layout)
		if err != nil {
			return domain.CropGeometry{}, err
		}
	}
	fp, err := vectorizeService.ReadFootprint(path)
	if err != nil {
		return domain.CropGeometry{}, fmt.Errorf("reading footprint: %w", err)
	}
	return domain.CropGeometry{Footprint: fp}, nil
}

// findFootprint locates the region's footprint in any vector format.
func findFootprint(layout domain.RegionLayout) (string, error) {
	matches, err := filepath.Glob(layout.FootprintPath(".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		// Shapefile sidecars share the stem.
		switch strings.ToLower(filepath.Ext(m)) {
		case ".geojson", ".shp", ".wkt":
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: no footprint in %s (run vectorize first)", domain.ErrInputNotFound, layout.VectorDir())
}

// parseBBox reads "minx,miny,maxx,maxy".
func parseBBox(s string) (domain.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BBox{}, fmt.Errorf("%w: bbox must be minx,miny,maxx,maxy", domain.ErrInvalidInput)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BBox{}, fmt.Errorf("%w: bbox value %q", domain.ErrInvalidInput, p)
		}
		v[i] = f
	}
	box := domain.BBox{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if err := box.Validate(); err != nil {
		return domain.BBox{}, err
	}
	return box, nil
}
