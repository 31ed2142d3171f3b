package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RasterType identifies a derivative terrain product.
type RasterType string

// Recognised derivative raster types.
const (
	RasterDTM         RasterType = "DTM"
	RasterDSM         RasterType = "DSM"
	RasterCHM         RasterType = "CHM"
	RasterHillshade   RasterType = "Hillshade"
	RasterSlope       RasterType = "Slope"
	RasterAspect      RasterType = "Aspect"
	RasterRoughness   RasterType = "Roughness"
	RasterTRI         RasterType = "TRI"
	RasterTPI         RasterType = "TPI"
	RasterColorRelief RasterType = "ColorRelief"
)

// AllRasterTypes lists every recognised type in generation order.
// Types derived from an elevation model come after DTM.
func AllRasterTypes() []RasterType {
	return []RasterType{
		RasterDTM, RasterDSM, RasterCHM, RasterHillshade, RasterSlope,
		RasterAspect, RasterRoughness, RasterTRI, RasterTPI, RasterColorRelief,
	}
}

// rasterExtensions are the file extensions batch discovery accepts.
var rasterExtensions = map[string]bool{".tif": true, ".tiff": true, ".asc": true}

// IsRasterExtension reports whether ext is a raster file extension.
func IsRasterExtension(ext string) bool {
	return rasterExtensions[strings.ToLower(ext)]
}

// ParseRasterType resolves a case-insensitive type name.
func ParseRasterType(name string) (RasterType, error) {
	for _, t := range AllRasterTypes() {
		if strings.EqualFold(string(t), name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown raster type %q", ErrInvalidInput, name)
}

// MatchRasterType recognises derivative rasters by file name.
// A file matches when its stem equals a type name or ends in "_<type>".
func MatchRasterType(path string) (RasterType, bool) {
	ext := filepath.Ext(path)
	if !IsRasterExtension(ext) {
		return "", false
	}
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ext))
	for _, t := range AllRasterTypes() {
		name := strings.ToLower(string(t))
		if stem == name || strings.HasSuffix(stem, "_"+name) {
			return t, true
		}
	}
	return "", false
}

// SortRasterTypes returns the types in generation order without duplicates.
func SortRasterTypes(types []RasterType) []RasterType {
	want := make(map[RasterType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make([]RasterType, 0, len(want))
	for _, t := range AllRasterTypes() {
		if want[t] {
			out = append(out, t)
			delete(want, t)
		}
	}
	for _, t := range types {
		if want[t] {
			out = append(out, t)
			delete(want, t)
		}
	}
	return out
}

// CleanResult reports the outcome of masking one derivative raster.
type CleanResult struct {
	InputPath    string     `json:"input_path"`
	OutputPath   string     `json:"output_path,omitempty"`
	Type         RasterType `json:"type,omitempty"`
	Success      bool       `json:"success"`
	Error        string     `json:"error,omitempty"`
	CellsMasked  int        `json:"cells_masked"`
	BandsCleaned int        `json:"bands_cleaned"`
}

// CleanBatchReport summarises a batch clean over a region tree.
type CleanBatchReport struct {
	RegionDir  string        `json:"region_dir"`
	Processed  int           `json:"files_processed"`
	Successful int           `json:"files_successful"`
	Failed     int           `json:"files_failed"`
	Results    []CleanResult `json:"results"`
}

// GenerateRequest is the input handed to a derivative generator.
type GenerateRequest struct {
	Region     string
	PointCloud string
	DTM        string
	OutputDir  string
	Resolution float64
}

// RegenerationResult is the outcome for one derivative type.
type RegenerationResult struct {
	Type       RasterType `json:"type"`
	Success    bool       `json:"success"`
	OutputPath string     `json:"output_path,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RegenerationReport lists per-type outcomes; one failure never aborts others.
type RegenerationReport struct {
	SourcePath string               `json:"source_path"`
	OutputDir  string               `json:"output_dir"`
	Results    []RegenerationResult `json:"results"`
}

// Succeeded returns the number of successful types.
func (r *RegenerationReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Output returns the output path for a type if it was generated.
func (r *RegenerationReport) Output(t RasterType) (string, bool) {
	for _, res := range r.Results {
		if res.Type == t && res.Success {
			return res.OutputPath, true
		}
	}
	return "", false
}
