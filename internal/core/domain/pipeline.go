package domain

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Stage type names understood by point-cloud engines.
const (
	StageReadersLAS   = "readers.las"
	StageReadersCOPC  = "readers.copc"
	StageReadersText  = "readers.text"
	StageFiltersCrop  = "filters.crop"
	StageWritersGDAL  = "writers.gdal"
	StageWritersLAS   = "writers.las"
	StageWritersText  = "writers.text"
	OutputTypeCount   = "count"
	GDALDriverGTiff   = "GTiff"
	GDALDriverAAIGrid = "AAIGrid"
)

// PipelineStage is one declarative step of a point-cloud pipeline.
type PipelineStage map[string]any

// Type returns the stage kind.
func (s PipelineStage) Type() string {
	t, _ := s["type"].(string)
	return t
}

// Text returns a string option or "".
func (s PipelineStage) Text(key string) string {
	v, _ := s[key].(string)
	return v
}

// Float returns a numeric option, accepting the types JSON and callers produce.
func (s PipelineStage) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns a boolean option or false.
func (s PipelineStage) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Pipeline is an ordered read -> filter -> write description.
type Pipeline struct {
	Stages []PipelineStage
}

// MarshalJSON renders the engine's {"pipeline": [...]} document.
func (p Pipeline) MarshalJSON() ([]byte, error) {
	stages := p.Stages
	if stages == nil {
		stages = []PipelineStage{}
	}
	return json.Marshal(struct {
		Pipeline []PipelineStage `json:"pipeline"`
	}{stages})
}

// UnmarshalJSON parses a {"pipeline": [...]} document.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var doc struct {
		Pipeline []PipelineStage `json:"pipeline"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	p.Stages = doc.Pipeline
	return nil
}

// Reader returns the first reader stage, or nil.
func (p Pipeline) Reader() PipelineStage {
	for _, s := range p.Stages {
		if strings.HasPrefix(s.Type(), "readers.") {
			return s
		}
	}
	return nil
}

// ReaderStage builds a reader for the file, naming the driver when the
// extension identifies one.
func ReaderStage(path string) PipelineStage {
	stage := PipelineStage{"filename": path}
	if t := readerType(path); t != "" {
		stage["type"] = t
	}
	return stage
}

func readerType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".copc.laz"):
		return StageReadersCOPC
	case strings.HasSuffix(lower, ".las"), strings.HasSuffix(lower, ".laz"):
		return StageReadersLAS
	case IsTextCloudExtension(filepath.Ext(lower)):
		return StageReadersText
	default:
		return ""
	}
}

// IsTextCloudExtension reports whether ext names a delimited XYZ text cloud.
func IsTextCloudExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".xyz", ".txt", ".csv":
		return true
	default:
		return false
	}
}

// CropPolygonStage keeps points inside (or outside) a WKT geometry.
func CropPolygonStage(wkt string, mode CropMode) PipelineStage {
	return PipelineStage{
		"type":    StageFiltersCrop,
		"polygon": wkt,
		"outside": mode == CropOutside,
	}
}

// CropBoundsStage keeps points inside (or outside) a bounding box.
func CropBoundsStage(box BBox, mode CropMode) PipelineStage {
	return PipelineStage{
		"type":    StageFiltersCrop,
		"bounds":  box.String(),
		"outside": mode == CropOutside,
	}
}

// CountGridStage writes a per-cell point count raster.
func CountGridStage(path string, resolution float64, nodata int) PipelineStage {
	driver := GDALDriverGTiff
	if strings.EqualFold(filepath.Ext(path), ".asc") {
		driver = GDALDriverAAIGrid
	}
	return PipelineStage{
		"type":        StageWritersGDAL,
		"filename":    path,
		"output_type": OutputTypeCount,
		"resolution":  resolution,
		"nodata":      nodata,
		"data_type":   "int32",
		"gdaldriver":  driver,
	}
}

// CloudWriterStage writes points to a LAS-family or text file.
func CloudWriterStage(path string) PipelineStage {
	if IsTextCloudExtension(filepath.Ext(path)) {
		return PipelineStage{
			"type":             StageWritersText,
			"filename":         path,
			"format":           "csv",
			"order":            "X,Y,Z",
			"keep_unspecified": false,
		}
	}
	return PipelineStage{
		"type":     StageWritersLAS,
		"filename": path,
		"forward":  "all",
	}
}
