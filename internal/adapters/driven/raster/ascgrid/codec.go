package ascgrid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// Decode parses an ESRI ASCII grid.
func Decode(r io.Reader) (*domain.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: header %s has no value", domain.ErrUnsupportedFormat, key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: %v", domain.ErrUnsupportedFormat, key, err)
		}
		header[key] = v
	}

	ncols, okc := header["ncols"]
	nrows, okr := header["nrows"]
	if !okc || !okr || ncols < 0 || nrows < 0 {
		return nil, fmt.Errorf("%w: missing ncols/nrows", domain.ErrUnsupportedFormat)
	}
	dx, dy := header["cellsize"], header["cellsize"]
	if v, ok := header["dx"]; ok {
		dx = v
	}
	if v, ok := header["dy"]; ok {
		dy = v
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("%w: missing cellsize", domain.ErrUnsupportedFormat)
	}

	width, height := int(ncols), int(nrows)
	xll, yll := header["xllcorner"], header["yllcorner"]
	if v, ok := header["xllcenter"]; ok {
		xll = v - dx/2
	}
	if v, ok := header["yllcenter"]; ok {
		yll = v - dy/2
	}

	g := domain.NewGrid(width, height, 1, domain.GeoTransform{xll, dx, 0, yll + float64(height)*dy, 0, -dy})
	g.DataType = domain.DataTypeInt32
	if v, ok := header["nodata_value"]; ok {
		g.SetNoData(v)
	}

	cells := g.Bands[0]
	n := 0
	parse := func(tok string) error {
		if n >= len(cells) {
			return fmt.Errorf("%w: more than %d cells", domain.ErrUnsupportedFormat, len(cells))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("%w: cell %d: %v", domain.ErrUnsupportedFormat, n, err)
		}
		if v != math.Trunc(v) {
			g.DataType = domain.DataTypeFloat32
		}
		cells[n] = v
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n != len(cells) {
		return nil, fmt.Errorf("%w: got %d cells, want %d", domain.ErrUnsupportedFormat, n, len(cells))
	}
	return g, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	default:
		return false
	}
}

// Encode writes band 1 of a grid as an ESRI ASCII grid.
func Encode(w io.Writer, g *domain.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.BandCount() != 1 {
		return fmt.Errorf("%w: ASCII grids hold one band, got %d", domain.ErrUnsupportedFormat, g.BandCount())
	}
	gt := g.Transform
	if gt[2] != 0 || gt[4] != 0 || gt[5] >= 0 {
		return fmt.Errorf("%w: ASCII grids must be north-up", domain.ErrUnsupportedFormat)
	}

	bw := bufio.NewWriter(w)
	dx, dy := gt[1], -gt[5]
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Width, g.Height)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(gt[0]), formatFloat(gt[3]-float64(g.Height)*dy))
	if dx == dy {
		fmt.Fprintf(bw, "cellsize %s\n", formatFloat(dx))
	} else {
		fmt.Fprintf(bw, "dx %s\ndy %s\n", formatFloat(dx), formatFloat(dy))
	}
	if g.HasNoData {
		fmt.Fprintf(bw, "NODATA_value %s\n", formatCell(g.NoData, g.DataType))
	}

	for row := 0; row < g.Height; row++ {
		line := g.Bands[0][row*g.Width : (row+1)*g.Width]
		for col, v := range line {
			if col > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatCell(v, g.DataType))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatCell(v float64, dataType string) string {
	if math.IsNaN(v) {
		return "nan"
	}
	switch dataType {
	case domain.DataTypeByte, domain.DataTypeInt16, domain.DataTypeUInt16,
		domain.DataTypeInt32, domain.DataTypeUInt32:
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	case domain.DataTypeFloat32:
		return strconv.FormatFloat(v, 'g', -1, 32)
	default:
		return formatFloat(v)
	}
}

// ReadFile loads a grid and its .prj sidecar.
func ReadFile(path string) (*domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if prj, err := os.ReadFile(prjPath(path)); err == nil {
		g.SRS = strings.TrimSpace(string(prj))
	}
	return g, nil
}

// WriteFile stores a grid, writing a .prj sidecar when the SRS is known.
// The file is written to a temporary name and renamed into place.
func WriteFile(path string, g *domain.Grid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ascgrid-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if g.SRS != "" {
		return os.WriteFile(prjPath(path), []byte(g.SRS+"\n"), 0o644)
	}
	return nil
}

func prjPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
}
