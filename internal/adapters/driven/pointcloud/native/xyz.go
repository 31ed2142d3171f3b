package native

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// Point is one cloud sample.
type Point struct {
	X, Y, Z float64
}

// ReadXYZ parses a delimited text cloud. Fields may be separated by
// commas, semicolons or whitespace; the first three numeric fields are
// X, Y and Z. Lines that do not start with a number (headers, comments)
// are skipped.
func ReadXYZ(r io.Reader) ([]Point, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pts []Point
	line := 0
	for sc.Scan() {
		line++
		fields := strings.FieldsFunc(sc.Text(), func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			continue
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want X Y Z", domain.ErrUnsupportedFormat, line, len(fields))
		}
		y, errY := strconv.ParseFloat(fields[1], 64)
		z, errZ := strconv.ParseFloat(fields[2], 64)
		if errY != nil || errZ != nil {
			return nil, fmt.Errorf("%w: line %d: non-numeric coordinate", domain.ErrUnsupportedFormat, line)
		}
		pts = append(pts, Point{X: x, Y: y, Z: z})
	}
	return pts, sc.Err()
}

// ReadXYZFile opens and parses a text cloud.
func ReadXYZFile(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadXYZ(f)
}

// WriteXYZFile writes points as CSV with an X,Y,Z header.
func WriteXYZFile(path string, pts []Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	w.WriteString("X,Y,Z\n")
	for _, p := range pts {
		w.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		w.WriteByte(',')
		w.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
		w.WriteByte(',')
		w.WriteString(strconv.FormatFloat(p.Z, 'f', -1, 64))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// BoundsOf returns the 3D extent of the points.
func BoundsOf(pts []Point) domain.Bounds {
	b := domain.EmptyBounds()
	for _, p := range pts {
		b.Extend(p.X, p.Y, p.Z)
	}
	return b
}
