package imports

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

func newTabReader(r io.Reader, fields int) *csv.Reader {
	csvReader := csv.NewReader(r)
	csvReader.Comma = '\t'
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = fields
	csvReader.TrimLeadingSpace = true
	return csvReader
}

func parseFloats(record []string, line int) ([]float64, error) {
	values := make([]float64, len(record))
	for i, field := range record {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d, column %d", line, i+1)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, errors.Errorf("line %d, column %d: non-finite value %q", line, i+1, field)
		}
		values[i] = val
	}
	return values, nil
}

// ReadMatches reads tab separated "u1 v1 u2 v2" rows, one correspondence per row.
func ReadMatches(r io.Reader) ([]r2.Point, []r2.Point, error) {
	csvReader := newTabReader(r, 4)

	points1 := []r2.Point{}
	points2 := []r2.Point{}
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading matches")
		}
		line, _ := csvReader.FieldPos(0)
		values, err := parseFloats(record, line)
		if err != nil {
			return nil, nil, err
		}
		points1 = append(points1, r2.Point{X: values[0], Y: values[1]})
		points2 = append(points2, r2.Point{X: values[2], Y: values[3]})
	}
	return points1, points2, nil
}

func ReadMatchesCSV(file string) ([]r2.Point, []r2.Point, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadMatches(f)
}

// ReadMarkers reads tab separated "id corner X Y Z" rows. Every marker must
// list its four corners exactly once.
func ReadMarkers(r io.Reader) (map[int][CornersPerMarker]r3.Vector, error) {
	csvReader := newTabReader(r, 5)

	markers := make(map[int][CornersPerMarker]r3.Vector)
	seen := make(map[int]int)
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading markers")
		}
		line, _ := csvReader.FieldPos(0)

		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: marker id", line)
		}
		corner, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: corner index", line)
		}
		if corner < 0 || corner >= CornersPerMarker {
			return nil, errors.Errorf("line %d: corner index %d out of [0, %d)", line, corner, CornersPerMarker)
		}
		if seen[id]&(1<<corner) != 0 {
			return nil, errors.Errorf("line %d: corner %d of marker %d listed twice", line, corner, id)
		}
		values, err := parseFloats(record, line)
		if err != nil {
			return nil, err
		}

		corners := markers[id]
		corners[corner] = r3.Vector{X: values[2], Y: values[3], Z: values[4]}
		markers[id] = corners
		seen[id] |= 1 << corner
	}

	for id, mask := range seen {
		if mask != 1<<CornersPerMarker-1 {
			return nil, errors.Errorf("marker %d is missing corners", id)
		}
	}
	return markers, nil
}

func ReadMarkersCSV(file string) (map[int][CornersPerMarker]r3.Vector, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMarkers(f)
}
