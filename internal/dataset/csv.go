// Package dataset loads measured characteristic values and derives sampled
// and mirrored batches from them.
package dataset

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/microsoft/tolstack/internal/models"
)

const (
	// BatchColumn identifies the production batch of a part.
	BatchColumn = "Batch_ID"
	// ContainerColumn identifies the part container (KLT) within a batch.
	ContainerColumn = "KLT_ID"
)

// Measurements is a parsed measurement file.
type Measurements struct {
	// Table holds every part in file order, without the ID columns.
	Table models.Table
	// Batches groups the parts by batch and then by container, both in
	// ascending ID order.
	Batches [][]models.Table
	// BatchIDs and ContainerIDs name the groups in Batches.
	BatchIDs     []string
	ContainerIDs [][]string
}

// BatchTables concatenates the containers of every batch.
func (m *Measurements) BatchTables() []models.Table {
	out := make([]models.Table, len(m.Batches))
	for i, b := range m.Batches {
		out[i] = models.Concat(b...)
	}
	return out
}

// LoadMeasurements reads a ';'-separated file with decimal commas. Files
// without Batch_ID/KLT_ID columns form a single batch with a single container.
func LoadMeasurements(path string) (*Measurements, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	m, err := ReadMeasurements(f)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	return m, nil
}

// ReadMeasurements parses measurements from r.
func ReadMeasurements(r io.Reader) (*Measurements, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &models.ConfigError{Param: "data", Msg: err.Error()}
	}
	if len(records) == 0 {
		return nil, &models.ConfigError{Param: "data", Msg: "empty file (no header row)"}
	}

	headers := records[0]
	batchCol, containerCol := slices.Index(headers, BatchColumn), slices.Index(headers, ContainerColumn)

	m := &Measurements{Table: make(models.Table, 0, len(records)-1)}
	type key struct{ batch, container string }
	groups := map[key]models.Table{}
	for i, record := range records[1:] {
		row := make(models.Row, len(headers))
		for j, h := range headers {
			if j == batchCol || j == containerCol {
				continue
			}
			v, err := ParseDecimal(record[j])
			if err != nil {
				return nil, &models.ConfigError{Param: "data", Msg: fmt.Sprintf("row %d, column %q: %v", i+2, h, err)}
			}
			row[h] = v
		}
		m.Table = append(m.Table, row)

		var k key
		if batchCol >= 0 {
			k.batch = record[batchCol]
		}
		if containerCol >= 0 {
			k.container = record[containerCol]
		}
		groups[k] = append(groups[k], row)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := compareIDs(a.batch, b.batch); c != 0 {
			return c
		}
		return compareIDs(a.container, b.container)
	})
	for i, k := range keys {
		if i == 0 || keys[i-1].batch != k.batch {
			m.BatchIDs = append(m.BatchIDs, k.batch)
			m.Batches = append(m.Batches, nil)
			m.ContainerIDs = append(m.ContainerIDs, nil)
		}
		last := len(m.Batches) - 1
		m.Batches[last] = append(m.Batches[last], groups[k])
		m.ContainerIDs[last] = append(m.ContainerIDs[last], k.container)
	}
	return m, nil
}

// ParseDecimal parses a finite number written with either a decimal comma
// or point.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not a finite number", s)
	}
	return v, nil
}

// compareIDs orders numeric IDs numerically and everything else lexically.
func compareIDs(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(a, b)
}
