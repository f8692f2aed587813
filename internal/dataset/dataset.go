package dataset

import (
	"errors"
	"math"
	"strings"
)

// ErrNoRows is returned by loaders when a source yields no data rows.
var ErrNoRows = errors.New("dataset: no rows")

// Dataset is an immutable in-memory table of agronomic records. It is built
// once at start-up and shared between concurrent readers.
type Dataset struct {
	records []Record
	columns map[string]bool
}

// New builds a dataset from records. Column presence is the union of the
// numeric attributes carried by the records.
func New(records []Record) *Dataset {
	columns := make(map[string]bool)
	for _, r := range records {
		for col := range r.Values {
			columns[col] = true
		}
	}
	out := make([]Record, len(records))
	copy(out, records)
	return &Dataset{records: out, columns: columns}
}

// Concat joins datasets in order, like stacking CSV files on top of each
// other. Nil datasets are skipped.
func Concat(sets ...*Dataset) *Dataset {
	var records []Record
	for _, s := range sets {
		if s == nil {
			continue
		}
		records = append(records, s.records...)
	}
	return New(records)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns the records in load order. Callers must not modify the
// returned values.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return d.records
}

// HasColumn reports whether any record carries the numeric column.
func (d *Dataset) HasColumn(col string) bool {
	if d == nil {
		return false
	}
	return d.columns[col]
}

// FindByDistrictSoil returns the first record whose district and soil type
// match case-insensitively.
func (d *Dataset) FindByDistrictSoil(district, soil string) (Record, bool) {
	for _, r := range d.Records() {
		if strings.EqualFold(r.District, district) && strings.EqualFold(r.SoilType, soil) {
			return r, true
		}
	}
	return Record{}, false
}

// FilterByDistrictCrop returns all records for the district and crop.
func (d *Dataset) FilterByDistrictCrop(district, crop string) []Record {
	return d.filter(func(r Record) bool {
		return strings.EqualFold(r.District, district) && strings.EqualFold(r.Crop, crop)
	})
}

// FilterByDistrict returns all records for the district.
func (d *Dataset) FilterByDistrict(district string) []Record {
	return d.filter(func(r Record) bool {
		return strings.EqualFold(r.District, district)
	})
}

// FilterByCrop returns all records for the crop.
func (d *Dataset) FilterByCrop(crop string) []Record {
	return d.filter(func(r Record) bool {
		return strings.EqualFold(r.Crop, crop)
	})
}

func (d *Dataset) filter(keep func(Record) bool) []Record {
	var out []Record
	for _, r := range d.Records() {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Max returns the largest value of col across the dataset.
func (d *Dataset) Max(col string) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, r := range d.Records() {
		if v, ok := r.Value(col); ok {
			found = true
			if v > best {
				best = v
			}
		}
	}
	return best, found
}

// CropStats aggregates mean production and mandi price for a crop.
func (d *Dataset) CropStats(crop string) CropStats {
	rows := d.FilterByCrop(crop)
	stats := CropStats{Crop: crop, Rows: len(rows)}
	if v, ok := Mean(rows, ColProductionRate); ok {
		stats.AvgProduction = &v
	}
	if v, ok := Mean(rows, ColMandiPrice); ok {
		stats.AvgMandiPrice = &v
	}
	return stats
}

// Mean averages col over the records that carry it, skipping the rest.
func Mean(records []Record, col string) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range records {
		if v, ok := r.Value(col); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
