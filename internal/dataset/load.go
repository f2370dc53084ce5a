package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// LoadOptions controls how an observation table is read from disk.
type LoadOptions struct {
	// StationColumn names the identifier column used for row filtering.
	StationColumn string
	// Station keeps only rows whose StationColumn equals this value. Empty keeps all rows.
	Station string
	// Skip lists columns that are never coerced (identifiers, categorical fields).
	// Names are matched case-insensitively; absent names are ignored.
	Skip []string
	// Delimiter for delimited text. If 0, sniffed from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

// LoadStats describes what the loader saw.
type LoadStats struct {
	RowsRead    int            `yaml:"rows_read"`
	RowsKept    int            `yaml:"rows_kept"`
	Skipped     []string       `yaml:"skipped"`
	Unparseable map[string]int `yaml:"unparseable,omitempty"` // per column, cells present but not numeric
}

// RecordReader yields records one at a time; the first record is the header.
type RecordReader interface {
	Read() ([]string, error)
	Close() error
}

// Format opens a file as a stream of records.
type Format interface {
	CanRead(filename string) bool
	Open(path string, opt LoadOptions) (RecordReader, error)
}

var registry []Format

// Register adds a file format to the loader registry.
func Register(f Format) {
	registry = append(registry, f)
}

func init() {
	Register(xlsxFormat{})
	Register(csvFormat{})
}

// Load reads the file at path, filters it to one station and coerces every
// declared column to float64. The file is closed before Load returns.
func Load(path string, opt LoadOptions) (*Table, *LoadStats, error) {
	var format Format = csvFormat{}
	for _, f := range registry {
		if f.CanRead(path) {
			format = f
			break
		}
	}
	rr, err := format.Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	defer rr.Close()
	return build(rr, opt)
}

// LoadCSV reads delimited text from r. Delimiter defaults to ','.
func LoadCSV(r io.Reader, opt LoadOptions) (*Table, *LoadStats, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	return build(newCSVRecords(r, opt.Delimiter, nil), opt)
}

func build(rr RecordReader, opt LoadOptions) (*Table, *LoadStats, error) {
	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("read header: %w", ErrNoRows)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	skip := map[string]bool{}
	for _, s := range opt.Skip {
		skip[strings.ToLower(strings.TrimSpace(s))] = true
	}
	if opt.StationColumn != "" {
		skip[strings.ToLower(strings.TrimSpace(opt.StationColumn))] = true
	}

	stats := &LoadStats{Unparseable: map[string]int{}}
	stationIdx := -1
	var names []string
	var srcIdx []int
	for i, h := range header {
		h = strings.TrimSpace(strings.Trim(strings.TrimPrefix(h, "\ufeff"), "\""))
		if opt.StationColumn != "" && strings.EqualFold(h, strings.TrimSpace(opt.StationColumn)) {
			stationIdx = i
		}
		if skip[strings.ToLower(h)] {
			stats.Skipped = append(stats.Skipped, h)
			continue
		}
		names = append(names, h)
		srcIdx = append(srcIdx, i)
	}
	if opt.Station != "" && stationIdx < 0 {
		return nil, nil, fmt.Errorf("%w: station column %q", ErrUnknownColumn, opt.StationColumn)
	}

	cols := make([][]float64, len(names))
	parsed := make([]int, len(names))
	for {
		rec, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", stats.RowsRead+1, err)
		}
		stats.RowsRead++
		if opt.Station != "" {
			if stationIdx >= len(rec) || strings.TrimSpace(strings.Trim(rec[stationIdx], "\"")) != opt.Station {
				continue
			}
		}
		stats.RowsKept++
		for j, src := range srcIdx {
			v := math.NaN()
			if src < len(rec) && !isMissing(rec[src]) {
				if x, ok := parseNumeric(rec[src], opt); ok {
					v = x
					parsed[j]++
				} else {
					stats.Unparseable[names[j]]++
				}
			}
			cols[j] = append(cols[j], v)
		}
	}
	if stats.RowsKept == 0 {
		if opt.Station != "" {
			return nil, stats, fmt.Errorf("%w: station %q matched none of %d rows", ErrNoRows, opt.Station, stats.RowsRead)
		}
		return nil, stats, fmt.Errorf("%w: file has a header only", ErrNoRows)
	}
	for j, n := range names {
		if parsed[j] == 0 {
			return nil, stats, fmt.Errorf("%w: column %q has no numeric values in %d rows", ErrCoercion, n, stats.RowsKept)
		}
	}
	t, err := NewTable(names, cols)
	if err != nil {
		return nil, stats, err
	}
	return t, stats, nil
}

type csvFormat struct{}

func (csvFormat) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvFormat) Open(path string, opt LoadOptions) (RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return newCSVRecords(f, delim, f), nil
}

type csvRecords struct {
	r *csv.Reader
	c io.Closer
}

func newCSVRecords(r io.Reader, delim rune, c io.Closer) *csvRecords {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim
	return &csvRecords{r: cr, c: c}
}

func (c *csvRecords) Read() ([]string, error) { return c.r.Read() }

func (c *csvRecords) Close() error {
	if c.c == nil {
		return nil
	}
	return c.c.Close()
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	// Default to comma; the extension is the only hint used to avoid reading twice.
	return ','
}
