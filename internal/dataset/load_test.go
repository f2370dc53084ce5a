package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const prsaSample = `No,year,month,SO2,NO2,TEMP,wd,station
1,2013,3,4,7,-0.7,NNW,Aotizhongxin
2,2013,3,NA,6,-1.1,N,Aotizhongxin
3,2013,3,5,,-1.1,NNW,Dongsi
4,2013,3,11,18,-1.4,NW,Aotizhongxin
5,2013,3,12,20,-2.0,N,Dongsi
`

func prsaOptions(station string) LoadOptions {
	return LoadOptions{StationColumn: "station", Station: station, Skip: []string{"No", "wd"}}
}

func TestLoadCSV_StationFilterAndCoercion(t *testing.T) {
	tbl, stats, err := LoadCSV(strings.NewReader(prsaSample), prsaOptions("Aotizhongxin"))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if got, want := strings.Join(tbl.Names(), ","), "year,month,SO2,NO2,TEMP"; got != want {
		t.Fatalf("names = %s, want %s", got, want)
	}
	if tbl.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.NumRows())
	}
	if stats.RowsRead != 5 || stats.RowsKept != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	so2, _ := tbl.Col("SO2")
	if so2[0] != 4 || !math.IsNaN(so2[1]) || so2[2] != 11 {
		t.Fatalf("SO2 = %v", so2)
	}
	temp, _ := tbl.Col("TEMP")
	if temp[2] != -1.4 {
		t.Fatalf("TEMP[2] = %v, want -1.4", temp[2])
	}
	if len(stats.Skipped) != 3 {
		t.Fatalf("skipped = %v, want No, wd and station", stats.Skipped)
	}
}

func TestLoadCSV_AllStations(t *testing.T) {
	tbl, _, err := LoadCSV(strings.NewReader(prsaSample), prsaOptions(""))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tbl.NumRows() != 5 {
		t.Fatalf("rows = %d, want 5", tbl.NumRows())
	}
	if tbl.MissingCount("NO2") != 1 {
		t.Fatalf("NO2 missing = %d, want 1", tbl.MissingCount("NO2"))
	}
}

func TestLoadCSV_CoercionFailure(t *testing.T) {
	opt := prsaOptions("Aotizhongxin")
	opt.Skip = []string{"No"} // wd is now declared numeric
	_, _, err := LoadCSV(strings.NewReader(prsaSample), opt)
	if !errors.Is(err, ErrCoercion) {
		t.Fatalf("expected ErrCoercion, got %v", err)
	}
	if !strings.Contains(err.Error(), "wd") {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestLoadCSV_UnparseableCellsCounted(t *testing.T) {
	in := "SO2,CO\n1,200\n2,abc\n3,300\n"
	tbl, stats, err := LoadCSV(strings.NewReader(in), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if stats.Unparseable["CO"] != 1 {
		t.Fatalf("unparseable = %v", stats.Unparseable)
	}
	if tbl.MissingCount("CO") != 1 {
		t.Fatalf("CO missing = %d", tbl.MissingCount("CO"))
	}
}

func TestLoadCSV_StationErrors(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader(prsaSample), prsaOptions("Gucheng"))
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	opt := prsaOptions("Dongsi")
	opt.StationColumn = "site"
	_, _, err = LoadCSV(strings.NewReader(prsaSample), opt)
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{}); err == nil {
		t.Fatal("expected error for missing file")
	}
	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(empty, LoadOptions{}); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows for empty file, got %v", err)
	}
}

func TestLoad_TSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	if err := os.WriteFile(path, []byte("SO2\tNO2\n1\t2\n3\t4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, _, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.NumCols() != 2 || tbl.NumRows() != 2 {
		t.Fatalf("got %s", tbl)
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prsa.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Hourly"); err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{"SO2", "NO2", "station"},
		{4, 7, "Aotizhongxin"},
		{5, 9, "Dongsi"},
		{11, 18, "Aotizhongxin"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Hourly", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	tbl, _, err := Load(path, LoadOptions{StationColumn: "station", Station: "Aotizhongxin"})
	if err != nil {
		t.Fatalf("Load xlsx: %v", err)
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Fatalf("got %s", tbl)
	}
	no2, _ := tbl.Col("NO2")
	if no2[1] != 18 {
		t.Fatalf("NO2 = %v", no2)
	}

	_, _, err = Load(path, LoadOptions{Sheet: "Daily"})
	if err == nil || !strings.Contains(err.Error(), "Hourly") {
		t.Fatalf("expected sheet-not-found error listing Hourly, got %v", err)
	}
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		opt  LoadOptions
		want float64
		ok   bool
	}{
		{"3.5", LoadOptions{}, 3.5, true},
		{" -0.7 ", LoadOptions{}, -0.7, true},
		{"1.234,5", LoadOptions{}, 1234.5, true},
		{"1,234.5", LoadOptions{}, 1234.5, true},
		{"2,5", LoadOptions{DecimalSeparator: ','}, 2.5, true},
		{"12%", LoadOptions{}, 12, true},
		{"NNW", LoadOptions{}, 0, false},
		{"Inf", LoadOptions{}, 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumeric(c.in, c.opt)
		if ok != c.ok || (ok && math.Abs(got-c.want) > 1e-12) {
			t.Errorf("parseNumeric(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
	for _, tok := range []string{"", "NA", "nan", "NULL", " - "} {
		if !isMissing(tok) {
			t.Errorf("isMissing(%q) = false", tok)
		}
	}
}
