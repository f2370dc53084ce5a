package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Target != "SO2" || c.StationColumn != "station" || c.NVMax != 8 || c.Folds != 10 || c.Seed != 1 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Method != "exhaustive" || c.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !slices.Equal(c.SkipColumns, []string{"No", "wd", "station"}) {
		t.Fatalf("skip_columns = %v", c.SkipColumns)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "airfit.yaml")
	body := "station: Dongsi\nnvmax: 6\ndrop_missing:\n  - CO\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRFIT_NVMAX", "4")
	t.Setenv("AIRFIT_DROP_COLLINEAR", "PM10,TEMP")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Station != "Dongsi" {
		t.Fatalf("station = %q", c.Station)
	}
	if c.NVMax != 4 {
		t.Fatalf("nvmax = %d, want env value 4", c.NVMax)
	}
	if !slices.Equal(c.DropMissing, []string{"CO"}) {
		t.Fatalf("drop_missing = %v", c.DropMissing)
	}
	if !slices.Equal(c.DropCollinear, []string{"PM10", "TEMP"}) {
		t.Fatalf("drop_collinear = %v", c.DropCollinear)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := isolateHome(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	c.Station = "Aotizhongxin"
	c.DropCollinear = []string{"PM10"}
	c.Seed = 99
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".airfit", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Station != "Aotizhongxin" || got.Seed != 99 || !slices.Equal(got.DropCollinear, []string{"PM10"}) {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("nvmax: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	isolateHome(t)
	base, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]func(c *Global){
		"folds":     func(c *Global) { c.Folds = 1 },
		"nvmax":     func(c *Global) { c.NVMax = 0 },
		"method":    func(c *Global) { c.Method = "lasso" },
		"fraction":  func(c *Global) { c.MaxMissingFraction = 1.2 },
		"target":    func(c *Global) { c.Target = "" },
		"delimiter": func(c *Global) { c.Delimiter = "|" },
		"log level": func(c *Global) { c.LogLevel = "trace" },
	}
	for name, mutate := range cases {
		c := *base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	ok := *base
	ok.Delimiter = "tab"
	ok.Decimal = "comma"
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if ok.DelimiterRune() != '\t' || ok.DecimalRune() != ',' {
		t.Fatalf("runes = %q %q", ok.DelimiterRune(), ok.DecimalRune())
	}
}
