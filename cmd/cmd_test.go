package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/airfit-cli/internal/regression"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears values and Changed state left by earlier invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// setupHome isolates config under a temp HOME and writes a two-station CSV
// where x4 = x1 + x2 and CO is mostly missing.
func setupHome(t *testing.T) (home, csvPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	rng := rand.New(rand.NewSource(3))
	var b strings.Builder
	b.WriteString("No,SO2,x1,x2,x3,x4,CO,wd,station\n")
	for i := 0; i < 150; i++ {
		station := "Aotizhongxin"
		if i%3 == 2 {
			station = "Dongsi"
		}
		x1 := math.Round(rng.NormFloat64()*1000) / 1000
		x2 := math.Round(rng.NormFloat64()*1000) / 1000
		x3 := rng.NormFloat64()
		y := 2 + 1.5*x1 - 2*x2 + 0.5*x3 + 0.3*rng.NormFloat64()
		co := "NA"
		if i%5 == 0 {
			co = "400"
		}
		fmt.Fprintf(&b, "%d,%.6f,%.6f,%.6f,%.6f,%.6f,%s,NW,%s\n", i+1, y, x1, x2, x3, x1+x2, co, station)
	}
	csvPath = filepath.Join(home, "prsa.csv")
	if err := os.WriteFile(csvPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return home, csvPath
}

func TestCLI_AnalyzeWritesReportAndPlots(t *testing.T) {
	home, csv := setupHome(t)
	report := filepath.Join(home, "out", "report.md")
	plots := filepath.Join(home, "plots")

	out := runCmd(t, "analyze", csv,
		"--station", "Aotizhongxin",
		"--drop-missing", "CO",
		"--drop-collinear", "x4",
		"--nvmax", "3", "--folds", "5", "--seed", "7",
		"-o", report, "--plots", plots)

	if !strings.Contains(out, "Wrote report to") {
		t.Fatalf("expected confirmation, got %q", out)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	md := string(b)
	for _, want := range []string{"Station: Aotizhongxin", "[SUBSET SELECTION]", "[CROSS-VALIDATION]", "Folds: 5, seed 7, n=100"} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}
	if _, err := os.Stat(filepath.Join(plots, "cv_error.png")); err != nil {
		t.Fatalf("cv plot not written: %v", err)
	}
}

func TestCLI_AnalyzeYAMLFromExtension(t *testing.T) {
	home, csv := setupHome(t)
	report := filepath.Join(home, "report.yaml")
	runCmd(t, "analyze", csv, "--station", "Dongsi", "--drop-missing", "CO", "--drop-collinear", "x4",
		"--nvmax", "2", "--folds", "4", "-o", report)
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "run_id:") || !strings.Contains(string(b), "station: Dongsi") {
		t.Fatalf("unexpected yaml:\n%s", b)
	}
}

func TestCLI_VIFSurfacesPerfectCollinearity(t *testing.T) {
	_, csv := setupHome(t)
	_, err := execute(t, "vif", csv, "--station", "Aotizhongxin", "--drop-missing", "CO")
	if !errors.Is(err, regression.ErrPerfectCollinearity) {
		t.Fatalf("expected perfect collinearity error, got %v", err)
	}
	out := runCmd(t, "vif", csv, "--station", "Aotizhongxin", "--drop-missing", "CO", "--drop-collinear", "x4")
	if !strings.Contains(out, "[REDUCED FIT]") || strings.Contains(out, "[SUBSET SELECTION]") {
		t.Fatalf("unexpected vif output:\n%s", out)
	}
}

func TestCLI_CVMatrixAndProfile(t *testing.T) {
	home, csv := setupHome(t)
	args := []string{"cv", csv, "--drop-missing", "CO", "--drop-collinear", "x4", "--nvmax", "3", "-k", "5", "--matrix"}
	out := runCmd(t, args...)
	if !strings.Contains(out, "[CROSS-VALIDATION]") || !strings.Contains(out, "[CV ERROR MATRIX]") || !strings.Contains(out, "fold 5") {
		t.Fatalf("unexpected cv output:\n%s", out)
	}
	report := filepath.Join(home, "cv.md")
	runCmd(t, append(args, "-o", report)...)
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "[CROSS-VALIDATION]") || !strings.Contains(string(b), "[CV ERROR MATRIX]") {
		t.Fatalf("matrix missing from written report:\n%s", b)
	}
	out = runCmd(t, "profile", csv, "--station", "Dongsi")
	if !strings.Contains(out, "[SCHEMA]") || !strings.Contains(out, "- CO: non-null") || !strings.Contains(out, "Rows: 50") {
		t.Fatalf("unexpected profile output:\n%s", out)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	setupHome(t)
	runCmd(t, "config", "set", "nvmax", "5")
	runCmd(t, "config", "set", "drop_collinear", "PM10, TEMP")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "nvmax: 5") || !strings.Contains(out, "drop_collinear: PM10,TEMP") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
	if _, err := execute(t, "config", "set", "folds", "1"); err == nil {
		t.Fatal("expected validation error for folds=1")
	}
	if _, err := execute(t, "config", "set", "colour", "red"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestCLI_InvalidFlagsRejected(t *testing.T) {
	_, csv := setupHome(t)
	if _, err := execute(t, "subsets", csv, "--method", "lasso"); err == nil {
		t.Fatal("expected invalid method error")
	}
	if _, err := execute(t, "analyze", csv, "--folds", "1"); err == nil {
		t.Fatal("expected invalid folds error")
	}
}
