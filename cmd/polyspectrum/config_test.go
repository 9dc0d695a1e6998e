package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/spectrum"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigParsesGridAndRunSections(t *testing.T) {
	path := writeConfig(t, `
[grid]
dim = 3
n = 32

[kernel]
name = CIC

[binning]
numbins = 16
kmin = 0
kmax = 16
scale = log

[source]
type = synthetic
seed = 7

[run]
mode = power
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Dim != 3 || cfg.Grid.N != 32 {
		t.Fatalf("grid section: got dim=%d n=%d", cfg.Grid.Dim, cfg.Grid.N)
	}
	if cfg.Binning.NumBins != 16 {
		t.Fatalf("binning.numbins = %d, want 16", cfg.Binning.NumBins)
	}
	scale, err := cfg.binScale()
	if err != nil {
		t.Fatal(err)
	}
	if scale != binning.Log {
		t.Fatalf("scale = %v, want Log", scale)
	}
	if cfg.Run.Mode != "power" {
		t.Fatalf("run.mode = %q, want power", cfg.Run.Mode)
	}
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, `
[grid]
dim = 3
n = 32

[binning]
numbins = 8

[source]
type = synthetic

[run]
mode = bogus
`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("want error for unrecognized run mode")
	}
}

func TestLoadConfigRejectsUnknownSourceType(t *testing.T) {
	path := writeConfig(t, `
[grid]
dim = 3
n = 32

[binning]
numbins = 8

[source]
type = bogus

[run]
mode = power
`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("want error for unrecognized source type")
	}
}

func TestParseLOSDefaultsToAverageAxes(t *testing.T) {
	mode, err := parseLOS("", 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(spectrum.LOSAverageAxes); !ok {
		t.Fatalf("parseLOS(\"\") = %T, want spectrum.LOSAverageAxes", mode)
	}
}

func TestParseLOSFixedDirection(t *testing.T) {
	mode, err := parseLOS("0,0,1", 3)
	if err != nil {
		t.Fatal(err)
	}
	fixed, ok := mode.(spectrum.LOSFixed)
	if !ok {
		t.Fatalf("parseLOS(\"0,0,1\") = %T, want spectrum.LOSFixed", mode)
	}
	_ = fixed
}

func TestParseLOSRejectsWrongDimension(t *testing.T) {
	if _, err := parseLOS("0,0,1", 2); err == nil {
		t.Fatal("want error for mismatched dimension")
	}
}
