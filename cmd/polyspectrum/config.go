// Package main implements cmd/polyspectrum, the CLI named in
// SPEC_FULL.md section 6: a gcfg INI-driven driver over the estimator
// packages. Grounded on the teacher's guppy.go (mode-dispatch shape:
// parse a mode plus a config file, validate, then switch on the mode
// string) and lib/mode_flags.go/lib/parse.go, whose RawArgs/Args
// split and ParseCommandLine/ParseConfigFile stubs this finally
// implements with gopkg.in/gcfg.v1 instead of lib/parse.go's
// never-written hand-rolled parser.
package main

import (
	"fmt"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/polyspectra/binning"
)

// Config is the INI schema cmd/polyspectrum reads. Section names are
// lowercased by gcfg; [grid], [kernel], [binning], [source], [run],
// and [output] are the sections a config file may set.
type Config struct {
	Grid struct {
		Dim int
		N   int
	}
	Kernel struct {
		Name string
	}
	Binning struct {
		NumBins int
		KMin    float64
		KMax    float64
		Scale   string
	}
	Source struct {
		Type    string // "synthetic" | "gadget2" | "catalog"
		Path    string
		Seed    int64
		PosCols []int
		VelCols []int
	}
	Run struct {
		Mode       string // "power" | "power-interlaced" | "power-direct" | "multipoles" | "bispectrum" | "polyspectrum" | "smooth"
		Order      int    // polyspectrum order, ignored otherwise
		Lmax       int    // multipoles max multipole
		Los        string // "average" | a comma-separated unit vector
		Kappa      float64
		FilterName string // smoothing filter name
		Radius     float64
	}
	Output struct {
		Path string // empty means stdout
	}
}

// loadConfig reads and validates an INI file into a Config.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := gcfg.ReadFileInto(cfg, path); err != nil {
		return nil, fmt.Errorf("cmd/polyspectrum: reading config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Grid.Dim < 1 {
		return fmt.Errorf("cmd/polyspectrum: [grid] dim must be >= 1, got %d", cfg.Grid.Dim)
	}
	if cfg.Grid.N < 1 {
		return fmt.Errorf("cmd/polyspectrum: [grid] n must be >= 1, got %d", cfg.Grid.N)
	}
	if cfg.Binning.NumBins < 1 {
		return fmt.Errorf("cmd/polyspectrum: [binning] numbins must be >= 1, got %d", cfg.Binning.NumBins)
	}
	switch cfg.Source.Type {
	case "synthetic", "gadget2", "catalog":
	default:
		return fmt.Errorf("cmd/polyspectrum: [source] type must be one of synthetic/gadget2/catalog, got %q", cfg.Source.Type)
	}
	switch cfg.Run.Mode {
	case "power", "power-interlaced", "power-direct", "multipoles", "bispectrum", "polyspectrum", "smooth":
	default:
		return fmt.Errorf("cmd/polyspectrum: [run] mode %q not recognized", cfg.Run.Mode)
	}
	return nil
}

func (cfg *Config) binScale() (binning.Scale, error) {
	switch cfg.Binning.Scale {
	case "", "lin", "linear":
		return binning.Linear, nil
	case "log":
		return binning.Log, nil
	default:
		return 0, fmt.Errorf("cmd/polyspectrum: [binning] scale must be lin or log, got %q", cfg.Binning.Scale)
	}
}
