package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/catio"
	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/internal/fixtures"
	"github.com/phil-mansfield/polyspectra/kernel"
	"github.com/phil-mansfield/polyspectra/particle"
	"github.com/phil-mansfield/polyspectra/polyspectrum"
	"github.com/phil-mansfield/polyspectra/smoothing"
	"github.com/phil-mansfield/polyspectra/snapio"
	"github.com/phil-mansfield/polyspectra/spectrum"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: polyspectrum <config file>")
		os.Exit(1)
	}
	cfg, err := loadConfig(os.Args[1])
	if err != nil {
		fatal(err)
	}

	c := comm.Local()
	if err := run(cfg, c); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "polyspectrum:", err)
	os.Exit(1)
}

// run dispatches on cfg.Run.Mode, the switch guppy.go's main performs
// on its own mode string, generalized to this module's estimators.
func run(cfg *Config, c comm.Comm) error {
	k, err := kernel.Parse(cfg.Kernel.Name)
	if err != nil {
		return err
	}
	scale, err := cfg.binScale()
	if err != nil {
		return err
	}

	if cfg.Run.Mode == "smooth" {
		return runSmooth(cfg)
	}

	s, err := loadSource(cfg)
	if err != nil {
		return err
	}

	switch cfg.Run.Mode {
	case "power":
		pofk, err := binning.NewPower(cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale)
		if err != nil {
			return err
		}
		if err := spectrum.Power(cfg.Grid.Dim, cfg.Grid.N, s, k, c, pofk); err != nil {
			return err
		}
		return writePower(cfg, pofk)
	case "power-interlaced":
		pofk, err := binning.NewPower(cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale)
		if err != nil {
			return err
		}
		if err := spectrum.PowerInterlaced(cfg.Grid.Dim, cfg.Grid.N, s, k, c, pofk); err != nil {
			return err
		}
		return writePower(cfg, pofk)
	case "power-direct":
		pofk, err := binning.NewPower(cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale)
		if err != nil {
			return err
		}
		if err := spectrum.PowerDirectSum(cfg.Grid.Dim, cfg.Grid.N, s, c, pofk); err != nil {
			return err
		}
		return writePower(cfg, pofk)
	case "multipoles":
		return runMultipoles(cfg, s, k, c, scale)
	case "bispectrum":
		return runBispectrum(cfg, s, k, c, scale)
	case "polyspectrum":
		return runPolyspectrum(cfg, s, k, c, scale)
	default:
		return fmt.Errorf("cmd/polyspectrum: unhandled mode %q", cfg.Run.Mode)
	}
}

// loadSource builds a particle.Stream from the [source] section,
// mirroring guppy.go's lib.CollectParticles step but over the three
// adapters SPEC_FULL.md names instead of guppy's .gup format.
func loadSource(cfg *Config) (*particle.Stream, error) {
	switch cfg.Source.Type {
	case "synthetic":
		return fixtures.RandomParticles(uint64(cfg.Source.Seed), cfg.Grid.Dim, cfg.Grid.N*cfg.Grid.N), nil
	case "gadget2":
		return snapio.ReadGadget2(cfg.Source.Path)
	case "catalog":
		return catio.ReadTextCatalog(cfg.Source.Path, cfg.Source.PosCols, cfg.Source.VelCols, catio.DefaultConfig)
	default:
		return nil, fmt.Errorf("cmd/polyspectrum: unhandled source type %q", cfg.Source.Type)
	}
}

func runMultipoles(cfg *Config, s *particle.Stream, k kernel.Kind, c comm.Comm, scale binning.Scale) error {
	mode, err := parseLOS(cfg.Run.Los, cfg.Grid.Dim)
	if err != nil {
		return err
	}
	pell, err := spectrum.ParticleMultipoles(
		cfg.Grid.Dim, cfg.Grid.N, s, k, cfg.Run.Kappa, c, mode, cfg.Run.Lmax,
		cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale,
	)
	if err != nil {
		return err
	}
	return writeMultipoles(cfg, pell)
}

func runBispectrum(cfg *Config, s *particle.Stream, k kernel.Kind, c comm.Comm, scale binning.Scale) error {
	g, err := scatterTransformDeconvolve(cfg, s, k, c)
	if err != nil {
		return err
	}
	bis, err := polyspectrum.ComputeBispectrum(g, c, cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale)
	if err != nil {
		return err
	}
	return writeBispectrum(cfg, bis)
}

func runPolyspectrum(cfg *Config, s *particle.Stream, k kernel.Kind, c comm.Comm, scale binning.Scale) error {
	g, err := scatterTransformDeconvolve(cfg, s, k, c)
	if err != nil {
		return err
	}
	order := cfg.Run.Order
	if order < 2 {
		order = 3
	}
	eng, err := polyspectrum.NewEngine(g, c, order, cfg.Binning.NumBins, cfg.Binning.KMin, cfg.Binning.KMax, scale)
	if err != nil {
		return err
	}
	poly, err := eng.Compute()
	if err != nil {
		return err
	}
	return writePoly(cfg, poly)
}

func runSmooth(cfg *Config) error {
	s, err := loadSource(cfg)
	if err != nil {
		return err
	}
	c := comm.Local()
	g, err := scatterTransformDeconvolve(cfg, s, kernelOrDefault(cfg), c)
	if err != nil {
		return err
	}
	if err := smoothing.Apply(g, cfg.Run.FilterName, cfg.Run.Radius); err != nil {
		return err
	}
	fmt.Println("smoothing applied; grid left in Fourier status")
	return nil
}

func kernelOrDefault(cfg *Config) kernel.Kind {
	k, err := kernel.Parse(cfg.Kernel.Name)
	if err != nil {
		k, _ = kernel.Parse("CIC")
	}
	return k
}

func parseLOS(spec string, dim int) (spectrum.LOSMode, error) {
	if spec == "" || spec == "average" {
		return spectrum.LOSAverageAxes{}, nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != dim {
		return nil, fmt.Errorf("cmd/polyspectrum: [run] los has %d components, want %d", len(parts), dim)
	}
	dir := make([]float64, dim)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("cmd/polyspectrum: [run] los component %q: %w", p, err)
		}
		dir[i] = v
	}
	return spectrum.LOSFixed{Dir: dir}, nil
}
