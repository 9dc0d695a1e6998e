package main

import (
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/fft"
	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/kernel"
	"github.com/phil-mansfield/polyspectra/particle"
	"github.com/phil-mansfield/polyspectra/polyspectrum"
)

// scatterTransformDeconvolve is cmd/polyspectrum's copy of
// spectrum.go's internal scatterFoldForward+Deconvolve pipeline, used
// by the modes (bispectrum, polyspectrum, smooth) that need a raw
// Fourier-space density grid rather than a finished binning.Power.
func scatterTransformDeconvolve(cfg *Config, s *particle.Stream, k kernel.Kind, c comm.Comm) (*grid.SlabGrid, error) {
	gw := k.GhostWidth()
	g, err := grid.New(cfg.Grid.Dim, cfg.Grid.N, gw, gw, c.Rank(), c.Size())
	if err != nil {
		return nil, err
	}
	if err := g.FillReal(0); err != nil {
		return nil, err
	}
	if err := kernel.Scatter(g, s, k); err != nil {
		return nil, err
	}
	comm.FoldGhost(c, g)

	d := fft.NewDriver(c)
	if err := d.Forward(g); err != nil {
		return nil, err
	}
	if err := kernel.Deconvolve(g, k); err != nil {
		return nil, err
	}
	return g, nil
}

func openOutput(cfg *Config) (io.Writer, func(), error) {
	if cfg.Output.Path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("cmd/polyspectrum: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writePower(cfg *Config, pofk *binning.Power) error {
	w, closeFn, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(w, "# k P(k)")
	for i := 0; i < pofk.NumBins(); i++ {
		fmt.Fprintf(w, "%.6e %.6e\n", pofk.Kbin[i], pofk.Pofk[i])
	}
	return nil
}

func writeMultipoles(cfg *Config, pell []*binning.Power) error {
	w, closeFn, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintf(w, "# k")
	for l := range pell {
		fmt.Fprintf(w, " P_%d(k)", l)
	}
	fmt.Fprintln(w)

	nb := pell[0].NumBins()
	for i := 0; i < nb; i++ {
		fmt.Fprintf(w, "%.6e", pell[0].Kbin[i])
		for l := range pell {
			fmt.Fprintf(w, " %.6e", pell[l].Pofk[i])
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeBispectrum(cfg *Config, bis *polyspectrum.Bispectrum) error {
	w, closeFn, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(w, "# k1 k2 k3 B(k1,k2,k3) Q(k1,k2,k3) N")
	nb := bis.NumBins()
	for i := 0; i < nb; i++ {
		for j := 0; j < nb; j++ {
			for l := 0; l < nb; l++ {
				flat := bis.Index([]int{i, j, l})
				if !bis.IsComputed(flat) {
					continue
				}
				k1, k2, k3 := bis.Midpoint(i), bis.Midpoint(j), bis.Midpoint(l)
				fmt.Fprintf(w, "%.6e %.6e %.6e %.6e %.6e %.6e\n",
					k1, k2, k3, bis.P123[flat], bis.Reduced[flat], bis.N123[flat])
			}
		}
	}
	return nil
}

func writePoly(cfg *Config, poly *binning.Poly) error {
	w, closeFn, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	n := poly.Order()
	fmt.Fprintf(w, "# %d shell midpoints, then P and N\n", n)
	nb := poly.NumBins()
	total := 1
	for i := 0; i < n; i++ {
		total *= nb
	}
	for flat := 0; flat < total; flat++ {
		if !poly.IsComputed(flat) {
			continue
		}
		ik := poly.Decode(flat)
		for _, i := range ik {
			fmt.Fprintf(w, "%.6e ", poly.Midpoint(i))
		}
		fmt.Fprintf(w, "%.6e %.6e\n", poly.P123[flat], poly.N123[flat])
	}
	return nil
}
