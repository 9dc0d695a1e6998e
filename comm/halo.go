package comm

import "github.com/phil-mansfield/polyspectra/grid"

// Exchange implements C3: it copies the rightmost n_left owned
// planes of this rank into the left ghost of its right neighbor, and
// the leftmost n_right owned planes into the right ghost of its left
// neighbor, periodically (rank nRanks-1's right neighbor is rank 0).
// Valid in either grid status, but only meaningful in Real: it
// operates on the grid's real-view storage directly via RealRaw, so
// calling it on a Fourier-status grid exchanges whatever bytes
// happen to be in that storage without touching FourierRaw.
func Exchange(c Comm, g *grid.SlabGrid) {
	rank, nRanks := g.Rank(), g.NRanks()
	if nRanks == 1 {
		exchangeSelf(g)
		return
	}

	right := (rank + 1) % nRanks
	left := (rank - 1 + nRanks) % nRanks
	rest := g.RestSize()
	real := g.RealRaw()
	nLeft, nRight, localNx := g.NLeft(), g.NRight(), g.LocalNx()

	// Leg 1: my rightmost nLeft owned planes -> right's left ghost;
	// right neighbor runs the same code and lands its corresponding
	// send in my left ghost.
	if nLeft > 0 {
		send := real[localNx*rest : (localNx+nLeft)*rest]
		recv := real[0 : nLeft*rest]
		c.SendRecvFloat64(send, right, recv, left)
	}

	// Leg 2: my leftmost nRight owned planes -> left's right ghost.
	if nRight > 0 {
		send := real[nLeft*rest : (nLeft+nRight)*rest]
		recv := real[(nLeft+localNx)*rest : (nLeft+localNx+nRight)*rest]
		c.SendRecvFloat64(send, left, recv, right)
	}
}

// exchangeSelf handles the nRanks==1 case, where both neighbors are
// this same rank: the exchange degenerates to a local periodic wrap
// of the owned region into its own ghosts.
func exchangeSelf(g *grid.SlabGrid) {
	rest := g.RestSize()
	real := g.RealRaw()
	nLeft, nRight, localNx := g.NLeft(), g.NRight(), g.LocalNx()

	if nLeft > 0 {
		src := real[localNx*rest : (localNx+nLeft)*rest]
		dst := real[0 : nLeft*rest]
		copy(dst, src)
	}
	if nRight > 0 {
		src := real[nLeft*rest : (nLeft+nRight)*rest]
		dst := real[(nLeft+localNx)*rest : (nLeft+localNx+nRight)*rest]
		copy(dst, src)
	}
}

// FoldGhost is the accumulate-and-zero counterpart Exchange's
// copy-to-ghost doesn't cover: after kernel.Scatter, a particle near
// a slab boundary may have deposited mass into this rank's ghost
// planes even though those cells are really owned by a neighbor (or,
// at nRanks==1, by the opposite edge of the same rank's own periodic
// grid). FoldGhost sends each ghost plane to whichever rank owns it
// and adds it into that rank's corresponding owned plane, then zeros
// the ghost locally so a later gather never double-counts it.
// Required after Scatter and before the FFT driver's gather, exactly
// the "before a second scatter pass in interlacing" moment
// SPEC_FULL.md section 4.3 calls out.
func FoldGhost(c Comm, g *grid.SlabGrid) {
	rank, nRanks := g.Rank(), g.NRanks()
	if nRanks == 1 {
		foldGhostSelf(g)
		return
	}

	right := (rank + 1) % nRanks
	left := (rank - 1 + nRanks) % nRanks
	rest := g.RestSize()
	real := g.RealRaw()
	nLeft, nRight, localNx := g.NLeft(), g.NRight(), g.LocalNx()

	// My left ghost holds mass that belongs to left's rightmost
	// owned planes; left's right ghost holds the symmetric
	// contribution for my leftmost owned planes. One Sendrecv each
	// way folds both legs.
	if nLeft > 0 {
		send := real[0 : nLeft*rest]
		recv := make([]float64, nLeft*rest)
		c.SendRecvFloat64(send, left, recv, right)
		addInto(real[localNx*rest:(localNx+nLeft)*rest], recv)
		zero(send)
	}
	if nRight > 0 {
		send := real[(nLeft+localNx)*rest : (nLeft+localNx+nRight)*rest]
		recv := make([]float64, nRight*rest)
		c.SendRecvFloat64(send, right, recv, left)
		addInto(real[nLeft*rest:(nLeft+nRight)*rest], recv)
		zero(send)
	}
}

func foldGhostSelf(g *grid.SlabGrid) {
	rest := g.RestSize()
	real := g.RealRaw()
	nLeft, nRight, localNx := g.NLeft(), g.NRight(), g.LocalNx()

	if nLeft > 0 {
		src := real[0 : nLeft*rest]
		dst := real[localNx*rest : (localNx+nLeft)*rest]
		addInto(dst, src)
		zero(src)
	}
	if nRight > 0 {
		src := real[(nLeft+localNx)*rest : (nLeft+localNx+nRight)*rest]
		dst := real[nLeft*rest : (nLeft+nRight)*rest]
		addInto(dst, src)
		zero(src)
	}
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
