package resource

import (
	"github.com/roach88/missionsim/internal/ir"
)

// Window is a half-open span of simulated time [Start, End).
type Window struct {
	Start ir.Duration
	End   ir.Duration
}

// Forever is the window [0, ∞).
var Forever = Window{Start: 0, End: ir.MaxDuration}

// IsEmpty reports whether the window contains no instant.
func (w Window) IsEmpty() bool {
	return w.End <= w.Start
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t ir.Duration) bool {
	return w.Start <= t && t < w.End
}

// Piece is one validity window of an approximated profile. For constant
// dynamics Value is the value itself; for linear dynamics it is the
// serialized coefficients {"initial", "rate"} relative to Window.Start.
type Piece struct {
	Window Window     `json:"window"`
	Value  ir.IRValue `json:"value"`
	Linear bool       `json:"linear,omitempty"`
}

// Approximate converts a profile into validity windows. Zero-length
// segments are dropped, a discrete value persists until it changes (equal
// consecutive values are merged), and the last piece extends to
// ir.MaxDuration.
func Approximate(p *Profile) []Piece {
	segments := p.Segments()
	pieces := make([]Piece, 0, len(segments))

	for i, seg := range segments {
		end := seg.End()
		last := i == len(segments)-1
		if last {
			end = ir.MaxDuration
		} else if seg.Extent <= 0 {
			continue
		}

		var piece Piece
		switch d := seg.Dynamics.(type) {
		case Linear:
			piece = Piece{Window: Window{Start: seg.Start, End: end}, Value: d.Serialize(), Linear: true}
		default:
			piece = Piece{Window: Window{Start: seg.Start, End: end}, Value: d.ValueAt(0)}
		}

		if n := len(pieces); n > 0 && !piece.Linear && !pieces[n-1].Linear &&
			ir.Equal(pieces[n-1].Value, piece.Value) {
			pieces[n-1].Window.End = piece.Window.End
			continue
		}
		pieces = append(pieces, piece)
	}
	return pieces
}

// FirstSatisfied returns the earliest instant in window at which a discrete
// value is a member of targets. A discrete value is constant over the
// window, so the answer is the window start or nothing; sub-windows are not
// scanned for transitions.
func FirstSatisfied(value ir.IRValue, targets []ir.IRValue, window Window) (ir.Duration, bool) {
	if window.IsEmpty() {
		return 0, false
	}
	for _, target := range targets {
		if ir.Equal(value, target) {
			return window.Start, true
		}
	}
	return 0, false
}
