package cell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/missionsim/internal/effect"
	"github.com/roach88/missionsim/internal/ir"
)

// Linear is the state of a linear integration cell: an accumulated volume
// and the rate (per second) at which it currently changes.
type Linear struct {
	Volume float64
	Rate   float64
}

// VolumeAfter returns the volume once elapsed time has passed at the
// current rate.
func (l Linear) VolumeAfter(elapsed ir.Duration) float64 {
	return l.Volume + l.Rate*elapsed.Seconds()
}

// LinearEffect changes a linear cell: the rate is shifted by RateDelta, the
// volume is replaced if a volume was set, and VolumeDelta is then added to
// the volume.
type LinearEffect struct {
	RateDelta   float64
	VolumeDelta float64
	hasVolume   bool
	volume      float64
}

// AddRate shifts the integration rate.
func AddRate(delta float64) LinearEffect {
	return LinearEffect{RateDelta: delta}
}

// AddVolume shifts the accumulated volume. Volume shifts commute.
func AddVolume(delta float64) LinearEffect {
	return LinearEffect{VolumeDelta: delta}
}

// SetVolume replaces the accumulated volume.
func SetVolume(v float64) LinearEffect {
	return LinearEffect{hasVolume: true, volume: v}
}

// Volume returns the volume this effect sets, if any.
func (e LinearEffect) Volume() (float64, bool) {
	return e.volume, e.hasVolume
}

func (e LinearEffect) touchesVolume() bool {
	return e.hasVolume || e.VolumeDelta != 0
}

func (e LinearEffect) String() string {
	format := func(op string, v float64) string {
		return op + "(" + strconv.FormatFloat(v, 'g', -1, 64) + ")"
	}
	var parts []string
	if e.RateDelta != 0 || !e.touchesVolume() {
		parts = append(parts, format("addRate", e.RateDelta))
	}
	if e.hasVolume {
		parts = append(parts, format("setVolume", e.volume))
	}
	if e.VolumeDelta != 0 {
		parts = append(parts, format("addVolume", e.VolumeDelta))
	}
	return strings.Join(parts, "+")
}

// LinearIntegration is the cell kind of a real-valued accumulator.
//
// Rate and volume shifts always commute, so concurrent shifts add. Volume
// sets are last-wins in sequence. A concurrent set is only allowed when
// nothing else in parallel touches the volume, or when both sides set the
// same volume.
type LinearIntegration struct{}

var _ Kind[Linear, LinearEffect] = LinearIntegration{}

func (LinearIntegration) Empty() LinearEffect { return LinearEffect{} }

func (LinearIntegration) Sequentially(prefix, suffix LinearEffect) LinearEffect {
	out := LinearEffect{RateDelta: prefix.RateDelta + suffix.RateDelta}
	if suffix.hasVolume {
		out.hasVolume, out.volume = true, suffix.volume
		out.VolumeDelta = suffix.VolumeDelta
		return out
	}
	out.hasVolume, out.volume = prefix.hasVolume, prefix.volume
	out.VolumeDelta = prefix.VolumeDelta + suffix.VolumeDelta
	return out
}

func (LinearIntegration) Concurrently(left, right LinearEffect) (LinearEffect, error) {
	out := LinearEffect{RateDelta: left.RateDelta + right.RateDelta}
	switch {
	case !left.hasVolume && !right.hasVolume:
		out.VolumeDelta = left.VolumeDelta + right.VolumeDelta
	case !right.touchesVolume():
		out.hasVolume, out.volume, out.VolumeDelta = left.hasVolume, left.volume, left.VolumeDelta
	case !left.touchesVolume():
		out.hasVolume, out.volume, out.VolumeDelta = right.hasVolume, right.volume, right.VolumeDelta
	case left.hasVolume && right.hasVolume && left.volume == right.volume &&
		left.VolumeDelta == 0 && right.VolumeDelta == 0:
		out.hasVolume, out.volume = true, left.volume
	default:
		return LinearEffect{}, effect.NewConflict(left, right,
			fmt.Sprintf("concurrent volume changes %s and %s", left, right))
	}
	return out, nil
}

func (LinearIntegration) Apply(state Linear, eff LinearEffect) Linear {
	state.Rate += eff.RateDelta
	if eff.hasVolume {
		state.Volume = eff.volume
	}
	state.Volume += eff.VolumeDelta
	return state
}

func (LinearIntegration) Step(state Linear, elapsed ir.Duration) Linear {
	state.Volume = state.VolumeAfter(elapsed)
	return state
}
