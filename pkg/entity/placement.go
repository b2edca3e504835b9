// pkg/entity/placement.go
package entity

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Candidate is a proposed body position and diameter.
type Candidate struct {
	Position mgl64.Vec3
	Size     float64
}

// Spaced reports whether two candidates keep the minimum clearance
// (a.Size+b.Size)*factor/2 between their centres.
func Spaced(a, b Candidate, factor float64) bool {
	return a.Position.Sub(b.Position).Len() >= (a.Size+b.Size)*factor/2
}

// PlanCluster runs rejection sampling for the seed cluster. Each body draws
// up to MaxAttempts candidates and keeps the first one spaced from every body
// accepted so far; the first body is accepted unconditionally. Bodies that
// exhaust their attempts are skipped and their indices returned.
func PlanCluster(rng *rand.Rand, cfg ClusterConfig) (accepted []Candidate, skipped []int) {
	for i := 0; i < cfg.Count; i++ {
		placed := false
		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			c := Candidate{
				Position: uniformVec(rng, cfg.BoundsMin, cfg.BoundsMax),
				Size:     uniform(rng, cfg.MinSize, cfg.MaxSize),
			}
			if fits(c, accepted, cfg.SpacingFactor) {
				accepted = append(accepted, c)
				placed = true
				break
			}
		}
		if !placed {
			skipped = append(skipped, i)
		}
	}
	return accepted, skipped
}

func fits(c Candidate, accepted []Candidate, factor float64) bool {
	for _, other := range accepted {
		if !Spaced(c, other, factor) {
			return false
		}
	}
	return true
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func uniformVec(rng *rand.Rand, min, max float64) mgl64.Vec3 {
	return mgl64.Vec3{uniform(rng, min, max), uniform(rng, min, max), uniform(rng, min, max)}
}

// offset returns centre + (u-0.5)*extent per axis with u drawn from [0,1).
func offset(rng *rand.Rand, centre, extent mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		centre[0] + (rng.Float64()-0.5)*extent[0],
		centre[1] + (rng.Float64()-0.5)*extent[1],
		centre[2] + (rng.Float64()-0.5)*extent[2],
	}
}
