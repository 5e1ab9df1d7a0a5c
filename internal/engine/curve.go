package engine

import (
	"math"
	"time"
)

// Multiplier curve m(t) = 1.0024 × 1.0718^t, t in seconds. The curve is
// published so clients render locally; server ticks are only correctness
// anchors.
const (
	curveBase   = 1.0024
	curveGrowth = 1.0718
)

// MultiplierPPM evaluates m(t) at the given elapsed time, in ppm.
func MultiplierPPM(elapsed time.Duration) int64 {
	t := elapsed.Seconds()
	if t < 0 {
		t = 0
	}
	m := curveBase * math.Pow(curveGrowth, t)
	return int64(m * 1_000_000)
}

// TimeToReach inverts the curve: the elapsed time at which m(t) first reaches
// the target multiplier. Targets at or below m(0) map to zero, which is the
// instant-crash case.
func TimeToReach(targetPPM int64) time.Duration {
	target := float64(targetPPM) / 1_000_000
	if target <= curveBase {
		return 0
	}
	t := math.Log(target/curveBase) / math.Log(curveGrowth)
	return time.Duration(t * float64(time.Second))
}
