package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMultiplierStartsAtBase(t *testing.T) {
	assert.Equal(t, int64(1_002_400), MultiplierPPM(0))
	assert.Equal(t, int64(1_002_400), MultiplierPPM(-time.Second))
}

func TestMultiplierIsMonotonic(t *testing.T) {
	prev := MultiplierPPM(0)
	for s := 1; s <= 60; s++ {
		m := MultiplierPPM(time.Duration(s) * time.Second)
		assert.Greater(t, m, prev)
		prev = m
	}
}

func TestTimeToReachInvertsCurve(t *testing.T) {
	for _, target := range []int64{1_500_000, 2_000_000, 10_000_000, 100_000_000} {
		d := TimeToReach(target)
		m := MultiplierPPM(d)
		// Within one ppm-thousandth of the target either side of rounding.
		assert.InDelta(t, float64(target), float64(m), float64(target)/1000)
	}
}

func TestTimeToReachInstantCrash(t *testing.T) {
	assert.Equal(t, time.Duration(0), TimeToReach(1_000_000))
	assert.Equal(t, time.Duration(0), TimeToReach(1_002_400))
}
