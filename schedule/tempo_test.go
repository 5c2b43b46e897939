package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRampEndpoints(t *testing.T) {
	assert := assert.New(t)

	r := Ramp{Start: 80, End: 120, Steps: 8}
	assert.Equal(80.0, r.BPM(0))
	assert.Equal(120.0, r.BPM(8))
	assert.Equal(120.0, r.BPM(100))
}

func TestRampMonotone(t *testing.T) {
	assert := assert.New(t)

	up := Ramp{Start: 80, End: 120, Steps: 10}
	down := Ramp{Start: 120, End: 80, Steps: 10}
	for i := 1; i <= 12; i++ {
		assert.GreaterOrEqual(up.BPM(i), up.BPM(i-1))
		assert.LessOrEqual(down.BPM(i), down.BPM(i-1))
	}
}

func TestRampClamped(t *testing.T) {
	assert := assert.New(t)

	r := Ramp{Start: 10, End: 500, Steps: 4}
	assert.Equal(float64(MinBPM), r.BPM(0))
	assert.Equal(float64(MaxBPM), r.BPM(4))
}

func TestClampBPM(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(float64(MinBPM), ClampBPM(0))
	assert.Equal(float64(MaxBPM), ClampBPM(1000))
	assert.Equal(133.0, ClampBPM(133))
}
