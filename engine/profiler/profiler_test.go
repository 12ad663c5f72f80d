package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestPassTimingsAccumulate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now))

	for range 2 {
		end := p.Begin("gbuffer")
		clock.advance(4 * time.Millisecond)
		end()
	}
	end := p.Begin("depth")
	clock.advance(time.Millisecond)
	end()

	timings := p.Passes()
	require.Len(t, timings, 2)
	assert.Equal(t, "gbuffer", timings[0].Name)
	assert.Equal(t, 2, timings[0].Count)
	assert.Equal(t, 4*time.Millisecond, timings[0].Average)
	assert.Equal(t, "depth", timings[1].Name)
}

func TestTickReportsAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(100*time.Millisecond))

	p.Begin("fog")()
	clock.advance(50 * time.Millisecond)
	assert.False(t, p.Tick())

	clock.advance(60 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Empty(t, p.Passes())
}

func TestNilProfilerBeginIsNoop(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() { p.Begin("x")() })
}
