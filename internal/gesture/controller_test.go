package gesture

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/natya/internal/skeleton"
)

// byBody is a segment whose result is chosen per tracking ID. Bodies not in
// the map fail.
type byBody struct {
	results map[uint64]Result
	calls   map[uint64]int
}

func newByBody() *byBody {
	return &byBody{results: make(map[uint64]Result), calls: make(map[uint64]int)}
}

func (s *byBody) Update(b *skeleton.Body) Result {
	s.calls[b.TrackingID]++
	if r, ok := s.results[b.TrackingID]; ok {
		return r
	}
	return Failed
}

func testRegistry(t *testing.T, defs ...*Definition) *Registry {
	t.Helper()
	r, err := NewRegistry(defs...)
	require.NoError(t, err)
	return r
}

func testDefinition(t *testing.T, typ Type, segments ...Segment) *Definition {
	t.Helper()
	d, err := NewDefinition(typ, string(typ), segments...)
	require.NoError(t, err)
	return d
}

func bodies(ids ...uint64) []skeleton.Body {
	out := make([]skeleton.Body, len(ids))
	for i, id := range ids {
		out[i] = skeleton.StandingBody(id)
	}
	return out
}

func TestNewController_Defaults(t *testing.T) {
	c, err := NewController(ControllerConfig{})
	require.NoError(t, err)

	assert.Equal(t, DefaultRegistry().Types(), c.Enabled())
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Tick())
}

func TestNewController_UnknownGesture(t *testing.T) {
	_, err := NewController(ControllerConfig{Enabled: []Type{"moonwalk"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestController_CreatesMatchersLazily(t *testing.T) {
	c, err := NewController(ControllerConfig{Enabled: []Type{TypeWaveRight, TypeMenu}})
	require.NoError(t, err)

	c.Update(bodies(4, 2))
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []uint64{2, 4}, c.TrackingIDs())

	st, ok := c.MatcherState(TypeMenu, 4)
	require.True(t, ok)
	assert.Equal(t, 0, st.Segment)

	_, ok = c.MatcherState(TypeSwipeUp, 4)
	assert.False(t, ok, "disabled gesture must not get a matcher")
}

func TestController_SkipsUntrackedAndDuplicateBodies(t *testing.T) {
	seg := newByBody()
	c, err := NewController(ControllerConfig{Registry: testRegistry(t, testDefinition(t, "probe", seg))})
	require.NoError(t, err)

	untracked := skeleton.StandingBody(5)
	untracked.Tracked = false
	frame := append(bodies(1, 1, 2), untracked)

	c.Update(frame)

	assert.Equal(t, map[uint64]int{1: 1, 2: 1}, seg.calls)
	assert.Equal(t, []uint64{1, 2}, c.TrackingIDs())
}

func TestController_DeterministicOrder(t *testing.T) {
	first := newByBody()
	second := newByBody()
	for _, id := range []uint64{3, 9} {
		first.results[id] = Succeeded
		second.results[id] = Succeeded
	}

	registry := testRegistry(t,
		testDefinition(t, "second", second),
		testDefinition(t, "first", first),
	)
	c, err := NewController(ControllerConfig{Registry: registry})
	require.NoError(t, err)

	var notified []Recognition
	c.OnRecognized = func(r Recognition) { notified = append(notified, r) }

	got := c.Update(bodies(9, 3))
	want := []Recognition{
		{Type: "second", Name: "second", TrackingID: 3, Tick: 1},
		{Type: "first", Name: "first", TrackingID: 3, Tick: 1},
		{Type: "second", Name: "second", TrackingID: 9, Tick: 1},
		{Type: "first", Name: "first", TrackingID: 9, Tick: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recognitions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, got, notified)
}

func TestController_BodiesAreIsolated(t *testing.T) {
	seg := newByBody()
	seg.results[1] = Succeeded
	seg.results[2] = Undetermined

	registry := testRegistry(t, testDefinition(t, "probe", seg, seg, seg))
	c, err := NewController(ControllerConfig{Registry: registry})
	require.NoError(t, err)

	c.Update(bodies(1, 2))
	c.Update(bodies(1, 2))

	one, ok := c.MatcherState("probe", 1)
	require.True(t, ok)
	two, ok := c.MatcherState("probe", 2)
	require.True(t, ok)

	assert.Equal(t, 2, one.Segment)
	assert.Equal(t, 0, two.Segment)
	assert.Positive(t, two.Elapsed)
}

func TestController_ReturnsRecognitions(t *testing.T) {
	c, err := NewController(ControllerConfig{})
	require.NoError(t, err)

	var got []Recognition
	for _, b := range waveFrames(3, skeleton.HandRight, 0.15) {
		got = append(got, c.Update([]skeleton.Body{b})...)
	}

	want := []Recognition{{Type: TypeWaveRight, Name: "Wave Right", TrackingID: 3, Tick: 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recognitions mismatch (-want +got):\n%s", diff)
	}
}

func TestController_TwoBodiesWaveTogether(t *testing.T) {
	c, err := NewController(ControllerConfig{Enabled: []Type{TypeWaveRight}})
	require.NoError(t, err)

	nine := waveFrames(9, skeleton.HandRight, 0.15)
	three := waveFrames(3, skeleton.HandRight, 0.15)

	var got []Recognition
	for i := range nine {
		got = append(got, c.Update([]skeleton.Body{nine[i], three[i]})...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].TrackingID)
	assert.Equal(t, uint64(9), got[1].TrackingID)
}

func TestController_StandingStill(t *testing.T) {
	c, err := NewController(ControllerConfig{})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.Empty(t, c.Update(bodies(1)), "recognition at tick %d", i+1)
	}
}

func TestController_EvictsAbsentBodies(t *testing.T) {
	c, err := NewController(ControllerConfig{Enabled: []Type{TypeMenu}, EvictAfter: 3})
	require.NoError(t, err)

	c.Update(bodies(1, 2))
	require.Equal(t, 2, c.Len())

	c.Update(bodies(2))
	c.Update(bodies(2))
	assert.Equal(t, []uint64{1, 2}, c.TrackingIDs(), "evicted too early")

	c.Update(bodies(2))
	assert.Equal(t, []uint64{2}, c.TrackingIDs())
	assert.Equal(t, 1, c.Len())

	_, ok := c.MatcherState(TypeMenu, 1)
	assert.False(t, ok)
}

func TestController_NeverEvicts(t *testing.T) {
	c, err := NewController(ControllerConfig{Enabled: []Type{TypeMenu}, EvictAfter: -1})
	require.NoError(t, err)

	c.Update(bodies(1))
	for i := 0; i < 100; i++ {
		c.Update(nil)
	}
	assert.Equal(t, []uint64{1}, c.TrackingIDs())
}

func TestController_ReturningBodyStartsOver(t *testing.T) {
	seg := newByBody()
	seg.results[1] = Succeeded

	registry := testRegistry(t, testDefinition(t, "probe", seg, seg, seg))
	c, err := NewController(ControllerConfig{Registry: registry, EvictAfter: 2})
	require.NoError(t, err)

	c.Update(bodies(1))
	c.Update(nil)
	c.Update(nil)
	assert.Zero(t, c.Len())

	c.Update(bodies(1))
	st, ok := c.MatcherState("probe", 1)
	require.True(t, ok)
	assert.Equal(t, 1, st.Segment)
}

func TestController_Configure(t *testing.T) {
	c, err := NewController(ControllerConfig{})
	require.NoError(t, err)

	c.Update(bodies(1))
	require.Equal(t, len(DefaultRegistry().Types()), c.Len())

	require.NoError(t, c.Configure(TypeMenu, TypeWaveLeft))
	assert.Equal(t, []Type{TypeWaveLeft, TypeMenu}, c.Enabled())
	assert.Equal(t, 2, c.Len())

	err = c.Configure("moonwalk")
	assert.True(t, errors.Is(err, ErrUnknownType))
	assert.Equal(t, []Type{TypeWaveLeft, TypeMenu}, c.Enabled(), "failed configure must not change the set")

	require.NoError(t, c.Configure(TypeAll))
	assert.Equal(t, DefaultRegistry().Types(), c.Enabled())
}

func TestController_SetRegistry(t *testing.T) {
	c, err := NewController(ControllerConfig{Enabled: []Type{TypeWaveRight, TypeMenu}})
	require.NoError(t, err)

	c.Update([]skeleton.Body{skeleton.MenuPose(1)})
	before, ok := c.MatcherState(TypeMenu, 1)
	require.True(t, ok)
	require.Equal(t, 1, before.Segment)

	tuned, err := c.Registry().WithLimits(TypeWaveRight, 80, 16)
	require.NoError(t, err)
	require.NoError(t, c.SetRegistry(tuned))

	assert.Equal(t, []Type{TypeWaveRight, TypeMenu}, c.Enabled())

	_, ok = c.MatcherState(TypeWaveRight, 1)
	assert.False(t, ok, "changed definition must drop its matchers")

	after, ok := c.MatcherState(TypeMenu, 1)
	require.True(t, ok, "unchanged definition must keep its matchers")
	assert.Equal(t, before, after)
}

func TestController_Reset(t *testing.T) {
	c, err := NewController(ControllerConfig{})
	require.NoError(t, err)

	c.Update(bodies(1, 2))
	c.Reset()

	assert.Zero(t, c.Len())
	assert.Empty(t, c.TrackingIDs())
	assert.Equal(t, uint64(1), c.Tick())
}
