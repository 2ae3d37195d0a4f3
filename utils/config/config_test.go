package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
)

func TestParseDefaults(t *testing.T) {
	c, err := config.Parse(nil)
	require.NoError(t, err)
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSpeed, rc.C.Speed)
	assert.Equal(t, config.DefaultPollInterval, rc.C.PollInterval)
	assert.Equal(t, config.DefaultFeedBuffer, rc.All.Junction.FeedBuffer)
	assert.Equal(t, config.DefaultPriorityLane, rc.PriorityLane)
	assert.Equal(t, "AL2", rc.PriorityLane.String())
	assert.Empty(t, rc.Preload)
}

func TestParseFull(t *testing.T) {
	data := []byte(`
control:
  speed: 5
  poll_interval: 50ms
  seed: 7
junction:
  priority_lane: AL3
  preload:
    AL3: 12
    BL2: 3
  feed_buffer: 32
output:
  uri: mongodb://localhost:27017
  db: sim
  col: departures
`)
	c, err := config.Parse(data)
	require.NoError(t, err)
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rc.C.Speed)
	assert.Equal(t, 50*time.Millisecond, rc.C.PollInterval)
	assert.Equal(t, uint64(7), rc.C.Seed)
	assert.Equal(t, entity.Lane(entity.ApproachA, entity.LaneIndexLeft), rc.PriorityLane)
	assert.Equal(t, map[entity.LaneID]int{
		entity.Lane(entity.ApproachA, entity.LaneIndexLeft):    12,
		entity.Lane(entity.ApproachB, entity.LaneIndexThrough): 3,
	}, rc.Preload)
	assert.Equal(t, 32, rc.All.Junction.FeedBuffer)
	assert.Equal(t, config.DefaultBatch, rc.All.Output.Batch)
	assert.Equal(t, config.DefaultFlushInterval, rc.All.Output.FlushInterval)
}

func TestParseUnknownField(t *testing.T) {
	_, err := config.Parse([]byte("control:\n  step: 1\n"))
	assert.Error(t, err)
}

func TestParseUnknownLane(t *testing.T) {
	for _, data := range []string{
		"junction:\n  priority_lane: XL1\n",
		"junction:\n  preload:\n    AL4: 3\n",
	} {
		_, err := config.Parse([]byte(data))
		assert.True(t, errors.Is(err, entity.ErrInvalidLaneID), data)
	}
}

func TestDumpRoundTrip(t *testing.T) {
	cl3 := entity.Lane(entity.ApproachC, entity.LaneIndexLeft)
	c := config.Config{
		Control: config.Control{Speed: 2, PollInterval: 50 * time.Millisecond},
		Junction: config.Junction{
			PriorityLane: &cl3,
			Preload:      map[entity.LaneID]int{cl3: 4},
		},
	}
	out, err := config.Dump(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), "priority_lane: CL3")
	assert.Contains(t, string(out), "CL3: 4")

	parsed, err := config.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestRuntimeConfigInvalid(t *testing.T) {
	lane := func(s string) *entity.LaneID {
		id, err := entity.ParseLaneID(s)
		require.NoError(t, err)
		return &id
	}
	cases := map[string]config.Config{
		"negative speed":     {Control: config.Control{Speed: -1}},
		"poll too long":      {Control: config.Control{PollInterval: time.Second}},
		"bd priority lane":   {Junction: config.Junction{PriorityLane: lane("BL2")}},
		"receiving priority": {Junction: config.Junction{PriorityLane: lane("CL1")}},
		"receiving preload":  {Junction: config.Junction{Preload: map[entity.LaneID]int{*lane("AL1"): 1}}},
		"negative preload":   {Junction: config.Junction{Preload: map[entity.LaneID]int{*lane("AL2"): -1}}},
		"invalid preload":    {Junction: config.Junction{Preload: map[entity.LaneID]int{entity.NumLanes: 1}}},
		"negative buffer":    {Junction: config.Junction{FeedBuffer: -1}},
		"output without db":  {Output: config.Output{URI: "mongodb://localhost"}},
	}
	for name, c := range cases {
		_, err := config.NewRuntimeConfig(c)
		assert.True(t, errors.Is(err, config.ErrInvalidConfig), name)
	}
}
