package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrizeForTruncates(t *testing.T) {
	g := &Game{
		PrizePool:         50000,
		PrizeDistribution: DefaultPrizeDistribution(),
	}
	assert.Equal(t, int64(12500), g.PrizeFor(PatternFullHouse))
	assert.Equal(t, int64(5000), g.PrizeFor(PatternEarlyFive))

	// 0.15 of 99 truncates down.
	g.PrizePool = 99
	assert.Equal(t, int64(14), g.PrizeFor(PatternTopLine))

	// Patterns without a share pay nothing.
	g.PrizeDistribution = map[Pattern]float64{PatternFullHouse: 0.5}
	assert.Equal(t, int64(0), g.PrizeFor(PatternTopLine))
}

func TestValidatePrizeDistribution(t *testing.T) {
	assert.True(t, ValidatePrizeDistribution(DefaultPrizeDistribution()))
	assert.True(t, ValidatePrizeDistribution(map[Pattern]float64{PatternFullHouse: 1.0}))

	assert.False(t, ValidatePrizeDistribution(map[Pattern]float64{PatternFullHouse: 1.1}))
	assert.False(t, ValidatePrizeDistribution(map[Pattern]float64{PatternFullHouse: -0.1}))
	assert.False(t, ValidatePrizeDistribution(map[Pattern]float64{
		PatternFullHouse: 0.6,
		PatternTopLine:   0.5,
	}))
	assert.False(t, ValidatePrizeDistribution(map[Pattern]float64{"diagonal": 0.1}))
}

func TestIsJoinable(t *testing.T) {
	now := time.Now()
	g := &Game{
		Status:   GameStatusUpcoming,
		MaxSpots: 2,
		Deadline: now.Add(time.Hour),
	}
	assert.True(t, g.IsJoinable(now))

	g.FilledSpots = 2
	assert.False(t, g.IsJoinable(now))

	g.FilledSpots = 1
	assert.False(t, g.IsJoinable(now.Add(2*time.Hour)))

	g.Status = GameStatusLive
	assert.False(t, g.IsJoinable(now))
}

func TestRemainingNumbers(t *testing.T) {
	g := &Game{CalledNumbers: []int{1, 45, 90}}
	remaining := g.RemainingNumbers()
	assert.Len(t, remaining, MaxNumber-3)
	assert.NotContains(t, remaining, 45)
	assert.Contains(t, remaining, 2)

	assert.True(t, g.HasCalled(90))
	assert.False(t, g.HasCalled(89))
}
