package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusUpcoming  GameStatus = "upcoming"
	GameStatusLive      GameStatus = "live"
	GameStatusCompleted GameStatus = "completed"
	GameStatusCancelled GameStatus = "cancelled"
)

// CallingSpeed selects the cadence of the auto-calling loop
type CallingSpeed string

const (
	SpeedSlow   CallingSpeed = "slow"
	SpeedMedium CallingSpeed = "medium"
	SpeedFast   CallingSpeed = "fast"
)

// ParseCallingSpeed converts a wire string into a CallingSpeed.
func ParseCallingSpeed(s string) (CallingSpeed, bool) {
	switch CallingSpeed(s) {
	case SpeedSlow, SpeedMedium, SpeedFast:
		return CallingSpeed(s), true
	default:
		return "", false
	}
}

// MaxNumber is the highest callable number in a 90-ball game.
const MaxNumber = 90

// WinnerRecord records the single winner of one pattern in one game.
// Once written it is never modified.
type WinnerRecord struct {
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	UserName   string             `bson:"userName,omitempty" json:"userName,omitempty"`
	TicketID   primitive.ObjectID `bson:"ticketId" json:"ticketId"`
	Prize      int64              `bson:"prize" json:"prize"`
	DeclaredAt time.Time          `bson:"declaredAt" json:"declaredAt"`
}

// Game represents a single housie game instance
type Game struct {
	ID                primitive.ObjectID       `bson:"_id,omitempty" json:"id,omitempty"`
	Title             string                   `bson:"title" json:"title"`
	ScheduledTime     time.Time                `bson:"scheduledTime" json:"scheduledTime"`
	Deadline          time.Time                `bson:"deadline" json:"deadline"`
	EntryFee          int64                    `bson:"entryFee" json:"entryFee"`
	PrizePool         int64                    `bson:"prizePool" json:"prizePool"`
	MaxSpots          int                      `bson:"maxSpots" json:"maxSpots"`
	FilledSpots       int                      `bson:"filledSpots" json:"filledSpots"`
	Status            GameStatus               `bson:"status" json:"status"`
	CallingSpeed      CallingSpeed             `bson:"callingSpeed" json:"callingSpeed"`
	CalledNumbers     []int                    `bson:"calledNumbers" json:"calledNumbers"`
	PrizeDistribution map[Pattern]float64      `bson:"prizeDistribution" json:"prizeDistribution"`
	Winners           map[Pattern]WinnerRecord `bson:"winners,omitempty" json:"winners,omitempty"`
	StartedAt         time.Time                `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt       time.Time                `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedBy         primitive.ObjectID       `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt         time.Time                `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time                `bson:"updatedAt" json:"updatedAt"`
}

// DefaultPrizeDistribution is the pool split used when an admin does not
// configure one. Sums to 0.80 of the pool.
func DefaultPrizeDistribution() map[Pattern]float64 {
	return map[Pattern]float64{
		PatternEarlyFive:  0.10,
		PatternTopLine:    0.15,
		PatternMiddleLine: 0.15,
		PatternBottomLine: 0.15,
		PatternFullHouse:  0.25,
	}
}

// IsJoinable reports whether a ticket may still be purchased for this game.
func (g *Game) IsJoinable(now time.Time) bool {
	return g.Status == GameStatusUpcoming &&
		g.FilledSpots < g.MaxSpots &&
		now.Before(g.Deadline)
}

// HasCalled reports whether n is already in the called sequence.
func (g *Game) HasCalled(n int) bool {
	for _, c := range g.CalledNumbers {
		if c == n {
			return true
		}
	}
	return false
}

// RemainingNumbers returns every number in [1,MaxNumber] not yet called.
func (g *Game) RemainingNumbers() []int {
	called := make(map[int]bool, len(g.CalledNumbers))
	for _, c := range g.CalledNumbers {
		called[c] = true
	}
	remaining := make([]int, 0, MaxNumber-len(g.CalledNumbers))
	for n := 1; n <= MaxNumber; n++ {
		if !called[n] {
			remaining = append(remaining, n)
		}
	}
	return remaining
}

// PrizeFor computes the payout for a pattern: floor(prizePool * fraction).
// Truncation keeps the sum of payouts within the configured pool share.
func (g *Game) PrizeFor(p Pattern) int64 {
	frac, ok := g.PrizeDistribution[p]
	if !ok || frac <= 0 {
		return 0
	}
	return int64(math.Floor(float64(g.PrizePool) * frac))
}

// ValidatePrizeDistribution checks each fraction is in [0,1] and the sum
// does not exceed 1.
func ValidatePrizeDistribution(dist map[Pattern]float64) bool {
	sum := 0.0
	for p, frac := range dist {
		if _, ok := ParsePattern(string(p)); !ok {
			return false
		}
		if frac < 0 || frac > 1 {
			return false
		}
		sum += frac
	}
	return sum <= 1.0
}
