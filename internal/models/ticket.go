package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket grid dimensions. A cell value of 0 means the cell is empty.
const (
	TicketRows       = 3
	TicketCols       = 9
	NumbersPerRow    = 5
	NumbersPerTicket = 15
)

// Ticket represents one purchased 3x9 housie ticket
type Ticket struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	GameID   primitive.ObjectID `bson:"gameId" json:"gameId"`
	LeagueID primitive.ObjectID `bson:"leagueId,omitempty" json:"leagueId,omitempty"`
	// Numbers is the 3x9 grid. Zero marks an empty cell.
	Numbers [TicketRows][TicketCols]int `bson:"numbers" json:"numbers"`
	// AllNumbers is the flattened grid, kept alongside the grid so the
	// marking path can match tickets with a plain array query.
	AllNumbers    []int                `bson:"allNumbers" json:"-"`
	MarkedNumbers []int                `bson:"markedNumbers" json:"markedNumbers"`
	Patterns      map[Pattern]bool     `bson:"patterns,omitempty" json:"patterns,omitempty"`
	PatternTimes  map[Pattern]time.Time `bson:"patternTimes,omitempty" json:"patternTimes,omitempty"`
	Price         int64                `bson:"price" json:"price"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// FlattenGrid returns the non-empty cells of a grid in row order.
func FlattenGrid(grid [TicketRows][TicketCols]int) []int {
	nums := make([]int, 0, NumbersPerTicket)
	for _, row := range grid {
		for _, n := range row {
			if n != 0 {
				nums = append(nums, n)
			}
		}
	}
	return nums
}

// HasNumber reports whether n appears anywhere on the grid.
func (t *Ticket) HasNumber(n int) bool {
	for _, row := range t.Numbers {
		for _, v := range row {
			if v == n {
				return true
			}
		}
	}
	return false
}

// IsMarked reports whether n has been marked on this ticket.
func (t *Ticket) IsMarked(n int) bool {
	for _, m := range t.MarkedNumbers {
		if m == n {
			return true
		}
	}
	return false
}

// Mark records a called number on the ticket. Numbers not on the grid and
// repeated marks are ignored.
func (t *Ticket) Mark(n int) {
	if t.HasNumber(n) && !t.IsMarked(n) {
		t.MarkedNumbers = append(t.MarkedNumbers, n)
	}
}

// HasWon reports whether this ticket already holds the given pattern.
func (t *Ticket) HasWon(p Pattern) bool {
	return t.Patterns[p]
}

// CheckPattern reports whether the ticket's current marks complete the
// pattern. Marks beyond the pattern's cells do not invalidate it.
func (t *Ticket) CheckPattern(p Pattern) bool {
	switch p {
	case PatternEarlyFive:
		return len(t.MarkedNumbers) >= NumbersPerRow
	case PatternTopLine:
		return t.lineComplete(0)
	case PatternMiddleLine:
		return t.lineComplete(1)
	case PatternBottomLine:
		return t.lineComplete(2)
	case PatternFullHouse:
		return len(t.MarkedNumbers) == NumbersPerTicket
	default:
		return false
	}
}

// lineComplete reports whether every non-empty cell of a row is marked.
func (t *Ticket) lineComplete(row int) bool {
	for _, n := range t.Numbers[row] {
		if n != 0 && !t.IsMarked(n) {
			return false
		}
	}
	return true
}
