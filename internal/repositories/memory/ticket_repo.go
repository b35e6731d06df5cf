package memory

import (
	"context"
	"sync"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TicketRepository implements repositories.TicketRepository in memory
type TicketRepository struct {
	tickets map[primitive.ObjectID]*models.Ticket
	mu      sync.Mutex
}

// NewTicketRepository creates a new memory ticket repository
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{
		tickets: make(map[primitive.ObjectID]*models.Ticket),
	}
}

func copyTicket(t *models.Ticket) *models.Ticket {
	cp := *t
	cp.AllNumbers = append([]int(nil), t.AllNumbers...)
	cp.MarkedNumbers = append([]int(nil), t.MarkedNumbers...)
	if t.Patterns != nil {
		cp.Patterns = make(map[models.Pattern]bool, len(t.Patterns))
		for k, v := range t.Patterns {
			cp.Patterns[k] = v
		}
	}
	if t.PatternTimes != nil {
		cp.PatternTimes = make(map[models.Pattern]time.Time, len(t.PatternTimes))
		for k, v := range t.PatternTimes {
			cp.PatternTimes[k] = v
		}
	}
	return &cp
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()
	if ticket.AllNumbers == nil {
		ticket.AllNumbers = models.FlattenGrid(ticket.Numbers)
	}
	if ticket.MarkedNumbers == nil {
		ticket.MarkedNumbers = []int{}
	}
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return copyTicket(t), nil
}

func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.filter(func(t *models.Ticket) bool { return t.UserID == userID })
}

func (r *TicketRepository) FindByUserAndGame(ctx context.Context, userID, gameID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.filter(func(t *models.Ticket) bool { return t.UserID == userID && t.GameID == gameID })
}

func (r *TicketRepository) FindByGame(ctx context.Context, gameID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.filter(func(t *models.Ticket) bool { return t.GameID == gameID })
}

func (r *TicketRepository) FindByLeague(ctx context.Context, leagueID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.filter(func(t *models.Ticket) bool { return t.LeagueID == leagueID })
}

func (r *TicketRepository) filter(keep func(*models.Ticket) bool) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets := make([]*models.Ticket, 0)
	for _, t := range r.tickets {
		if keep(t) {
			tickets = append(tickets, copyTicket(t))
		}
	}
	return tickets, nil
}

func (r *TicketRepository) MarkNumberForGame(ctx context.Context, gameID primitive.ObjectID, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.GameID == gameID {
			t.Mark(n)
			t.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *TicketRepository) AddMark(ctx context.Context, id primitive.ObjectID, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	t.Mark(n)
	t.UpdatedAt = time.Now()
	return nil
}

func (r *TicketRepository) SetPatternWon(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if t.Patterns[pattern] {
		return false, nil
	}
	if t.Patterns == nil {
		t.Patterns = make(map[models.Pattern]bool)
	}
	if t.PatternTimes == nil {
		t.PatternTimes = make(map[models.Pattern]time.Time)
	}
	t.Patterns[pattern] = true
	t.PatternTimes[pattern] = at
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.tickets, id)
	return nil
}
