package mongodb

import (
	"context"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TicketRepository implements the repositories.TicketRepository interface
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) repositories.TicketRepository {
	return &TicketRepository{
		collection: db.Collection("tickets"),
	}
}

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()
	if ticket.AllNumbers == nil {
		ticket.AllNumbers = models.FlattenGrid(ticket.Numbers)
	}
	if ticket.MarkedNumbers == nil {
		ticket.MarkedNumbers = []int{}
	}
	res, err := r.collection.InsertOne(ctx, ticket)
	if err != nil {
		return err
	}
	ticket.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindByUser finds all tickets owned by a user, newest first
func (r *TicketRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// FindByUserAndGame finds a user's tickets for one game
func (r *TicketRepository) FindByUserAndGame(ctx context.Context, userID, gameID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"userId": userID, "gameId": gameID})
}

// FindByGame finds all tickets of a game
func (r *TicketRepository) FindByGame(ctx context.Context, gameID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"gameId": gameID})
}

// FindByLeague finds all tickets bound to a league
func (r *TicketRepository) FindByLeague(ctx context.Context, leagueID primitive.ObjectID) ([]*models.Ticket, error) {
	return r.find(ctx, bson.M{"leagueId": leagueID})
}

func (r *TicketRepository) find(ctx context.Context, filter bson.M) ([]*models.Ticket, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

// MarkNumberForGame marks a called number on every ticket of the game that
// carries it. $addToSet keeps markedNumbers duplicate-free if a number is
// re-announced after a transient failure.
func (r *TicketRepository) MarkNumberForGame(ctx context.Context, gameID primitive.ObjectID, n int) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"gameId": gameID, "allNumbers": n},
		bson.M{
			"$addToSet": bson.M{"markedNumbers": n},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}

// AddMark marks one number on one ticket. $addToSet makes repeats a no-op.
func (r *TicketRepository) AddMark(ctx context.Context, id primitive.ObjectID, n int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"markedNumbers": n},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPatternWon flags a pattern on a ticket, once
func (r *TicketRepository) SetPatternWon(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, at time.Time) (bool, error) {
	field := "patterns." + string(pattern)
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, field: bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			field: true,
			"patternTimes." + string(pattern): at,
			"updatedAt":                       time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Delete deletes a ticket
func (r *TicketRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
