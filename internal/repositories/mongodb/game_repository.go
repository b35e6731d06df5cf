package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameRepository implements the repositories.GameRepository interface
type GameRepository struct {
	collection *mongo.Collection
}

// NewGameRepository creates a new GameRepository
func NewGameRepository(db *mongo.Database) repositories.GameRepository {
	return &GameRepository{
		collection: db.Collection("games"),
	}
}

// Create creates a new game
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	game.CreatedAt = time.Now()
	game.UpdatedAt = time.Now()
	if game.CalledNumbers == nil {
		game.CalledNumbers = []int{}
	}
	res, err := r.collection.InsertOne(ctx, game)
	if err != nil {
		return err
	}
	game.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a game by ID
func (r *GameRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	var game models.Game
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&game)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// FindByStatus finds games by status, most recently scheduled first
func (r *GameRepository) FindByStatus(ctx context.Context, status models.GameStatus, limit int64) ([]*models.Game, error) {
	opts := options.Find().SetSort(bson.M{"scheduledTime": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	if games == nil {
		games = []*models.Game{}
	}
	return games, nil
}

// FindByIDs finds games by a set of IDs
func (r *GameRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Game, error) {
	if len(ids) == 0 {
		return []*models.Game{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// FindDueForPromotion finds upcoming games whose deadline has passed
func (r *GameRepository) FindDueForPromotion(ctx context.Context, now time.Time) ([]*models.Game, error) {
	filter := bson.M{
		"status":   models.GameStatusUpcoming,
		"deadline": bson.M{"$lte": now},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// Update replaces the mutable admin-editable fields of a game
func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	game.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": game.ID}, game)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete deletes a game
func (r *GameRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountByStatus counts games in a given status
func (r *GameRepository) CountByStatus(ctx context.Context, status models.GameStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}

// Count counts all games
func (r *GameRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// UpdateStatus performs a compare-and-set status transition
func (r *GameRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.GameStatus) (bool, error) {
	now := time.Now()
	set := bson.M{"status": to, "updatedAt": now}
	switch to {
	case models.GameStatusLive:
		set["startedAt"] = now
	case models.GameStatusCompleted, models.GameStatusCancelled:
		set["completedAt"] = now
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// AppendCalledNumber appends n to calledNumbers while the game is live and
// n has not been called. The filter makes the append idempotent and keeps
// the sequence duplicate-free under concurrent callers.
func (r *GameRepository) AppendCalledNumber(ctx context.Context, id primitive.ObjectID, n int) (bool, error) {
	filter := bson.M{
		"_id":           id,
		"status":        models.GameStatusLive,
		"calledNumbers": bson.M{"$ne": n},
	}
	update := bson.M{
		"$push": bson.M{"calledNumbers": n},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// SetWinner records the winner of a pattern with a single conditional
// update: the write only lands if the game is live and no winner exists for
// the pattern yet. Concurrent claims for the same (game, pattern) key
// therefore resolve to exactly one winner.
func (r *GameRepository) SetWinner(ctx context.Context, id primitive.ObjectID, pattern models.Pattern, rec models.WinnerRecord) (bool, error) {
	field := "winners." + string(pattern)
	filter := bson.M{
		"_id":    id,
		"status": models.GameStatusLive,
		field:    bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{field: rec, "updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ReserveSpot increments filledSpots while the game is joinable
func (r *GameRepository) ReserveSpot(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":      id,
		"status":   models.GameStatusUpcoming,
		"deadline": bson.M{"$gt": now},
		"$expr":    bson.M{"$lt": bson.A{"$filledSpots", "$maxSpots"}},
	}
	update := bson.M{
		"$inc": bson.M{"filledSpots": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ReleaseSpot decrements filledSpots after a failed join
func (r *GameRepository) ReleaseSpot(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "filledSpots": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"filledSpots": -1}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("no spot to release")
	}
	return nil
}

// SetCallingSpeed updates the calling cadence for a game
func (r *GameRepository) SetCallingSpeed(ctx context.Context, id primitive.ObjectID, speed models.CallingSpeed) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"callingSpeed": speed, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
