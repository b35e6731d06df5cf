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

// LeagueRepository implements the repositories.LeagueRepository interface
type LeagueRepository struct {
	collection *mongo.Collection
}

// NewLeagueRepository creates a new LeagueRepository
func NewLeagueRepository(db *mongo.Database) repositories.LeagueRepository {
	return &LeagueRepository{
		collection: db.Collection("leagues"),
	}
}

// Create creates a new league
func (r *LeagueRepository) Create(ctx context.Context, league *models.League) error {
	league.CreatedAt = time.Now()
	league.UpdatedAt = time.Now()
	if league.Members == nil {
		league.Members = []models.LeagueMember{}
	}
	res, err := r.collection.InsertOne(ctx, league)
	if err != nil {
		return err
	}
	league.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a league by ID
func (r *LeagueRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.League, error) {
	var league models.League
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&league)
	if err != nil {
		return nil, err
	}
	return &league, nil
}

// FindByCode finds a league by invite code
func (r *LeagueRepository) FindByCode(ctx context.Context, code string) (*models.League, error) {
	var league models.League
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&league)
	if err != nil {
		return nil, err
	}
	return &league, nil
}

// FindPublic finds public leagues, newest first
func (r *LeagueRepository) FindPublic(ctx context.Context, limit int64) ([]*models.League, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"visibility": "public"}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var leagues []*models.League
	if err := cursor.All(ctx, &leagues); err != nil {
		return nil, err
	}
	if leagues == nil {
		leagues = []*models.League{}
	}
	return leagues, nil
}

// FindByMember finds leagues the user created or joined
func (r *LeagueRepository) FindByMember(ctx context.Context, userID primitive.ObjectID) ([]*models.League, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"creatorId": userID},
		bson.M{"members.userId": userID},
	}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var leagues []*models.League
	if err := cursor.All(ctx, &leagues); err != nil {
		return nil, err
	}
	if leagues == nil {
		leagues = []*models.League{}
	}
	return leagues, nil
}

// AddMember appends a member unless already present
func (r *LeagueRepository) AddMember(ctx context.Context, id primitive.ObjectID, member models.LeagueMember) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "members.userId": bson.M{"$ne": member.UserID}},
		bson.M{
			"$push": bson.M{"members": member},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		// Either missing or already a member; let the caller distinguish.
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return false, mongo.ErrNoDocuments
		}
		return false, nil
	}
	return res.ModifiedCount == 1, nil
}
