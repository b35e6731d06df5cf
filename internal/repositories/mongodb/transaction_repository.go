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

// TransactionRepository implements the repositories.TransactionRepository interface
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) repositories.TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

// Create creates a new transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, tx)
	if err != nil {
		return err
	}
	tx.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a transaction by ID
func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByUser finds a user's transactions, newest first
func (r *TransactionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// FindPending finds all pending transactions, newest first
func (r *TransactionRepository) FindPending(ctx context.Context) ([]*models.Transaction, error) {
	return r.find(ctx, bson.M{"status": models.TransactionPending})
}

func (r *TransactionRepository) find(ctx context.Context, filter bson.M) ([]*models.Transaction, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []*models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	return txs, nil
}

// UpdateStatus performs a compare-and-set status transition so approving
// the same payment twice only credits once
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// CountByStatus counts transactions in a given status
func (r *TransactionRepository) CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}
