package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/housiehub/housie-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionRepository implements repositories.TransactionRepository in memory
type TransactionRepository struct {
	txs map[primitive.ObjectID]*models.Transaction
	mu  sync.Mutex
}

// NewTransactionRepository creates a new memory transaction repository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		txs: make(map[primitive.ObjectID]*models.Transaction),
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()
	cp := *tx
	r.txs[tx.ID] = &cp
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *tx
	return &cp, nil
}

func (r *TransactionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	return r.filter(func(tx *models.Transaction) bool { return tx.UserID == userID })
}

func (r *TransactionRepository) FindPending(ctx context.Context) ([]*models.Transaction, error) {
	return r.filter(func(tx *models.Transaction) bool { return tx.Status == models.TransactionPending })
}

func (r *TransactionRepository) filter(keep func(*models.Transaction) bool) ([]*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs := make([]*models.Transaction, 0)
	for _, tx := range r.txs {
		if keep(tx) {
			cp := *tx
			txs = append(txs, &cp)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	tx.Status = to
	tx.UpdatedAt = time.Now()
	return true, nil
}

func (r *TransactionRepository) CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, tx := range r.txs {
		if tx.Status == status {
			n++
		}
	}
	return n, nil
}
