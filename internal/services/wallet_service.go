package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/models"
	"github.com/housiehub/housie-backend/internal/repositories"
)

// WalletService defines the interface for wallet operations. Every balance
// movement writes a ledger entry; topups and withdrawals sit in a pending
// state until an admin approves or rejects them.
type WalletService interface {
	Balance(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Credit(ctx context.Context, userID primitive.ObjectID, amount int64, description string) error
	Debit(ctx context.Context, userID primitive.ObjectID, amount int64, description string) error
	Transactions(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error)
	RequestTopup(ctx context.Context, userID primitive.ObjectID, amount int64, reference string) (*models.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64) (*models.Transaction, error)
	PendingPayments(ctx context.Context) ([]*models.Transaction, error)
	ApprovePayment(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error)
	RejectPayment(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error)
}

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	userRepo repositories.UserRepository
	txRepo   repositories.TransactionRepository
}

var _ WalletService = (*WalletServiceImpl)(nil)

// NewWalletService creates a new WalletService
func NewWalletService(userRepo repositories.UserRepository, txRepo repositories.TransactionRepository) *WalletServiceImpl {
	return &WalletServiceImpl{userRepo: userRepo, txRepo: txRepo}
}

// Balance returns the user's current wallet balance.
func (s *WalletServiceImpl) Balance(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to load user: %w", err)
	}
	return user.WalletBalance, nil
}

// Credit adds amount to the user's balance and records a completed credit
// entry in the ledger.
func (s *WalletServiceImpl) Credit(ctx context.Context, userID primitive.ObjectID, amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive: %w", apperrors.ErrValidationFailure)
	}

	ok, err := s.userRepo.AdjustBalance(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
	}

	s.record(ctx, userID, models.TransactionCredit, amount, models.TransactionCompleted, description, "")
	return nil
}

// Debit removes amount from the user's balance and records a completed
// debit entry. Fails with ErrInsufficientBalance when the balance does not
// cover the amount.
func (s *WalletServiceImpl) Debit(ctx context.Context, userID primitive.ObjectID, amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive: %w", apperrors.ErrValidationFailure)
	}

	ok, err := s.userRepo.AdjustBalance(ctx, userID, -amount)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if !ok {
		// The conditional update rejects both a missing user and a balance
		// below the debit; look the user up to tell them apart.
		if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		return fmt.Errorf("debit of %d: %w", amount, apperrors.ErrInsufficientBalance)
	}

	s.record(ctx, userID, models.TransactionDebit, amount, models.TransactionCompleted, description, "")
	return nil
}

// Transactions returns the user's ledger, newest first.
func (s *WalletServiceImpl) Transactions(ctx context.Context, userID primitive.ObjectID) ([]*models.Transaction, error) {
	txs, err := s.txRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// RequestTopup records a pending credit. The balance moves only once an
// admin approves the payment.
func (s *WalletServiceImpl) RequestTopup(ctx context.Context, userID primitive.ObjectID, amount int64, reference string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("topup amount must be positive: %w", apperrors.ErrValidationFailure)
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tx := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionCredit,
		Amount:      amount,
		Status:      models.TransactionPending,
		Description: "Wallet topup",
		Reference:   reference,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record topup request: %w", err)
	}
	return tx, nil
}

// RequestWithdrawal debits the balance up front and records a pending debit.
// A rejection refunds the hold.
func (s *WalletServiceImpl) RequestWithdrawal(ctx context.Context, userID primitive.ObjectID, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive: %w", apperrors.ErrValidationFailure)
	}

	ok, err := s.userRepo.AdjustBalance(ctx, userID, -amount)
	if err != nil {
		return nil, fmt.Errorf("failed to hold withdrawal amount: %w", err)
	}
	if !ok {
		if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("user %s: %w", userID.Hex(), apperrors.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		return nil, fmt.Errorf("withdrawal of %d: %w", amount, apperrors.ErrInsufficientBalance)
	}

	tx := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionDebit,
		Amount:      amount,
		Status:      models.TransactionPending,
		Description: "Wallet withdrawal",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		// The hold is in place but the ledger entry failed; give the money
		// back rather than strand it.
		if _, rerr := s.userRepo.AdjustBalance(ctx, userID, amount); rerr != nil {
			slog.Error("Failed to refund withdrawal hold after ledger failure",
				"userId", userID.Hex(), "amount", amount, "error", rerr)
			return nil, fmt.Errorf("withdrawal hold for user %s of %d stranded: %w", userID.Hex(), amount, apperrors.ErrReconciliation)
		}
		return nil, fmt.Errorf("failed to record withdrawal request: %w", err)
	}
	return tx, nil
}

// PendingPayments returns every transaction awaiting admin review.
func (s *WalletServiceImpl) PendingPayments(ctx context.Context) ([]*models.Transaction, error) {
	txs, err := s.txRepo.FindPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	return txs, nil
}

// ApprovePayment completes a pending transaction. Approving a topup credits
// the user's balance; approving a withdrawal simply releases the hold taken
// when the withdrawal was requested.
func (s *WalletServiceImpl) ApprovePayment(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.loadTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	ok, err := s.txRepo.UpdateStatus(ctx, txID, models.TransactionPending, models.TransactionCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("transaction %s is not pending: %w", txID.Hex(), apperrors.ErrInvalidState)
	}

	if tx.Type == models.TransactionCredit {
		ok, err := s.userRepo.AdjustBalance(ctx, tx.UserID, tx.Amount)
		if err != nil || !ok {
			slog.Error("Approved topup could not be credited",
				"txId", txID.Hex(), "userId", tx.UserID.Hex(), "amount", tx.Amount, "error", err)
			return nil, fmt.Errorf("topup %s approved but credit failed: %w", txID.Hex(), apperrors.ErrReconciliation)
		}
	}

	tx.Status = models.TransactionCompleted
	slog.Info("Payment approved", "txId", txID.Hex(), "type", tx.Type, "amount", tx.Amount)
	return tx, nil
}

// RejectPayment fails a pending transaction. Rejecting a withdrawal refunds
// the hold taken when it was requested.
func (s *WalletServiceImpl) RejectPayment(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.loadTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	ok, err := s.txRepo.UpdateStatus(ctx, txID, models.TransactionPending, models.TransactionFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to reject transaction: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("transaction %s is not pending: %w", txID.Hex(), apperrors.ErrInvalidState)
	}

	if tx.Type == models.TransactionDebit {
		ok, err := s.userRepo.AdjustBalance(ctx, tx.UserID, tx.Amount)
		if err != nil || !ok {
			slog.Error("Rejected withdrawal could not be refunded",
				"txId", txID.Hex(), "userId", tx.UserID.Hex(), "amount", tx.Amount, "error", err)
			return nil, fmt.Errorf("withdrawal %s rejected but refund failed: %w", txID.Hex(), apperrors.ErrReconciliation)
		}
	}

	tx.Status = models.TransactionFailed
	slog.Info("Payment rejected", "txId", txID.Hex(), "type", tx.Type, "amount", tx.Amount)
	return tx, nil
}

func (s *WalletServiceImpl) loadTransaction(ctx context.Context, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.txRepo.FindByID(ctx, txID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("transaction %s: %w", txID.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return tx, nil
}

// record writes a ledger entry for a balance movement that already happened.
// Ledger failures are logged, not surfaced: the balance is authoritative.
func (s *WalletServiceImpl) record(ctx context.Context, userID primitive.ObjectID, typ models.TransactionType, amount int64, status models.TransactionStatus, description, reference string) {
	tx := &models.Transaction{
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Status:      status,
		Description: description,
		Reference:   reference,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		slog.Error("Failed to write ledger entry", "userId", userID.Hex(), "type", typ, "amount", amount, "error", err)
	}
}
