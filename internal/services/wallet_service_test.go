package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/housiehub/housie-backend/internal/apperrors"
	"github.com/housiehub/housie-backend/internal/models"
)

func TestWalletCreditAndDebit(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 0)
	ctx := context.Background()

	require.NoError(t, f.wallet.Credit(ctx, user.ID, 500, "test credit"))
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	require.NoError(t, f.wallet.Debit(ctx, user.ID, 200, "test debit"))
	balance, err = f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)

	// Both movements hit the ledger.
	txs, err := f.wallet.Transactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestWalletDebitInsufficient(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 100)
	ctx := context.Background()

	err := f.wallet.Debit(ctx, user.ID, 101, "too much")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	// Balance untouched.
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestWalletUnknownUser(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	ghost := primitive.NewObjectID()

	_, err := f.wallet.Balance(ctx, ghost)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.wallet.Credit(ctx, ghost, 100, ""), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.wallet.Debit(ctx, ghost, 100, ""), apperrors.ErrNotFound)
}

func TestWalletInvalidAmounts(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 100)
	ctx := context.Background()

	assert.ErrorIs(t, f.wallet.Credit(ctx, user.ID, 0, ""), apperrors.ErrValidationFailure)
	assert.ErrorIs(t, f.wallet.Debit(ctx, user.ID, -5, ""), apperrors.ErrValidationFailure)
}

func TestWalletTopupFlow(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 0)
	ctx := context.Background()

	tx, err := f.wallet.RequestTopup(ctx, user.ID, 1000, "upi-ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, tx.Status)

	// Nothing moves until approval.
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	approved, err := f.wallet.ApprovePayment(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, approved.Status)

	balance, err = f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	// A second approval of the same transaction is rejected.
	_, err = f.wallet.ApprovePayment(ctx, tx.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestWalletTopupRejection(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 0)
	ctx := context.Background()

	tx, err := f.wallet.RequestTopup(ctx, user.ID, 1000, "upi-ref-2")
	require.NoError(t, err)

	rejected, err := f.wallet.RejectPayment(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, rejected.Status)

	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestWalletWithdrawalHoldAndRefund(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 1000)
	ctx := context.Background()

	tx, err := f.wallet.RequestWithdrawal(ctx, user.ID, 600)
	require.NoError(t, err)

	// The hold is taken immediately.
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)

	// A second withdrawal beyond the remainder fails.
	_, err = f.wallet.RequestWithdrawal(ctx, user.ID, 500)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	// Rejection refunds the hold.
	_, err = f.wallet.RejectPayment(ctx, tx.ID)
	require.NoError(t, err)
	balance, err = f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestWalletWithdrawalApproval(t *testing.T) {
	f := newEngineFixture()
	user := f.addUser("alice", 1000)
	ctx := context.Background()

	tx, err := f.wallet.RequestWithdrawal(ctx, user.ID, 600)
	require.NoError(t, err)

	approved, err := f.wallet.ApprovePayment(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, approved.Status)

	// Approval releases the hold without another debit.
	balance, err := f.wallet.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)
}

func TestWalletPendingPayments(t *testing.T) {
	f := newEngineFixture()
	alice := f.addUser("alice", 0)
	bob := f.addUser("bob", 500)
	ctx := context.Background()

	_, err := f.wallet.RequestTopup(ctx, alice.ID, 100, "")
	require.NoError(t, err)
	_, err = f.wallet.RequestWithdrawal(ctx, bob.ID, 200)
	require.NoError(t, err)

	pending, err := f.wallet.PendingPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
