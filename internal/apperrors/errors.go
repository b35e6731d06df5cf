// Package apperrors defines the error taxonomy shared by the game engine.
// Handlers dispatch on these sentinels with errors.Is to pick status codes
// and reason codes; services wrap them with context via fmt.Errorf and %w.
package apperrors

import "errors"

var (
	// ErrNotFound: the referenced game, ticket, league or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: the operation is not valid in the current lifecycle
	// state (game not live, deadline passed, game full, already joined).
	ErrInvalidState = errors.New("invalid state")

	// ErrValidationFailure: the claim's data does not hold up against the
	// server's own records (marks not a subset of called numbers, pattern
	// not actually complete). Logged distinctly as a potential fraud signal.
	ErrValidationFailure = errors.New("validation failure")

	// ErrAlreadyClaimed: this ticket already holds the pattern.
	ErrAlreadyClaimed = errors.New("pattern already claimed by this ticket")

	// ErrAlreadyWon: another ticket won the pattern first.
	ErrAlreadyWon = errors.New("pattern already won by someone else")

	// ErrInsufficientBalance: a wallet debit exceeds the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrReconciliation: a win was recorded but the follow-up wallet credit
	// failed. The win record stands; the credit needs manual reconciliation.
	ErrReconciliation = errors.New("reconciliation required")

	// ErrTransientStorage: a storage operation failed in a retryable way.
	ErrTransientStorage = errors.New("transient storage failure")
)

// Code returns the wire reason code for an error, distinguishing "try again"
// from "this action is not valid" from "someone else already won".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, ErrAlreadyWon):
		return "ALREADY_WON"
	case errors.Is(err, ErrValidationFailure):
		return "VALIDATION_FAILURE"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrTransientStorage):
		return "TRY_AGAIN"
	default:
		return "INTERNAL"
	}
}
