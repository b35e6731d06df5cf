package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType distinguishes wallet credits from debits
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// TransactionStatus tracks the approval state of a wallet movement
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one wallet ledger entry
type Transaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Type        TransactionType    `bson:"type" json:"type"`
	Amount      int64              `bson:"amount" json:"amount"`
	Status      TransactionStatus  `bson:"status" json:"status"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Reference   string             `bson:"reference,omitempty" json:"reference,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
