package domain

import "time"

// TransactionType distinguishes a purchased meal from a free one.
type TransactionType string

const (
	TransactionMeal TransactionType = "meal"
	TransactionFree TransactionType = "free"
)

// Transaction is an immutable ledger entry under a user.
type Transaction struct {
	ID             string          `json:"id"`
	UID            string          `json:"uid"`
	Type           TransactionType `json:"type"`
	Timestamp      time.Time       `json:"timestamp"`
	RestaurantName string          `json:"restaurant_name"`
}
