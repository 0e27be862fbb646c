package domain

import "time"

// Event types
const (
	EventTypeAccountCreated    = "account.created"
	EventTypeDepositCompleted  = "deposit.completed"
	EventTypeWithdrawCompleted = "withdraw.completed"
	EventTypeTransferCompleted = "transfer.completed"
)

// Aggregate types
const (
	AggregateTypeAccount  = "account"
	AggregateTypeTransfer = "transfer"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// AccountCreatedEvent payload
type AccountCreatedEvent struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
}

// BalanceChangedEvent payload for deposits and withdrawals.
type BalanceChangedEvent struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
}

// TransferCompletedEvent payload
type TransferCompletedEvent struct {
	CorrelationID string `json:"correlation_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	EventAt       string `json:"event_at"`
}

// ToPayload converts an event struct into the generic outbox payload.
func (e AccountCreatedEvent) ToPayload() map[string]any {
	return map[string]any{"account_id": e.AccountID, "name": e.Name}
}

// ToPayload converts an event struct into the generic outbox payload.
func (e BalanceChangedEvent) ToPayload() map[string]any {
	return map[string]any{
		"transaction_id": e.TransactionID,
		"account_id":     e.AccountID,
		"amount":         e.Amount,
		"balance":        e.Balance,
	}
}

// ToPayload converts an event struct into the generic outbox payload.
func (e TransferCompletedEvent) ToPayload() map[string]any {
	return map[string]any{
		"correlation_id":  e.CorrelationID,
		"from_account_id": e.FromAccountID,
		"to_account_id":   e.ToAccountID,
		"amount":          e.Amount,
		"event_at":        e.EventAt,
	}
}
