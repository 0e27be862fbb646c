package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Balance   pgtype.Numeric     `json:"balance"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
}

type Transaction struct {
	ID            string             `json:"id"`
	AccountID     string             `json:"account_id"`
	Operation     string             `json:"operation"`
	Amount        pgtype.Numeric     `json:"amount"`
	OperatorName  string             `json:"operator_name"`
	CorrelationID string             `json:"correlation_id"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}
