package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"quote/internal/core"
)

// TransactionRecordedMessage tells the export worker a transaction committed.
// It carries only identifiers; the worker reads the full row from the store
// so it always exports the durable state, not a stale snapshot.
type TransactionRecordedMessage struct {
	EventID   string               `json:"event_id"`
	ID        int64                `json:"id"`
	Kind      core.TransactionKind `json:"kind"`
	Number    string               `json:"number"`
	Timestamp time.Time            `json:"timestamp"`
}

func NewTransactionRecordedMessage(tr core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		EventID:   uuid.NewString(),
		ID:        tr.ID,
		Kind:      tr.Kind,
		Number:    tr.Number,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
