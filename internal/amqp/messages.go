package amqp

import (
	"encoding/json"
	"time"
)

// StatementExportMessage asks the worker to render a stored statement.
// It carries only the statement ID and the requested formats, the worker
// loads the full document from the ledger.
type StatementExportMessage struct {
	StatementID string    `json:"statement_id"`
	Formats     []string  `json:"formats"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewStatementExportMessage creates an export request for the given formats
func NewStatementExportMessage(statementID string, formats []string) *StatementExportMessage {
	return &StatementExportMessage{
		StatementID: statementID,
		Formats:     formats,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatementExportMessageFromJSON creates a message from JSON bytes
func StatementExportMessageFromJSON(data []byte) (*StatementExportMessage, error) {
	var msg StatementExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
