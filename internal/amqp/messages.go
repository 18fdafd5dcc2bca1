package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ImportMessage asks a worker to copy a workbook into the database.
// The import id is assigned when the message is created so the publisher
// and the worker log the same id.
type ImportMessage struct {
	ImportID  string    `json:"import_id"`
	Workbook  string    `json:"workbook"`
	Sheets    []string  `json:"sheets,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportMessage creates an import message with a fresh id
func NewImportMessage(workbook string, sheets []string) *ImportMessage {
	return &ImportMessage{
		ImportID:  uuid.NewString(),
		Workbook:  workbook,
		Sheets:    sheets,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportMessageFromJSON decodes and validates a message.
func ImportMessageFromJSON(data []byte) (*ImportMessage, error) {
	var msg ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ImportID == "" {
		return nil, errors.New("import message without import_id")
	}
	if msg.Workbook == "" {
		return nil, errors.New("import message without workbook")
	}
	return &msg, nil
}
