package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JournalPostedMessage announces that a journal entry touching an
// account was posted. The worker reacts by refreshing that account's
// cached aggregations.
type JournalPostedMessage struct {
	AccountID string    `json:"account_id"`
	Date      string    `json:"date"` // YYYY-MM-DD posting date
	Timestamp time.Time `json:"timestamp"`
}

func NewJournalPostedMessage(accountID string, date time.Time) *JournalPostedMessage {
	return &JournalPostedMessage{
		AccountID: accountID,
		Date:      date.Format("2006-01-02"),
		Timestamp: time.Now().UTC(),
	}
}

func (m *JournalPostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func JournalPostedMessageFromJSON(data []byte) (*JournalPostedMessage, error) {
	var m JournalPostedMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal journal posted message: %w", err)
	}
	if m.AccountID == "" {
		return nil, errors.New("journal posted message missing account id")
	}
	return &m, nil
}
