package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// CodeDeliveryMessage asks the dispatcher to send a one-time code to a mobile number.
type CodeDeliveryMessage struct {
	Mobile    string    `json:"mobile"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrInvalidMessage = errors.New("invalid code delivery message")

func NewCodeDeliveryMessage(mobile, code string, issuedAt, expiresAt time.Time) *CodeDeliveryMessage {
	return &CodeDeliveryMessage{
		Mobile:    mobile,
		Code:      code,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Timestamp: time.Now(),
	}
}

func (m *CodeDeliveryMessage) Validate() error {
	if m.Mobile == "" || len(m.Code) != 6 || m.ExpiresAt.IsZero() {
		return ErrInvalidMessage
	}
	return nil
}

// Expired reports whether delivering the code at now would be pointless.
func (m *CodeDeliveryMessage) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

func (m *CodeDeliveryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CodeDeliveryMessageFromJSON(data []byte) (*CodeDeliveryMessage, error) {
	var msg CodeDeliveryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
