package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"scheduling-engine/core/entity"

	"github.com/google/uuid"
)

// Notification is one delivered message. UserID is set only when the
// recipient is a host with an account.
type Notification struct {
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Recipient string     `db:"recipient" json:"recipient"`
	Template  string     `db:"template" json:"template"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Data      JSONB      `db:"data" json:"data"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	entity.BaseEntity
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

func (a *JSONB) Scan(value any) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, a)
}

type PaginatedNotificationEntity = entity.Pagination[Notification]

const (
	CategoryNewBooking   = "new_booking"
	CategoryCancellation = "cancellation"
	CategoryReschedule   = "reschedule"
	CategoryDailyDigest  = "daily_digest"
)

// Preferences are keyed by recipient email. A recipient without a row
// receives everything.
type Preferences struct {
	Recipient    string `db:"recipient" json:"recipient"`
	NewBooking   bool   `db:"new_booking" json:"new_booking"`
	Cancellation bool   `db:"cancellation" json:"cancellation"`
	Reschedule   bool   `db:"reschedule" json:"reschedule"`
	DailyDigest  bool   `db:"daily_digest" json:"daily_digest"`
}

func DefaultPreferences(recipient string) *Preferences {
	return &Preferences{
		Recipient:    recipient,
		NewBooking:   true,
		Cancellation: true,
		Reschedule:   true,
		DailyDigest:  true,
	}
}

// Allows reports whether the category is enabled. Unknown categories are
// always delivered.
func (p *Preferences) Allows(category string) bool {
	switch category {
	case CategoryNewBooking:
		return p.NewBooking
	case CategoryCancellation:
		return p.Cancellation
	case CategoryReschedule:
		return p.Reschedule
	case CategoryDailyDigest:
		return p.DailyDigest
	}
	return true
}
