package entity

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationOverduePayment  NotificationType = "OVERDUE_PAYMENT"
	NotificationUpcomingPayment NotificationType = "UPCOMING_PAYMENT"
	NotificationInfo            NotificationType = "INFO"
)

var validNotificationTypes = map[NotificationType]bool{
	NotificationOverduePayment:  true,
	NotificationUpcomingPayment: true,
	NotificationInfo:            true,
}

// IsValid returns true if the type is recognized.
func (t NotificationType) IsValid() bool {
	return validNotificationTypes[t]
}

// String returns the string representation of the type.
func (t NotificationType) String() string {
	return string(t)
}

// Notification is a derived record describing a condition on an invoice.
// At most one unread notification exists per invoice and type.
type Notification struct {
	ID            string           `json:"id"`
	UserID        int64            `json:"user_id"`
	InvoiceID     int64            `json:"invoice_id"`
	InvoiceNumber string           `json:"invoice_number"`
	ClientName    string           `json:"client_name"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
	CreationDate  time.Time        `json:"creation_date"`
	Read          bool             `json:"read"`
	Amount        float64          `json:"amount"`
}
