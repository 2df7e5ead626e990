package entity

import "time"

// PaymentMethod represents how a payment was made.
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCheck    PaymentMethod = "CHECK"
	MethodCard     PaymentMethod = "CARD"
	MethodCash     PaymentMethod = "CASH"
	MethodOther    PaymentMethod = "OTHER"
)

var validMethods = map[PaymentMethod]bool{
	MethodTransfer: true,
	MethodCheck:    true,
	MethodCard:     true,
	MethodCash:     true,
	MethodOther:    true,
}

// IsValid returns true if the method is a recognized payment method.
func (m PaymentMethod) IsValid() bool {
	return validMethods[m]
}

// String returns the string representation of the method.
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is one entry of an invoice's payment ledger. Payments are
// immutable once recorded; corrections remove the payment wholesale.
type Payment struct {
	ID          string        `json:"id"`
	Amount      float64       `json:"amount"`
	PaymentDate time.Time     `json:"payment_date"`
	Method      PaymentMethod `json:"method"`
	Reference   string        `json:"reference,omitempty"`
	Comment     string        `json:"comment,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
