package models

import "time"

const (
	PaymentStatusScheduled = "scheduled"
	PaymentStatusPaid      = "paid"
	PaymentStatusOverdue   = "overdue"
)

// PaymentModel is a scheduled or settled installment on a contract.
// Capture happens at the payment service; this row mirrors its outcome.
type PaymentModel struct {
	Base
	ContractID  string     `json:"contract_id" gorm:"index;not null"`
	AmountCents int64      `json:"amount_cents" gorm:"not null"`
	Currency    string     `json:"currency"     gorm:"size:3;default:EUR"`
	DueAt       time.Time  `json:"due_at"       gorm:"index"`
	PaidAt      *time.Time `json:"paid_at"`
	Status      string     `json:"status"       gorm:"index;default:scheduled"` // scheduled | paid | overdue
}

func (PaymentModel) TableName() string { return "payments" }
