package models

import "time"

const (
	ContractStatusDraft     = "draft"
	ContractStatusSubmitted = "submitted"
	ContractStatusActive    = "active"
	ContractStatusClosed    = "closed"
)

// ContractModel is a loan contract between a customer and a merchant.
// Amortization math lives outside this service; the portal only stores and
// displays the agreed terms.
type ContractModel struct {
	Base
	UserID       string     `json:"user_id"     gorm:"index;not null"`
	MerchantName string     `json:"merchant_name"`
	AmountCents  int64      `json:"amount_cents" gorm:"not null"`
	Currency     string     `json:"currency"     gorm:"size:3;default:EUR"`
	TermMonths   int        `json:"term_months"`
	Status       string     `json:"status"       gorm:"index;default:draft"` // draft | submitted | active | closed
	SubmittedAt  *time.Time `json:"submitted_at"`

	Payments []PaymentModel `json:"payments,omitempty" gorm:"foreignKey:ContractID"`
}

func (ContractModel) TableName() string { return "contracts" }
