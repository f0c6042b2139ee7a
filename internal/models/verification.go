package models

// VerificationSessionModel is one identity-verification session at the
// external KYC provider. Rows are never deleted: terminal sessions stay as an
// audit trail, and a user accumulates one row per attempt.
type VerificationSessionModel struct {
	Base
	UserID            string `json:"user_id"             gorm:"index;not null"`
	ProviderSessionID string `json:"provider_session_id" gorm:"uniqueIndex;not null"`
	Status            string `json:"status"              gorm:"index;not null"`
	Platform          string `json:"platform"            gorm:"not null"` // mobile | web
	UserAgent         string `json:"user_agent"          gorm:"type:text"`
	VerificationURL   string `json:"verification_url"    gorm:"type:text"`
}

func (VerificationSessionModel) TableName() string { return "verification_sessions" }
