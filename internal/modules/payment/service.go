package payment

import (
	"errors"
	"time"

	"github.com/lendfront/portal-core/internal/models"
	"gorm.io/gorm"
)

var (
	errPaymentNotFound  = errors.New("payment not found")
	errPaymentNotOpen   = errors.New("payment is not open")
	errContractNotFound = errors.New("contract not found")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// contractOwned verifies the contract belongs to the user.
func (s *Service) contractOwned(userID, contractID string) error {
	var count int64
	err := s.db.Model(&models.ContractModel{}).
		Where("id = ? AND user_id = ?", contractID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return errContractNotFound
	}
	return nil
}

// MarkPaid settles a scheduled or overdue installment. The actual capture
// happens at the payment service; this mirrors its outcome into the portal.
func (s *Service) MarkPaid(userID, paymentID string) (*models.PaymentModel, error) {
	var p models.PaymentModel
	err := s.db.
		Joins("JOIN contracts ON contracts.id = payments.contract_id").
		Where("payments.id = ? AND contracts.user_id = ?", paymentID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errPaymentNotFound
		}
		return nil, err
	}

	now := time.Now()
	res := s.db.Model(&models.PaymentModel{}).
		Where("id = ? AND status IN ?", p.ID,
			[]string{models.PaymentStatusScheduled, models.PaymentStatusOverdue}).
		Updates(map[string]interface{}{
			"status":  models.PaymentStatusPaid,
			"paid_at": &now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errPaymentNotOpen
	}

	if err := s.db.Where("id = ?", p.ID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkOverdue flags past-due scheduled installments. Called from the status
// listing so the portal shows current state without a background sweep.
func (s *Service) MarkOverdue(contractID string, now time.Time) error {
	return s.db.Model(&models.PaymentModel{}).
		Where("contract_id = ? AND status = ? AND due_at < ?",
			contractID, models.PaymentStatusScheduled, now).
		Update("status", models.PaymentStatusOverdue).Error
}
