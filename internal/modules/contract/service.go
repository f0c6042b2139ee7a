package contract

import (
	"context"
	"errors"
	"time"

	"github.com/lendfront/portal-core/internal/models"
	"github.com/lendfront/portal-core/internal/modules/verification"
	"gorm.io/gorm"
)

// StatusGetter resolves the current verification status of a user. Satisfied
// by the verification service.
type StatusGetter interface {
	GetStatus(ctx context.Context, userID string) (verification.Status, error)
}

type Service struct {
	db       *gorm.DB
	verifier StatusGetter
}

func NewService(db *gorm.DB, verifier StatusGetter) *Service {
	return &Service{db: db, verifier: verifier}
}

func (s *Service) Create(userID string, dto *CreateContractDTO) (*models.ContractModel, error) {
	currency := dto.Currency
	if currency == "" {
		currency = "EUR"
	}
	c := models.ContractModel{
		UserID:       userID,
		MerchantName: dto.MerchantName,
		AmountCents:  dto.AmountCents,
		Currency:     currency,
		TermMonths:   dto.TermMonths,
		Status:       models.ContractStatusDraft,
	}
	return &c, s.db.Create(&c).Error
}

func (s *Service) Get(userID, contractID string) (*models.ContractModel, error) {
	var c models.ContractModel
	err := s.db.Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("due_at ASC")
	}).Where("id = ? AND user_id = ?", contractID, userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errContractNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Submit moves a draft contract to submitted. Submission requires the user to
// have passed identity verification; this is the gate the KYC flow unlocks.
func (s *Service) Submit(ctx context.Context, userID, contractID string) (*models.ContractModel, error) {
	status, err := s.verifier.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status != verification.StatusApproved {
		return nil, errIdentityNotVerified
	}

	now := time.Now()
	res := s.db.Model(&models.ContractModel{}).
		Where("id = ? AND user_id = ? AND status = ?", contractID, userID, models.ContractStatusDraft).
		Updates(map[string]interface{}{
			"status":       models.ContractStatusSubmitted,
			"submitted_at": &now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.classifyTransitionFailure(userID, contractID, errContractNotDraft)
	}
	return s.Get(userID, contractID)
}

// Activate moves a submitted contract to active and materializes its monthly
// installment schedule.
func (s *Service) Activate(userID, contractID string) (*models.ContractModel, error) {
	var c models.ContractModel
	err := s.db.Where("id = ? AND user_id = ?", contractID, userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errContractNotFound
		}
		return nil, err
	}
	if c.Status != models.ContractStatusSubmitted {
		return nil, errContractNotSubmitted
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ContractModel{}).
			Where("id = ? AND status = ?", contractID, models.ContractStatusSubmitted).
			Update("status", models.ContractStatusActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errContractNotSubmitted
		}
		return tx.Create(buildSchedule(&c)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, contractID)
}

// buildSchedule splits the principal into equal monthly installments, with the
// rounding remainder on the first one.
func buildSchedule(c *models.ContractModel) []models.PaymentModel {
	per := c.AmountCents / int64(c.TermMonths)
	remainder := c.AmountCents - per*int64(c.TermMonths)

	payments := make([]models.PaymentModel, c.TermMonths)
	for i := range payments {
		amount := per
		if i == 0 {
			amount += remainder
		}
		payments[i] = models.PaymentModel{
			ContractID:  c.ID,
			AmountCents: amount,
			Currency:    c.Currency,
			DueAt:       time.Now().AddDate(0, i+1, 0),
			Status:      models.PaymentStatusScheduled,
		}
	}
	return payments
}

// classifyTransitionFailure distinguishes "not yours / missing" from "wrong
// status" after a guarded zero-row update.
func (s *Service) classifyTransitionFailure(userID, contractID string, wrongStatus error) error {
	var count int64
	if err := s.db.Model(&models.ContractModel{}).
		Where("id = ? AND user_id = ?", contractID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errContractNotFound
	}
	return wrongStatus
}
