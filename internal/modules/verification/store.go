package verification

import (
	"errors"
	"time"

	"github.com/lendfront/portal-core/internal/models"
	"gorm.io/gorm"
)

// UpdateResult is the outcome of a conditional status write.
type UpdateResult int

const (
	// UpdateApplied includes the idempotent repeat of the same terminal status.
	UpdateApplied UpdateResult = iota
	// UpdateStale means the write would move status backward in the lattice.
	UpdateStale
	// UpdateNotFound means no session exists for the provider session id.
	UpdateNotFound
)

// Store persists verification sessions. Rows are append-or-update only; the
// single-active-session invariant is enforced by the Service, not here.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Latest returns the most recently created session for a user, or nil.
func (st *Store) Latest(userID string) (*models.VerificationSessionModel, error) {
	var s models.VerificationSessionModel
	err := st.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ByProviderSessionID returns the session for an external id, or nil.
func (st *Store) ByProviderSessionID(id string) (*models.VerificationSessionModel, error) {
	var s models.VerificationSessionModel
	if err := st.db.First(&s, "provider_session_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (st *Store) Insert(s *models.VerificationSessionModel) error {
	return st.db.Create(s).Error
}

// UpdateStatus applies a status only if it moves forward in the lattice.
// The guard lives in the WHERE clause of a single UPDATE, so concurrent
// webhook deliveries and poll-triggered pulls for the same session are
// commutative without locks:
//   - a stored terminal status accepts only its own repeat (no-op apply);
//   - a higher-ranked incoming status always wins;
//   - an equal-ranked non-terminal status wins only with a later-or-equal
//     timestamp (updated_at is the tie-breaker).
func (st *Store) UpdateStatus(providerSessionID string, next Status, at time.Time) (UpdateResult, error) {
	rank := next.Rank()
	tx := st.db.Model(&models.VerificationSessionModel{}).
		Where("provider_session_id = ?", providerSessionID)

	if next.Terminal() {
		tx = tx.Where("status IN ? OR status = ?", statusesBelowRank(rank), string(next))
	} else {
		tx = tx.Where("status IN ? OR (status IN ? AND updated_at <= ?)",
			statusesBelowRank(rank), statusesAtRank(rank), at)
	}

	res := tx.Updates(map[string]interface{}{
		"status":     string(next),
		"updated_at": at,
	})
	if res.Error != nil {
		return UpdateStale, res.Error
	}
	if res.RowsAffected > 0 {
		return UpdateApplied, nil
	}

	existing, err := st.ByProviderSessionID(providerSessionID)
	if err != nil {
		return UpdateStale, err
	}
	if existing == nil {
		return UpdateNotFound, nil
	}
	return UpdateStale, nil
}
