// Package quota is the single authority for metered resource consumption.
// Every charge runs as a conflict-detected read-modify-write against the
// per-user quota record, so concurrent callers (other devices, other tabs)
// can never both spend the last unit of headroom.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"postpilot/internal/entity"
	"postpilot/internal/plan"
)

// Status is the discriminated outcome of one consume attempt.
type Status string

const (
	StatusOK              Status = "OK"
	StatusInsufficient    Status = "INSUFFICIENT"
	StatusUnlimited       Status = "UNLIMITED"
	StatusAlreadyConsumed Status = "ALREADY_CONSUMED"
	StatusNotFound        Status = "NOT_FOUND"
	StatusError           Status = "ERROR"
)

// ConsumeResult reports the outcome of a consume call.
//
// Remaining mirrors the caller display contract: an OK result carries the
// new used value, an INSUFFICIENT result carries the unchanged used value.
type ConsumeResult struct {
	Success   bool   `json:"success"`
	Status    Status `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Used      int64  `json:"used"`
	Limit     *int64 `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// ConsumeOptions carries optional parameters for a consume call.
type ConsumeOptions struct {
	// IdempotencyKey deduplicates retried charges. A key already present
	// on the record returns ALREADY_CONSUMED without incrementing.
	IdempotencyKey string
}

const (
	maxConsumeAttempts = 4
	conflictRetryDelay = 15 * time.Millisecond
)

// errWriteConflict signals that another transaction advanced the record
// between our read and our guarded write. The attempt is retried.
var errWriteConflict = errors.New("quota record write conflict")

// Store implements the transactional quota operations on a relational DB.
type Store struct {
	db    *gorm.DB
	plans *plan.Resolver
}

// NewStore creates a quota store. The resolver supplies plan ceilings.
func NewStore(db *gorm.DB, plans *plan.Resolver) *Store {
	return &Store{db: db, plans: plans}
}

// Consume atomically charges amount units of resource against the user's
// plan ceiling. Callers must treat a StatusError result as "quota state
// unknown" and must not proceed as if the charge succeeded.
func (s *Store) Consume(ctx context.Context, userID uint, planKey, resource string, amount int64, opts ConsumeOptions) ConsumeResult {
	if s == nil || s.db == nil {
		return errorResult("quota store not initialised")
	}
	if userID == 0 {
		return ConsumeResult{
			Status:  StatusNotFound,
			Code:    "not_found",
			Message: "user id is required",
		}
	}
	if amount <= 0 {
		return errorResult(fmt.Sprintf("invalid consume amount %d", amount))
	}

	limits := s.plans.Resolve(ctx, planKey)
	ceiling, err := limits.LimitFor(resource)
	if err != nil {
		return errorResult(err.Error())
	}

	// Unlimited resources are never persisted as consumed; short-circuit
	// before touching the record to avoid the write entirely.
	if ceiling == nil {
		return ConsumeResult{
			Success: true,
			Status:  StatusUnlimited,
			Code:    "unlimited",
			Message: "resource is unlimited for this plan",
		}
	}

	for attempt := 1; attempt <= maxConsumeAttempts; attempt++ {
		result, err := s.tryConsume(ctx, userID, planKey, resource, amount, limits, *ceiling, opts.IdempotencyKey)
		if err == nil {
			return result
		}
		if !errors.Is(err, errWriteConflict) {
			return errorResult(fmt.Sprintf("quota transaction failed: %v", err))
		}
		if attempt == maxConsumeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errorResult(fmt.Sprintf("quota transaction cancelled: %v", ctx.Err()))
		case <-time.After(conflictRetryDelay * time.Duration(attempt)):
		}
	}

	return errorResult("quota transaction retries exhausted")
}

// tryConsume runs one transactional read-modify-write attempt. The write
// is guarded by the row version observed at read time; zero rows affected
// means another writer got there first and the attempt must be retried
// from the read.
func (s *Store) tryConsume(ctx context.Context, userID uint, planKey, resource string, amount int64, limits plan.Limits, ceiling int64, idemKey string) (ConsumeResult, error) {
	var result ConsumeResult

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.loadOrCreateRecord(tx, userID, planKey, limits)
		if err != nil {
			return err
		}

		if idemKey != "" && record.ConsumedKeys.Has(idemKey) {
			used := usedValue(record, resource)
			result = ConsumeResult{
				Success:   false,
				Status:    StatusAlreadyConsumed,
				Code:      "already_consumed",
				Message:   "idempotency key was already consumed",
				Used:      used,
				Limit:     &ceiling,
				Remaining: used,
			}
			return nil
		}

		used := usedValue(record, resource)
		newUsed := used + amount
		if newUsed > ceiling {
			// No write: the transaction commits empty and the counter
			// stays where it was.
			result = ConsumeResult{
				Success:   false,
				Status:    StatusInsufficient,
				Code:      "insufficient",
				Message:   fmt.Sprintf("quota exhausted: %d/%d used", used, ceiling),
				Used:      used,
				Limit:     &ceiling,
				Remaining: used,
			}
			return nil
		}

		usedCol, limitCol, err := resourceColumns(resource)
		if err != nil {
			return err
		}

		keys := record.ConsumedKeys
		if keys == nil {
			keys = entity.TimeMap{}
		}
		if idemKey != "" {
			keys[idemKey] = time.Now().UTC()
		}

		updates := map[string]interface{}{
			usedCol:         newUsed,
			limitCol:        ceiling,
			"plan_key":      planKey,
			"consumed_keys": keys,
			"version":       record.Version + 1,
			"updated_at":    time.Now().UTC(),
		}

		// The guard is the row version, not the counter: a writer for a
		// different resource would pass a counter guard and still clobber
		// the consumed_keys snapshot written here.
		res := tx.Model(&entity.DbQuotaRecord{}).
			Where("id = ? AND version = ?", record.ID, record.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errWriteConflict
		}

		result = ConsumeResult{
			Success:   true,
			Status:    StatusOK,
			Code:      "ok",
			Message:   "quota consumed",
			Used:      newUsed,
			Limit:     &ceiling,
			Remaining: newUsed,
		}
		return nil
	})

	if txErr != nil {
		return ConsumeResult{}, txErr
	}
	return result, nil
}

// loadOrCreateRecord fetches the per-user record, creating it lazily with
// zero usage and the resolved plan ceilings. A unique index on user_id
// turns a concurrent double-create into a conflict retry.
func (s *Store) loadOrCreateRecord(tx *gorm.DB, userID uint, planKey string, limits plan.Limits) (*entity.DbQuotaRecord, error) {
	var record entity.DbQuotaRecord
	err := tx.Where("user_id = ?", userID).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = entity.DbQuotaRecord{
		UserID:         userID,
		PlanKey:        planKey,
		CaptionsLimit:  limits.Captions,
		ImagesLimit:    limits.Images,
		PostsLimit:     limits.Posts,
		ExtensionLimit: limits.ExtensionCalls,
		ConsumedKeys:   entity.TimeMap{},
	}
	if createErr := tx.Create(&record).Error; createErr != nil {
		// Most likely the unique index fired because another session
		// created the row first.
		return nil, errWriteConflict
	}
	return &record, nil
}

// Remaining returns the current used/limit pair for display purposes.
// It never mutates state; a missing record reports zero usage against
// the resolved plan ceiling.
func (s *Store) Remaining(ctx context.Context, userID uint, planKey, resource string) (int64, *int64, error) {
	if s == nil || s.db == nil {
		return 0, nil, errors.New("quota store not initialised")
	}
	if userID == 0 {
		return 0, nil, errors.New("user id is required")
	}

	limits := s.plans.Resolve(ctx, planKey)
	ceiling, err := limits.LimitFor(resource)
	if err != nil {
		return 0, nil, err
	}

	var record entity.DbQuotaRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ceiling, nil
		}
		return 0, nil, err
	}

	return usedValue(&record, resource), ceiling, nil
}

func errorResult(message string) ConsumeResult {
	return ConsumeResult{
		Status:  StatusError,
		Code:    "error",
		Message: message,
	}
}

func usedValue(record *entity.DbQuotaRecord, resource string) int64 {
	if record == nil {
		return 0
	}
	switch resource {
	case plan.ResourceCaptions:
		return record.CaptionsUsed
	case plan.ResourceImages:
		return record.ImagesUsed
	case plan.ResourcePosts:
		return record.PostsUsed
	case plan.ResourceExtension:
		return record.ExtensionUsed
	default:
		return 0
	}
}

func resourceColumns(resource string) (usedCol, limitCol string, err error) {
	switch resource {
	case plan.ResourceCaptions:
		return "captions_used", "captions_limit", nil
	case plan.ResourceImages:
		return "images_used", "images_limit", nil
	case plan.ResourcePosts:
		return "posts_used", "posts_limit", nil
	case plan.ResourceExtension:
		return "extension_used", "extension_limit", nil
	default:
		return "", "", fmt.Errorf("unknown quota resource %q", resource)
	}
}
