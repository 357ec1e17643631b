package quota

import (
	"context"
	"errors"
	"fmt"
	"math"

	"lite-drive/internal/models"
)

var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrUnknownUser   = errors.New("unknown user")
)

const bytesPerMB = 1024 * 1024

// BytesToMB converts a byte count to the ledger's unit.
func BytesToMB(n int64) float64 {
	return float64(n) / bytesPerMB
}

type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ReserveStorage(ctx context.Context, userID int64, sizeMB float64) (bool, error)
	AdjustStorageUsed(ctx context.Context, userID int64, deltaMB float64) error
}

// Ledger tracks how much of their limit each user has consumed. Reserve
// checks and increments in one step, so concurrent uploads of one user cannot
// together go past the limit.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Reserve(ctx context.Context, userID int64, sizeMB float64) error {
	if sizeMB < 0 || math.IsNaN(sizeMB) {
		return fmt.Errorf("invalid reservation size %v", sizeMB)
	}

	ok, err := l.store.ReserveStorage(ctx, userID, sizeMB)
	if err != nil {
		return fmt.Errorf("reserve storage: %w", err)
	}
	if ok {
		return nil
	}

	user, err := l.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("reserve storage: %w", err)
	}
	if user == nil {
		return ErrUnknownUser
	}
	return fmt.Errorf("%w: %.2f MB requested, %.2f MB available",
		ErrQuotaExceeded, sizeMB, math.Max(user.StorageLimitMB-user.StorageUsedMB, 0))
}

// Commit moves the usage counter by deltaMB. The counter never drops below
// zero.
func (l *Ledger) Commit(ctx context.Context, userID int64, deltaMB float64) error {
	if deltaMB == 0 {
		return nil
	}
	if err := l.store.AdjustStorageUsed(ctx, userID, deltaMB); err != nil {
		return fmt.Errorf("commit storage delta: %w", err)
	}
	return nil
}

type Usage struct {
	UsedMB      float64 `json:"used_mb" example:"5.0"`
	LimitMB     float64 `json:"limit_mb" example:"1024"`
	AvailableMB float64 `json:"available_mb" example:"1019"`
	Percent     float64 `json:"percent" example:"0.49"`
}

func (l *Ledger) Usage(ctx context.Context, userID int64) (Usage, error) {
	user, err := l.store.GetUserByID(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	if user == nil {
		return Usage{}, ErrUnknownUser
	}
	return UsageOf(user), nil
}

func UsageOf(user *models.User) Usage {
	u := Usage{
		UsedMB:      user.StorageUsedMB,
		LimitMB:     user.StorageLimitMB,
		AvailableMB: math.Max(user.StorageLimitMB-user.StorageUsedMB, 0),
	}
	switch {
	case user.StorageLimitMB > 0:
		u.Percent = math.Min(user.StorageUsedMB/user.StorageLimitMB*100, 100)
	case user.StorageUsedMB > 0:
		u.Percent = 100
	}
	u.Percent = math.Round(u.Percent*100) / 100
	return u
}
