package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// SequenceMax is the largest sequence value; the counter wraps to 1 after it.
const SequenceMax = 99999

// ErrCounterMissing is returned when the counter row has not been seeded.
var ErrCounterMissing = errors.New("counter row missing")

// errMappingExists aborts an allocation transaction whose key was mapped by a
// concurrent caller between the fast-path lookup and the write.
var errMappingExists = errors.New("mapping exists")

// NextSequence returns the value that follows v, wrapping 99999 to 1.
func NextSequence(v int) int { return (v % SequenceMax) + 1 }

// SQLCounterStore allocates identifiers against the id_mappings and
// counter_state tables. The counter update happens first inside the
// transaction, which takes the write lock (row lock on postgres, database
// lock on sqlite) and serializes concurrent allocations.
type SQLCounterStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewSQLCounterStore returns a store using db.
func NewSQLCounterStore(db *gorm.DB) *SQLCounterStore {
	return &SQLCounterStore{DB: db, Now: time.Now}
}

// Allocate returns the identifier mapped to key, creating it with format
// applied to the next sequence value when the key is new.
func (s *SQLCounterStore) Allocate(ctx context.Context, key string, format func(seq int) string) (string, bool, error) {
	if m, err := GetMapping(ctx, s.DB, key); err == nil {
		return m.MessageID, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	var issued string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.CounterState{}).
			Where("id = ?", domain.CounterRowID).
			Update("last_val", gorm.Expr("(last_val % ?) + 1", SequenceMax))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCounterMissing
		}

		if _, err := GetMapping(ctx, tx, key); err == nil {
			return errMappingExists
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		c, err := GetCounter(ctx, tx)
		if err != nil {
			return err
		}
		id := format(c.LastVal)
		if _, err := CreateMapping(ctx, tx, key, id, s.now()); err != nil {
			return err
		}
		issued = id
		return nil
	})

	switch {
	case err == nil:
		return issued, true, nil
	case errors.Is(err, errMappingExists), errors.Is(err, ErrDuplicate), isBusy(err):
		// Lost a race for the same key, or hit an issued identifier after
		// wraparound. Only the former has a mapping to return.
		if m, lerr := GetMapping(ctx, s.DB, key); lerr == nil {
			return m.MessageID, false, nil
		}
		if errors.Is(err, errMappingExists) {
			return "", false, fmt.Errorf("mapping for %q vanished", key)
		}
		return "", false, err
	default:
		return "", false, err
	}
}

// Counter returns the current counter state.
func (s *SQLCounterStore) Counter(ctx context.Context) (domain.CounterState, error) {
	c, err := GetCounter(ctx, s.DB)
	if err != nil {
		return domain.CounterState{}, err
	}
	return *c, nil
}

// Mappings returns one page of mappings, newest first, plus the total count.
func (s *SQLCounterStore) Mappings(ctx context.Context, offset, limit int) ([]domain.IDMapping, int64, error) {
	total, err := CountMappings(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	items, err := ListMappingsPage(ctx, s.DB, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *SQLCounterStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func isBusy(err error) bool {
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "database is locked") || strings.Contains(low, "sqlite_busy")
}
