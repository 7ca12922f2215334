package valuation

import (
	"math"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound signals that a referenced scenario, approach or comp does
	// not exist. No writes have happened when it is returned.
	ErrNotFound = eris.New("record not found")
	// ErrDuplicate signals an attempt to create an approach instance for a
	// scenario that already has one of that type.
	ErrDuplicate = eris.New("duplicate record")
	// ErrValidation signals malformed input rejected before any write.
	ErrValidation = eris.New("invalid input")
	// ErrSyncFailed signals that one of the collection synchronizations
	// failed after writes were already attempted. Earlier writes are not
	// rolled back; the revaluation sweep converges the derived fields later.
	ErrSyncFailed = eris.New("synchronization failed")
)

// Engine owns the valuation reconciliation and calculation logic. All
// store access goes through the injected handle and all saves of the same
// approach are serialized through a per-approach mutex, so two callers
// cannot interleave a synchronize step with a recompute step.
type Engine struct {
	db    *gorm.DB
	log   *zap.Logger
	locks keyedMutex
}

func NewEngine(db *gorm.DB, log *zap.Logger) *Engine {
	return &Engine{db: db, log: log.With(zap.String("component", "valuation"))}
}

// keyedMutex hands out one mutex per key. Keys are never evicted; the key
// space is bounded by the number of approach records.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	m, ok := k.m[key]
	if !ok {
		m = &sync.Mutex{}
		k.m[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// safeDiv returns 0 on a zero denominator. Calculators never produce
// NaN or Inf for numeric edge cases.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// parseAmount reads a stored adjustment value. Descriptive (non-numeric)
// values contribute nothing to totals.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
