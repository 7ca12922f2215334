package valuation

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Diff is the outcome of comparing a desired row set against the persisted
// one. Update rows carry the persisted primary key with the desired values.
type Diff[T any] struct {
	Add    []T
	Update []T
	Delete []T
}

func (d Diff[T]) Empty() bool {
	return len(d.Add) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// DiffByKey compares collections keyed by a stable business key such as
// adj_key or comparison_key. Desired rows with a blank key are dropped,
// duplicate keys keep the first occurrence, and an update is only issued
// when a tracked field actually differs.
//
//	key     extracts the business key
//	changed reports whether the stored row needs a write
//	carry   moves the stored identity onto the desired row
func DiffByKey[T any](existing, desired []T, key func(T) string, changed func(old, cur T) bool, carry func(old, cur T) T) Diff[T] {
	stored := make(map[string]T, len(existing))
	for _, row := range existing {
		if k := key(row); k != "" {
			stored[k] = row
		}
	}

	var d Diff[T]
	seen := make(map[string]struct{}, len(desired))
	for _, row := range desired {
		k := key(row)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		old, ok := stored[k]
		if !ok {
			d.Add = append(d.Add, row)
			continue
		}
		if changed(old, row) {
			d.Update = append(d.Update, carry(old, row))
		}
	}
	for _, row := range existing {
		k := key(row)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			d.Delete = append(d.Delete, row)
		}
	}
	return d
}

// DiffByID compares collections keyed by surrogate id. A zero id marks a
// new row; a persisted id absent from the desired set marks a delete. A
// submitted id that no longer exists in the store is treated as new, and
// duplicate non-zero ids keep the first occurrence. carry moves the
// stored identity (and timestamps) onto updated rows.
func DiffByID[T any](existing, desired []T, id func(T) uint, setID func(T, uint) T, carry func(old, cur T) T) Diff[T] {
	stored := make(map[uint]T, len(existing))
	for _, row := range existing {
		stored[id(row)] = row
	}

	var d Diff[T]
	seen := make(map[uint]struct{}, len(desired))
	for _, row := range desired {
		rid := id(row)
		if rid == 0 {
			d.Add = append(d.Add, row)
			continue
		}
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		old, ok := stored[rid]
		if !ok {
			d.Add = append(d.Add, setID(row, 0))
			continue
		}
		d.Update = append(d.Update, carry(old, row))
	}
	for _, row := range existing {
		if _, ok := seen[id(row)]; !ok {
			d.Delete = append(d.Delete, row)
		}
	}
	return d
}

// applyDiff writes the three batches concurrently. Rows inside one batch
// have no ordering dependency on rows in another, so the batches race;
// the caller must not read the collection back until applyDiff returns.
// A failed batch does not undo its siblings.
func applyDiff[T any](ctx context.Context, db *gorm.DB, d Diff[T]) error {
	g, ctx := errgroup.WithContext(ctx)

	if len(d.Add) > 0 {
		rows := d.Add
		g.Go(func() error {
			return db.WithContext(ctx).Create(&rows).Error
		})
	}
	if len(d.Update) > 0 {
		rows := d.Update
		g.Go(func() error {
			for i := range rows {
				if err := db.WithContext(ctx).Save(&rows[i]).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}
	if len(d.Delete) > 0 {
		rows := d.Delete
		g.Go(func() error {
			// Removed rows must free their unique-index slot right away, or a
			// later save could never re-add the same business key.
			return db.WithContext(ctx).Unscoped().Delete(&rows).Error
		})
	}
	return g.Wait()
}

// syncKeyed loads the persisted rows in scope, diffs them against the
// desired rows by business key and applies the result.
func syncKeyed[T any](ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, desired []T, key func(T) string, changed func(old, cur T) bool, carry func(old, cur T) T) error {
	var existing []T
	if err := scope(db.WithContext(ctx)).Find(&existing).Error; err != nil {
		return err
	}
	d := DiffByKey(existing, desired, key, changed, carry)
	if d.Empty() {
		return nil
	}
	return applyDiff(ctx, db, d)
}

// syncByID loads the persisted rows in scope, diffs them by surrogate id
// and applies the result.
func syncByID[T any](ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB, desired []T, id func(T) uint, setID func(T, uint) T, carry func(old, cur T) T) error {
	var existing []T
	if err := scope(db.WithContext(ctx)).Find(&existing).Error; err != nil {
		return err
	}
	d := DiffByID(existing, desired, id, setID, carry)
	if d.Empty() {
		return nil
	}
	return applyDiff(ctx, db, d)
}
