package valuation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal_backend/internal/model"
)

func adjRow(id uint, key, value string, order int) model.SalesCompAdjustment {
	row := model.SalesCompAdjustment{AdjKey: key, AdjValue: value, Order: order}
	row.ID = id
	return row
}

var (
	adjKeyFn = func(r model.SalesCompAdjustment) string { return r.AdjKey }
	adjDiff  = func(old, cur model.SalesCompAdjustment) bool {
		return old.AdjValue != cur.AdjValue || old.Order != cur.Order
	}
	adjCarry = func(old, cur model.SalesCompAdjustment) model.SalesCompAdjustment {
		cur.Model = old.Model
		return cur
	}
)

func TestDiffByKey(t *testing.T) {
	tests := []struct {
		name     string
		existing []model.SalesCompAdjustment
		desired  []model.SalesCompAdjustment
		add      []string
		update   []string
		delete   []string
	}{
		{
			name:     "new key added alongside unchanged row",
			existing: []model.SalesCompAdjustment{adjRow(1, "time", "5", 0)},
			desired: []model.SalesCompAdjustment{
				adjRow(0, "time", "5", 0),
				adjRow(0, "zoning", "2", 1),
			},
			add: []string{"zoning"},
		},
		{
			name:     "changed value updates",
			existing: []model.SalesCompAdjustment{adjRow(1, "time", "5", 0)},
			desired:  []model.SalesCompAdjustment{adjRow(0, "time", "7", 0)},
			update:   []string{"time"},
		},
		{
			name:     "changed order updates",
			existing: []model.SalesCompAdjustment{adjRow(1, "time", "5", 0)},
			desired:  []model.SalesCompAdjustment{adjRow(0, "time", "5", 3)},
			update:   []string{"time"},
		},
		{
			name:     "missing key deletes",
			existing: []model.SalesCompAdjustment{adjRow(1, "time", "5", 0), adjRow(2, "zoning", "2", 1)},
			desired:  []model.SalesCompAdjustment{adjRow(0, "time", "5", 0)},
			delete:   []string{"zoning"},
		},
		{
			name:     "blank keys dropped",
			existing: nil,
			desired:  []model.SalesCompAdjustment{adjRow(0, "", "5", 0)},
		},
		{
			name:     "duplicate desired keys keep first",
			existing: nil,
			desired: []model.SalesCompAdjustment{
				adjRow(0, "time", "5", 0),
				adjRow(0, "time", "9", 1),
			},
			add: []string{"time"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := DiffByKey(tc.existing, tc.desired, adjKeyFn, adjDiff, adjCarry)

			keys := func(rows []model.SalesCompAdjustment) []string {
				out := make([]string, 0, len(rows))
				for _, r := range rows {
					out = append(out, r.AdjKey)
				}
				return out
			}
			assert.ElementsMatch(t, tc.add, keys(d.Add))
			assert.ElementsMatch(t, tc.update, keys(d.Update))
			assert.ElementsMatch(t, tc.delete, keys(d.Delete))
		})
	}

	t.Run("duplicate first occurrence wins", func(t *testing.T) {
		d := DiffByKey(nil, []model.SalesCompAdjustment{
			adjRow(0, "time", "5", 0),
			adjRow(0, "time", "9", 1),
		}, adjKeyFn, adjDiff, adjCarry)
		require.Len(t, d.Add, 1)
		assert.Equal(t, "5", d.Add[0].AdjValue)
	})

	t.Run("update carries stored identity", func(t *testing.T) {
		d := DiffByKey(
			[]model.SalesCompAdjustment{adjRow(42, "time", "5", 0)},
			[]model.SalesCompAdjustment{adjRow(0, "time", "7", 0)},
			adjKeyFn, adjDiff, adjCarry)
		require.Len(t, d.Update, 1)
		assert.Equal(t, uint(42), d.Update[0].ID)
		assert.Equal(t, "7", d.Update[0].AdjValue)
	})
}

func TestDiffByKeyIdempotent(t *testing.T) {
	existing := []model.SalesCompAdjustment{
		adjRow(1, "time", "5", 0),
		adjRow(2, "zoning", "2", 1),
	}
	desired := []model.SalesCompAdjustment{
		adjRow(0, "time", "5", 0),
		adjRow(0, "zoning", "2", 1),
	}

	d := DiffByKey(existing, desired, adjKeyFn, adjDiff, adjCarry)
	assert.True(t, d.Empty())
}

func TestDiffByID(t *testing.T) {
	row := func(id uint, t string) model.IncomeSource {
		r := model.IncomeSource{Type: t}
		r.ID = id
		return r
	}
	idFn := func(r model.IncomeSource) uint { return r.ID }
	setID := func(r model.IncomeSource, id uint) model.IncomeSource { r.ID = id; return r }
	carry := func(old, cur model.IncomeSource) model.IncomeSource { cur.Model = old.Model; return cur }

	existing := []model.IncomeSource{row(1, "office"), row(2, "retail")}
	desired := []model.IncomeSource{
		row(0, "storage"),  // new
		row(1, "office"),   // kept
		row(99, "stale"),   // unknown id, re-created
	}

	d := DiffByID(existing, desired, idFn, setID, carry)

	require.Len(t, d.Add, 2)
	for _, r := range d.Add {
		assert.Zero(t, r.ID)
	}
	require.Len(t, d.Update, 1)
	assert.Equal(t, uint(1), d.Update[0].ID)
	require.Len(t, d.Delete, 1)
	assert.Equal(t, uint(2), d.Delete[0].ID)

	t.Run("duplicate ids keep first occurrence", func(t *testing.T) {
		d := DiffByID(
			[]model.IncomeSource{row(1, "office")},
			[]model.IncomeSource{row(1, "office"), row(1, "office again")},
			idFn, setID, carry)
		require.Len(t, d.Update, 1)
		assert.Equal(t, "office", d.Update[0].Type)
		assert.Empty(t, d.Add)
		assert.Empty(t, d.Delete)
	})
}

func TestSyncCompAdjustmentsStore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 1000, LandSize: 1000})
	sc := createScenario(t, e, ev.ID)
	ap := model.SalesApproach{EvaluationID: ev.ID, ScenarioID: sc.ID}
	require.NoError(t, e.db.Create(&ap).Error)
	comp := model.SalesComp{SalesApproachID: ap.ID, Weight: 100}
	require.NoError(t, e.db.Create(&comp).Error)

	inputs := []AdjustmentInput{
		{AdjKey: "time", AdjValue: "5"},
		{AdjKey: "zoning", AdjValue: "2", Order: 1},
	}
	require.NoError(t, e.syncSalesCompAdjustments(ctx, comp.ID, inputs))

	var rows []model.SalesCompAdjustment
	require.NoError(t, e.db.Where("sales_comp_id = ?", comp.ID).Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 2)

	// Same desired state again is a no-op.
	require.NoError(t, e.syncSalesCompAdjustments(ctx, comp.ID, inputs))
	var again []model.SalesCompAdjustment
	require.NoError(t, e.db.Where("sales_comp_id = ?", comp.ID).Order("id ASC").Find(&again).Error)
	require.Len(t, again, 2)
	assert.Equal(t, rows[0].ID, again[0].ID)

	// Dropping a key removes its row, changing a value rewrites in place.
	require.NoError(t, e.syncSalesCompAdjustments(ctx, comp.ID, []AdjustmentInput{
		{AdjKey: "time", AdjValue: "8"},
	}))
	var final []model.SalesCompAdjustment
	require.NoError(t, e.db.Where("sales_comp_id = ?", comp.ID).Find(&final).Error)
	require.Len(t, final, 1)
	assert.Equal(t, "time", final[0].AdjKey)
	assert.Equal(t, "8", final[0].AdjValue)
}

func TestSyncReAddsRemovedAdjustmentKey(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 1000, LandSize: 1000})
	sc := createScenario(t, e, ev.ID)
	ap := model.CostApproach{EvaluationID: ev.ID, ScenarioID: sc.ID}
	require.NoError(t, e.db.Create(&ap).Error)

	// A removed key must be insertable again on a later save; its old row
	// cannot keep holding the (parent, adj_key) unique index.
	require.NoError(t, e.syncCostSubjectAdjustments(ctx, ap.ID, []AdjustmentInput{
		{AdjKey: "time", AdjValue: "5"},
	}))
	require.NoError(t, e.syncCostSubjectAdjustments(ctx, ap.ID, nil))
	require.NoError(t, e.syncCostSubjectAdjustments(ctx, ap.ID, []AdjustmentInput{
		{AdjKey: "time", AdjValue: "7"},
	}))

	var rows []model.CostSubjectAdjustment
	require.NoError(t, e.db.Where("cost_approach_id = ?", ap.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "time", rows[0].AdjKey)
	assert.Equal(t, "7", rows[0].AdjValue)
}

func TestAdjustmentLabelSlugging(t *testing.T) {
	in := AdjustmentInput{AdjLabel: "Corner Lot", AdjValue: "3"}
	assert.Equal(t, "corner-lot", in.key())

	keyed := AdjustmentInput{AdjKey: "time", AdjLabel: "ignored"}
	assert.Equal(t, "time", keyed.key())

	assert.Empty(t, AdjustmentInput{AdjValue: "3"}.key())
}
