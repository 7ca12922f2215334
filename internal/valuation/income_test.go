package valuation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal_backend/internal/model"
)

func enableIncome(t *testing.T, e *Engine, scenarioID uint) *model.IncomeApproach {
	t.Helper()
	_, err := e.ApplyScenarioApproaches(context.Background(), scenarioID, true, false, false)
	require.NoError(t, err)
	ap, err := e.incomeApproachByScenario(context.Background(), scenarioID)
	require.NoError(t, err)
	return ap
}

func TestIncomeNetIncomeGating(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{})
	sc := createScenario(t, e, ev.ID)
	ap := enableIncome(t, e, sc.ID)

	// Without a monthly capitalization rate the net income stays unset.
	saved, err := e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:                       ap.ID,
			ScenarioID:               sc.ID,
			EvalWeight:               1,
			Vacancy:                  5,
			AnnualCapitalizationRate: 8,
			IncomeSources: []IncomeSourceInput{
				{MonthlyIncome: 1000, AnnualIncome: 12000},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 12000.0, saved.TotalAnnualIncome)
	assert.Equal(t, 1000.0, saved.TotalMonthlyIncome)
	assert.Equal(t, -600.0, saved.VacantAmount)
	assert.Equal(t, 11400.0, saved.AdjustedGrossAmount)
	assert.Nil(t, saved.TotalNetIncome)
	assert.Zero(t, saved.IndicatedRangeAnnual)
	assert.Zero(t, saved.IncrementalValue)

	// The monthly rate opens the gate; the annual rate capitalizes.
	saved, err = e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:                        ap.ID,
			ScenarioID:                sc.ID,
			EvalWeight:                1,
			Vacancy:                   5,
			MonthlyCapitalizationRate: 1,
			AnnualCapitalizationRate:  8,
			IncomeSources: []IncomeSourceInput{
				{MonthlyIncome: 1000, AnnualIncome: 12000},
			},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, saved.TotalNetIncome)
	assert.Equal(t, 11400.0, *saved.TotalNetIncome)
	assert.Equal(t, 142500.0, saved.IndicatedRangeAnnual) // 11400 / 0.08
	assert.Equal(t, 1140000.0, saved.IndicatedRangeMonthly)
	assert.Equal(t, 142500.0, saved.IncrementalValue)

	var scenario model.Scenario
	require.NoError(t, e.db.First(&scenario, sc.ID).Error)
	assert.Equal(t, 142500.0, scenario.WeightedMarketValue)
}

func TestIncomeZeroGuards(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{}) // building size 0
	sc := createScenario(t, e, ev.ID)
	ap := enableIncome(t, e, sc.ID)

	saved, err := e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:                        ap.ID,
			ScenarioID:                sc.ID,
			EvalWeight:                1,
			MonthlyCapitalizationRate: 2,
			// Annual and per-square-foot rates left at zero.
			IncomeSources: []IncomeSourceInput{
				{AnnualIncome: 12000},
			},
			OperatingExpenses: []OperatingExpenseInput{
				{ExpenseType: "Taxes", AnnualAmount: 500},
			},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, saved.IndicatedRangeAnnual)
	assert.Zero(t, saved.IndicatedRangeSqFt)
	assert.Zero(t, saved.IndicatedPSFMonthly) // building size 0
	require.Len(t, saved.OperatingExpenses, 1)
	assert.Zero(t, saved.OperatingExpenses[0].TotalPerSqFt)
}

func TestIncomeExpenseRatios(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 2000})
	sc := createScenario(t, e, ev.ID)
	ap := enableIncome(t, e, sc.ID)

	saved, err := e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:                        ap.ID,
			ScenarioID:                sc.ID,
			EvalWeight:                1,
			Vacancy:                   5,
			MonthlyCapitalizationRate: 1,
			IncomeSources: []IncomeSourceInput{
				{AnnualIncome: 12000},
			},
			OtherIncomeSources: []OtherIncomeSourceInput{
				{Type: "Parking", AnnualIncome: 100},
			},
			OperatingExpenses: []OperatingExpenseInput{
				{ExpenseType: "Taxes", AnnualAmount: 500},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, saved.OperatingExpenses, 1)
	assert.Equal(t, 0.25, saved.OperatingExpenses[0].TotalPerSqFt)    // 500 / 2000
	assert.Equal(t, 4.39, saved.OperatingExpenses[0].PercentageOfGross) // 500 / 11400 * 100
	assert.Equal(t, 500.0, saved.TotalOEAnnualAmount)
	assert.Equal(t, 100.0, saved.OtherTotalAnnualIncome)

	require.NotNil(t, saved.TotalNetIncome)
	assert.Equal(t, 11000.0, *saved.TotalNetIncome) // 11400 + 100 - 500
}

func TestIncomeSourceKeepList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{})
	sc := createScenario(t, e, ev.ID)
	ap := enableIncome(t, e, sc.ID)

	saved, err := e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:         ap.ID,
			ScenarioID: sc.ID,
			IncomeSources: []IncomeSourceInput{
				{Type: "Office", AnnualIncome: 1000},
				{Type: "Retail", AnnualIncome: 2000},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.IncomeSources, 2)

	var keepID uint
	for _, s := range saved.IncomeSources {
		if s.Type == "Office" {
			keepID = s.ID
		}
	}
	require.NotZero(t, keepID)

	// Resubmitting only one row updates it and removes the other.
	saved, err = e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach: IncomeApproachInput{
			ID:         ap.ID,
			ScenarioID: sc.ID,
			IncomeSources: []IncomeSourceInput{
				{ID: keepID, Type: "Office", AnnualIncome: 1500},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.IncomeSources, 1)
	assert.Equal(t, keepID, saved.IncomeSources[0].ID)
	assert.Equal(t, 1500.0, saved.IncomeSources[0].AnnualIncome)
	assert.Equal(t, 1500.0, saved.TotalAnnualIncome)
}

func TestIncomeZoningSeedingAndOrphans(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{
		BuildingSize: 3000,
		Zonings: []model.Zoning{
			{Zone: "Commercial", SubZone: "Office", TotalSqFt: 2000, WeightSF: 60},
			{Zone: "Commercial", SubZone: "Retail", TotalSqFt: 1000, WeightSF: 40},
		},
	})
	sc := createScenario(t, e, ev.ID)
	enableIncome(t, e, sc.ID)

	// An empty collection is seeded with one row per zoning.
	saved, err := e.GetIncomeApproach(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, saved.IncomeSources, 2)
	types := []string{saved.IncomeSources[0].Type, saved.IncomeSources[1].Type}
	assert.ElementsMatch(t, []string{"Office", "Retail"}, types)
	for _, s := range saved.IncomeSources {
		require.NotNil(t, s.ZoningID)
		assert.Zero(t, s.AnnualIncome)
	}

	// A zoning leaving the subject takes its seeded row with it.
	var zonings []model.Zoning
	require.NoError(t, e.db.Where("evaluation_id = ?", ev.ID).Find(&zonings).Error)
	var retail model.Zoning
	for _, z := range zonings {
		if z.SubZone == "Retail" {
			retail = z
		}
	}
	require.NotZero(t, retail.ID)
	require.NoError(t, e.db.Delete(&model.Zoning{}, retail.ID).Error)

	require.NoError(t, e.Revalue(ctx, sc.ID))
	saved, err = e.GetIncomeApproach(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, saved.IncomeSources, 1)
	assert.Equal(t, "Office", saved.IncomeSources[0].Type)
	assert.Equal(t, 2000.0, saved.IncomeSources[0].SquareFeet)
}

func TestIncomeApproachResolution(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{})
	sc := createScenario(t, e, ev.ID)
	ap := enableIncome(t, e, sc.ID)

	// Creating a second instance for the scenario is rejected.
	_, err := e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach:     IncomeApproachInput{ScenarioID: sc.ID},
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// A stale approach id is rejected before any write.
	_, err = e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach:     IncomeApproachInput{ID: ap.ID + 100, ScenarioID: sc.ID},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// An unknown scenario is rejected.
	_, err = e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID,
		Approach:     IncomeApproachInput{ScenarioID: sc.ID + 100},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// A scenario belonging to another evaluation is rejected.
	_, err = e.SaveIncomeApproach(ctx, IncomeSaveInput{
		EvaluationID: ev.ID + 100,
		Approach:     IncomeApproachInput{ID: ap.ID, ScenarioID: sc.ID},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
