package valuation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal_backend/internal/model"
)

func enableCost(t *testing.T, e *Engine, scenarioID uint) *model.CostApproach {
	t.Helper()
	_, err := e.ApplyScenarioApproaches(context.Background(), scenarioID, false, false, true)
	require.NoError(t, err)
	ap, err := e.costApproachByScenario(context.Background(), scenarioID)
	require.NoError(t, err)
	return ap
}

func TestCostValuation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 1000, LandSize: 1000})
	sc := createScenario(t, e, ev.ID)
	ap := enableCost(t, e, sc.ID)

	saved, err := e.SaveCostApproach(ctx, CostSaveInput{
		EvaluationID: ev.ID,
		Approach: CostApproachInput{
			ID:         ap.ID,
			ScenarioID: sc.ID,
			EvalWeight: 1,
			Comps: []CostCompInput{
				{CompID: 1, Weight: 100, SalePrice: 10000, LandSize: 1000},
			},
			SubjectAdjustments: []AdjustmentInput{
				{AdjKey: "topography", AdjValue: "Level"},
			},
			ComparisonAttributes: []ComparisonAttributeInput{
				{ComparisonKey: "location", ComparisonValue: "Corner"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, saved.AveragedAdjustedPSF)
	assert.Equal(t, 10000.0, saved.LandValue)
	require.Len(t, saved.SubjectAdjustments, 1)
	require.Len(t, saved.ComparisonAttributes, 1)

	saved, err = e.SaveCostImprovements(ctx, ImprovementsSaveInput{
		EvaluationID: ev.ID,
		ScenarioID:   sc.ID,
		Improvements: []ImprovementInput{
			{ImprovementType: "Warehouse", SFArea: 500, AdjustedPSF: 50, Depreciation: 10},
		},
	})
	require.NoError(t, err)

	require.Len(t, saved.Improvements, 1)
	imp := saved.Improvements[0]
	assert.Equal(t, 25000.0, imp.StructureCost)
	assert.Equal(t, 2500.0, imp.DepreciationAmount)
	assert.Equal(t, 22500.0, imp.AdjustedCost)

	assert.Equal(t, 25000.0, saved.OverallReplacementCost)
	assert.Equal(t, 2500.0, saved.TotalDepreciation)
	assert.Equal(t, 22500.0, saved.ImprovementsTotalAdjustedCost)
	assert.Equal(t, 500.0, saved.ImprovementsTotalSFArea)
	assert.Equal(t, 32500.0, saved.TotalCostValuation) // 10000 + 22500
	assert.Equal(t, 65.0, saved.IndicatedValuePSF)     // 32500 / 500
	assert.Equal(t, 32500.0, saved.IncrementalValue)

	var scenario model.Scenario
	require.NoError(t, e.db.First(&scenario, sc.ID).Error)
	assert.Equal(t, 32500.0, scenario.WeightedMarketValue)
}

func TestCostIndicatedPSFFallsBackToBuildingSize(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 2000, LandSize: 1000})
	sc := createScenario(t, e, ev.ID)
	ap := enableCost(t, e, sc.ID)

	saved, err := e.SaveCostApproach(ctx, CostSaveInput{
		EvaluationID: ev.ID,
		Approach: CostApproachInput{
			ID:         ap.ID,
			ScenarioID: sc.ID,
			EvalWeight: 1,
			Comps: []CostCompInput{
				{CompID: 1, Weight: 100, SalePrice: 10000, LandSize: 1000},
			},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, saved.Improvements)
	assert.Equal(t, 10000.0, saved.TotalCostValuation)
	assert.Equal(t, 5.0, saved.IndicatedValuePSF) // 10000 / 2000
}

func TestCostImprovementSeedingAndOrphans(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{
		BuildingSize: 3000,
		LandSize:     5000,
		Zonings: []model.Zoning{
			{SubZone: "Office", TotalSqFt: 2000, WeightSF: 60},
			{SubZone: "Retail", TotalSqFt: 1000, WeightSF: 40},
		},
	})
	sc := createScenario(t, e, ev.ID)
	enableCost(t, e, sc.ID)

	saved, err := e.GetCostApproach(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, saved.Improvements, 2)
	for _, imp := range saved.Improvements {
		require.NotNil(t, imp.ZoningID)
		assert.Zero(t, imp.AdjustedPSF)
	}

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
	saved, err = e.GetCostApproach(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, saved.Improvements, 1)
	assert.Equal(t, "Office", saved.Improvements[0].ImprovementType)
}

func TestCostImprovementKeepList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ev := createSubject(t, e, model.Evaluation{BuildingSize: 1000, LandSize: 1000})
	sc := createScenario(t, e, ev.ID)
	enableCost(t, e, sc.ID)

	saved, err := e.SaveCostImprovements(ctx, ImprovementsSaveInput{
		EvaluationID: ev.ID,
		ScenarioID:   sc.ID,
		Improvements: []ImprovementInput{
			{ImprovementType: "Warehouse", SFArea: 500, AdjustedPSF: 50, Depreciation: 10},
			{ImprovementType: "Office", SFArea: 200, AdjustedPSF: 80, Depreciation: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Improvements, 2)

	var keepID uint
	for _, imp := range saved.Improvements {
		if imp.ImprovementType == "Warehouse" {
			keepID = imp.ID
		}
	}
	require.NotZero(t, keepID)

	saved, err = e.SaveCostImprovements(ctx, ImprovementsSaveInput{
		EvaluationID: ev.ID,
		ScenarioID:   sc.ID,
		Improvements: []ImprovementInput{
			{ID: keepID, ImprovementType: "Warehouse", SFArea: 600, AdjustedPSF: 50, Depreciation: 10},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved.Improvements, 1)
	assert.Equal(t, keepID, saved.Improvements[0].ID)
	assert.Equal(t, 30000.0, saved.Improvements[0].StructureCost) // 600 * 50
}
