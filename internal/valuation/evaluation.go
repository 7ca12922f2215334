package valuation

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// ZoningInput is one submitted area-breakdown line. A zero id means new.
type ZoningInput struct {
	ID        uint    `json:"id"`
	Zone      string  `json:"zone"`
	SubZone   string  `json:"sub_zone"`
	TotalSqFt float64 `json:"total_sq_ft"`
	WeightSF  float64 `json:"weight_sf"`
	Bed       *int    `json:"bed"`
	Unit      *int    `json:"unit"`
}

// SyncZonings reconciles the subject's area breakdown and re-runs the
// pipeline for every scenario, since zoning rows drive income-source and
// improvement seeding and the sales proration.
func (e *Engine) SyncZonings(ctx context.Context, evaluationID uint, inputs []ZoningInput) error {
	var ev model.Evaluation
	if err := e.db.WithContext(ctx).First(&ev, evaluationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	desired := make([]model.Zoning, 0, len(inputs))
	for _, in := range inputs {
		row := model.Zoning{
			EvaluationID: evaluationID,
			Zone:         in.Zone,
			SubZone:      in.SubZone,
			TotalSqFt:    in.TotalSqFt,
			WeightSF:     in.WeightSF,
			Bed:          in.Bed,
			Unit:         in.Unit,
		}
		row.ID = in.ID
		desired = append(desired, row)
	}
	err := syncByID(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("evaluation_id = ?", evaluationID) },
		desired,
		func(r model.Zoning) uint { return r.ID },
		func(r model.Zoning, id uint) model.Zoning { r.ID = id; return r },
		func(old, cur model.Zoning) model.Zoning { cur.Model = old.Model; return cur })
	if err != nil {
		return eris.Wrapf(ErrSyncFailed, "zonings: %v", err)
	}

	var scenarios []model.Scenario
	if err := e.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).Find(&scenarios).Error; err != nil {
		return err
	}
	for _, sc := range scenarios {
		if err := e.Revalue(ctx, sc.ID); err != nil {
			return err
		}
	}
	return nil
}

// ApproachSummary is one approach's contribution to a scenario's value.
type ApproachSummary struct {
	Type             model.ApproachType `json:"type"`
	ApproachID       uint               `json:"approach_id"`
	IndicatedValue   float64            `json:"indicated_value"`
	EvalWeight       float64            `json:"eval_weight"`
	IncrementalValue float64            `json:"incremental_value"`
}

// ScenarioSummary is the review view of one scenario.
type ScenarioSummary struct {
	ScenarioID          uint              `json:"scenario_id"`
	Name                string            `json:"name"`
	WeightedMarketValue float64           `json:"weighted_market_value"`
	Rounding            int               `json:"rounding"`
	Approaches          []ApproachSummary `json:"approaches"`
}

// ReviewSummaries collects every scenario's weighted market value and the
// per-approach indicated and incremental values for the review screen.
func (e *Engine) ReviewSummaries(ctx context.Context, evaluationID uint) ([]ScenarioSummary, error) {
	var ev model.Evaluation
	if err := e.db.WithContext(ctx).First(&ev, evaluationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var scenarios []model.Scenario
	if err := e.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).Order("id ASC").Find(&scenarios).Error; err != nil {
		return nil, err
	}

	summaries := make([]ScenarioSummary, 0, len(scenarios))
	for _, sc := range scenarios {
		summary := ScenarioSummary{
			ScenarioID:          sc.ID,
			Name:                sc.Name,
			WeightedMarketValue: sc.WeightedMarketValue,
			Rounding:            sc.Rounding,
		}
		if income, err := e.incomeApproachByScenario(ctx, sc.ID); err == nil {
			summary.Approaches = append(summary.Approaches, ApproachSummary{
				Type:             model.ApproachIncome,
				ApproachID:       income.ID,
				IndicatedValue:   income.IndicatedRangeAnnual,
				EvalWeight:       income.EvalWeight,
				IncrementalValue: income.IncrementalValue,
			})
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if sales, err := e.salesApproachByScenario(ctx, sc.ID); err == nil {
			summary.Approaches = append(summary.Approaches, ApproachSummary{
				Type:             model.ApproachSale,
				ApproachID:       sales.ID,
				IndicatedValue:   sales.SalesApproachValue,
				EvalWeight:       sales.EvalWeight,
				IncrementalValue: sales.IncrementalValue,
			})
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if cost, err := e.costApproachByScenario(ctx, sc.ID); err == nil {
			summary.Approaches = append(summary.Approaches, ApproachSummary{
				Type:             model.ApproachCost,
				ApproachID:       cost.ID,
				IndicatedValue:   cost.TotalCostValuation,
				EvalWeight:       cost.EvalWeight,
				IncrementalValue: cost.IncrementalValue,
			})
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
