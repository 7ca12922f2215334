package valuation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// Stage identifies one step of the recompute pipeline. Stages run in
// order: comp adjustment totals feed comp values, comp values feed the
// approach's indicated value, and the indicated value feeds the
// scenario's weighted market value. Entering at a later stage assumes the
// earlier stages' outputs are already persisted.
type Stage int

const (
	StageCompAdjustments Stage = iota
	StageCompValues
	StageIndicatedValue
	StageWeightedValue
)

const sqFtPerAcre = 43560.0

func lockKey(t model.ApproachType, scenarioID uint) string {
	return fmt.Sprintf("%s:%d", t, scenarioID)
}

// revalue runs the pipeline for one approach of a scenario starting at
// from, always finishing with the scenario-level aggregation. The caller
// must hold the approach lock.
func (e *Engine) revalue(ctx context.Context, scenarioID uint, t model.ApproachType, from Stage) error {
	switch t {
	case model.ApproachIncome:
		if from <= StageIndicatedValue {
			if err := e.recomputeIncome(ctx, scenarioID); err != nil {
				return err
			}
		}
	case model.ApproachSale:
		if from <= StageCompValues {
			if err := e.recomputeSalesComps(ctx, scenarioID, from); err != nil {
				return err
			}
		}
		if from <= StageIndicatedValue {
			if err := e.recomputeSales(ctx, scenarioID); err != nil {
				return err
			}
		}
	case model.ApproachCost:
		if from <= StageCompValues {
			if err := e.recomputeCostComps(ctx, scenarioID, from); err != nil {
				return err
			}
		}
		if from <= StageIndicatedValue {
			if err := e.recomputeCost(ctx, scenarioID); err != nil {
				return err
			}
		}
	}
	return e.recomputeWeighted(ctx, scenarioID)
}

// Revalue re-runs the full pipeline for every active approach of a
// scenario. Approach flag toggles and the nightly sweep enter here.
func (e *Engine) Revalue(ctx context.Context, scenarioID uint) error {
	var sc model.Scenario
	if err := e.db.WithContext(ctx).First(&sc, scenarioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	types := make([]model.ApproachType, 0, 3)
	if sc.HasIncomeApproach {
		types = append(types, model.ApproachIncome)
	}
	if sc.HasSalesApproach {
		types = append(types, model.ApproachSale)
	}
	if sc.HasCostApproach {
		types = append(types, model.ApproachCost)
	}

	for _, t := range types {
		unlock := e.locks.lock(lockKey(t, scenarioID))
		err := e.revalue(ctx, scenarioID, t, StageCompAdjustments)
		unlock()
		if err != nil {
			e.log.Error("revalue failed",
				zap.Uint("scenario_id", scenarioID),
				zap.String("approach", string(t)),
				zap.Error(err))
			return err
		}
	}
	if len(types) == 0 {
		return e.recomputeWeighted(ctx, scenarioID)
	}
	return nil
}

// basePSF is a comp's raw price per unit of land, converted into the
// subject's land unit when the two differ. 43560 square feet per acre.
func basePSF(salePrice, landSize float64, compDim, subjectDim model.LandDimension) float64 {
	size := landSize
	if compDim != subjectDim {
		if subjectDim == model.LandDimensionSF {
			size = landSize * sqFtPerAcre
		} else {
			size = landSize / sqFtPerAcre
		}
	}
	return round3(safeDiv(salePrice, size))
}

// compAdjustedPSF folds the comp's accumulated adjustment into its base
// value, as dollars or as a percentage of the base.
func compAdjustedPSF(base, totalAdjustment float64, mode model.AdjustmentMode) float64 {
	if mode == model.AdjustmentModeDollar {
		return base + totalAdjustment
	}
	return base + totalAdjustment/100*base
}

func (e *Engine) salesApproachByScenario(ctx context.Context, scenarioID uint) (*model.SalesApproach, error) {
	var ap model.SalesApproach
	err := e.db.WithContext(ctx).Where("scenario_id = ?", scenarioID).First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (e *Engine) costApproachByScenario(ctx context.Context, scenarioID uint) (*model.CostApproach, error) {
	var ap model.CostApproach
	err := e.db.WithContext(ctx).Where("scenario_id = ?", scenarioID).First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (e *Engine) incomeApproachByScenario(ctx context.Context, scenarioID uint) (*model.IncomeApproach, error) {
	var ap model.IncomeApproach
	err := e.db.WithContext(ctx).Where("scenario_id = ?", scenarioID).First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

// recomputeSalesComps refreshes each sales comp's adjustment total and
// derived per-square-foot values from its persisted adjustment rows.
func (e *Engine) recomputeSalesComps(ctx context.Context, scenarioID uint, from Stage) error {
	ap, err := e.salesApproachByScenario(ctx, scenarioID)
	if err != nil {
		return err
	}
	var ev model.Evaluation
	if err := e.db.WithContext(ctx).First(&ev, ap.EvaluationID).Error; err != nil {
		return err
	}
	var comps []model.SalesComp
	if err := e.db.WithContext(ctx).Where("sales_approach_id = ?", ap.ID).Find(&comps).Error; err != nil {
		return err
	}

	for i := range comps {
		comp := &comps[i]
		if from <= StageCompAdjustments {
			var adjustments []model.SalesCompAdjustment
			if err := e.db.WithContext(ctx).Where("sales_comp_id = ?", comp.ID).Find(&adjustments).Error; err != nil {
				return err
			}
			total := 0.0
			for _, a := range adjustments {
				total += parseAmount(a.AdjValue)
			}
			comp.TotalAdjustment = round2(total)
		}
		base := basePSF(comp.SalePrice, comp.LandSize, comp.LandDimension, ev.LandDimension)
		comp.AdjustedPSF = round2(compAdjustedPSF(base, comp.TotalAdjustment, ev.CompAdjustmentMode))
		comp.AveragedAdjustedPSF = round2(comp.AdjustedPSF * comp.Weight / 100)
		if err := e.db.WithContext(ctx).Save(comp).Error; err != nil {
			return err
		}
	}
	return nil
}

// recomputeCostComps mirrors recomputeSalesComps for the land comps.
func (e *Engine) recomputeCostComps(ctx context.Context, scenarioID uint, from Stage) error {
	ap, err := e.costApproachByScenario(ctx, scenarioID)
	if err != nil {
		return err
	}
	var ev model.Evaluation
	if err := e.db.WithContext(ctx).First(&ev, ap.EvaluationID).Error; err != nil {
		return err
	}
	var comps []model.CostComp
	if err := e.db.WithContext(ctx).Where("cost_approach_id = ?", ap.ID).Find(&comps).Error; err != nil {
		return err
	}

	for i := range comps {
		comp := &comps[i]
		if from <= StageCompAdjustments {
			var adjustments []model.CostCompAdjustment
			if err := e.db.WithContext(ctx).Where("cost_comp_id = ?", comp.ID).Find(&adjustments).Error; err != nil {
				return err
			}
			total := 0.0
			for _, a := range adjustments {
				total += parseAmount(a.AdjValue)
			}
			comp.TotalAdjustment = round2(total)
		}
		base := basePSF(comp.SalePrice, comp.LandSize, comp.LandDimension, ev.LandDimension)
		comp.AdjustedPSF = round2(compAdjustedPSF(base, comp.TotalAdjustment, ev.CompAdjustmentMode))
		comp.AveragedAdjustedPSF = round2(comp.AdjustedPSF * comp.Weight / 100)
		if err := e.db.WithContext(ctx).Save(comp).Error; err != nil {
			return err
		}
	}
	return nil
}
