package valuation

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// Default weight splits applied when an approach comes into existence.
// Fixed business rules, not configuration.
const (
	soloWeight       = 1.0
	pairWeight       = 0.5
	trioIncomeWeight = 0.25
	trioSalesWeight  = 0.5
	trioCostWeight   = 0.25
)

// defaultWeights returns the per-approach default split for the given set
// of active approaches.
func defaultWeights(hasIncome, hasSales, hasCost bool) (income, sales, cost float64) {
	active := 0
	for _, on := range []bool{hasIncome, hasSales, hasCost} {
		if on {
			active++
		}
	}
	switch active {
	case 3:
		return trioIncomeWeight, trioSalesWeight, trioCostWeight
	case 2:
		return pairWeight, pairWeight, pairWeight
	case 1:
		return soloWeight, soloWeight, soloWeight
	default:
		return 0, 0, 0
	}
}

// ApplyScenarioApproaches moves a scenario to the given set of active
// approaches. A newly enabled approach gets a fresh record carrying the
// default weight split for the new count of active approaches; a disabled
// one loses its record and children. The pipeline runs afterwards so the
// weighted market value drops or gains the affected terms.
func (e *Engine) ApplyScenarioApproaches(ctx context.Context, scenarioID uint, hasIncome, hasSales, hasCost bool) (*model.Scenario, error) {
	var sc model.Scenario
	if err := e.db.WithContext(ctx).First(&sc, scenarioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	incomeW, salesW, costW := defaultWeights(hasIncome, hasSales, hasCost)

	// Each toggle holds its approach lock so a concurrent save of the same
	// approach cannot interleave with the create or delete.
	toggleIncome := func() error {
		unlock := e.locks.lock(lockKey(model.ApproachIncome, sc.ID))
		defer unlock()
		if hasIncome && !sc.HasIncomeApproach {
			if _, err := e.resolveIncomeApproach(ctx, &sc, 0); err != nil && !errors.Is(err, ErrDuplicate) {
				return err
			}
			return e.db.WithContext(ctx).Model(&model.IncomeApproach{}).
				Where("scenario_id = ?", sc.ID).Update("eval_weight", incomeW).Error
		}
		if !hasIncome && sc.HasIncomeApproach {
			return e.deleteIncomeApproach(ctx, sc.ID)
		}
		return nil
	}
	toggleSales := func() error {
		unlock := e.locks.lock(lockKey(model.ApproachSale, sc.ID))
		defer unlock()
		if hasSales && !sc.HasSalesApproach {
			if _, err := e.resolveSalesApproach(ctx, &sc, 0); err != nil && !errors.Is(err, ErrDuplicate) {
				return err
			}
			return e.db.WithContext(ctx).Model(&model.SalesApproach{}).
				Where("scenario_id = ?", sc.ID).Update("eval_weight", salesW).Error
		}
		if !hasSales && sc.HasSalesApproach {
			return e.deleteSalesApproach(ctx, sc.ID)
		}
		return nil
	}
	toggleCost := func() error {
		unlock := e.locks.lock(lockKey(model.ApproachCost, sc.ID))
		defer unlock()
		if hasCost && !sc.HasCostApproach {
			if _, err := e.resolveCostApproach(ctx, &sc, 0); err != nil && !errors.Is(err, ErrDuplicate) {
				return err
			}
			return e.db.WithContext(ctx).Model(&model.CostApproach{}).
				Where("scenario_id = ?", sc.ID).Update("eval_weight", costW).Error
		}
		if !hasCost && sc.HasCostApproach {
			return e.deleteCostApproach(ctx, sc.ID)
		}
		return nil
	}
	for _, toggle := range []func() error{toggleIncome, toggleSales, toggleCost} {
		if err := toggle(); err != nil {
			return nil, err
		}
	}

	sc.HasIncomeApproach = hasIncome
	sc.HasSalesApproach = hasSales
	sc.HasCostApproach = hasCost
	if err := e.db.WithContext(ctx).Save(&sc).Error; err != nil {
		return nil, err
	}

	if err := e.Revalue(ctx, sc.ID); err != nil {
		return nil, err
	}
	if err := e.db.WithContext(ctx).First(&sc, sc.ID).Error; err != nil {
		return nil, err
	}
	return &sc, nil
}

// WeightInput changes one approach's share of the scenario value. The
// weight arrives as a 0-100 integer percentage.
type WeightInput struct {
	ApproachID   uint               `json:"approach_id"`
	ApproachType model.ApproachType `json:"approach_type"`
	EvalWeight   int                `json:"eval_weight"`
}

// SetApproachWeight stores the new weight and re-enters the pipeline at
// the indicated-value stage, refreshing the approach's incremental value
// and the scenario's weighted market value without touching content.
func (e *Engine) SetApproachWeight(ctx context.Context, in WeightInput) error {
	if in.EvalWeight < 0 || in.EvalWeight > 100 {
		return eris.Wrapf(ErrValidation, "eval_weight %d out of range", in.EvalWeight)
	}
	weight := float64(in.EvalWeight) / 100

	var scenarioID uint
	switch in.ApproachType {
	case model.ApproachIncome:
		var ap model.IncomeApproach
		if err := e.db.WithContext(ctx).First(&ap, in.ApproachID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		scenarioID = ap.ScenarioID
		unlock := e.locks.lock(lockKey(in.ApproachType, scenarioID))
		defer unlock()
		ap.EvalWeight = weight
		if err := e.db.WithContext(ctx).Save(&ap).Error; err != nil {
			return err
		}
	case model.ApproachSale:
		var ap model.SalesApproach
		if err := e.db.WithContext(ctx).First(&ap, in.ApproachID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		scenarioID = ap.ScenarioID
		unlock := e.locks.lock(lockKey(in.ApproachType, scenarioID))
		defer unlock()
		ap.EvalWeight = weight
		if err := e.db.WithContext(ctx).Save(&ap).Error; err != nil {
			return err
		}
	case model.ApproachCost:
		var ap model.CostApproach
		if err := e.db.WithContext(ctx).First(&ap, in.ApproachID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		scenarioID = ap.ScenarioID
		unlock := e.locks.lock(lockKey(in.ApproachType, scenarioID))
		defer unlock()
		ap.EvalWeight = weight
		if err := e.db.WithContext(ctx).Save(&ap).Error; err != nil {
			return err
		}
	default:
		return eris.Wrapf(ErrValidation, "unknown approach type %q", in.ApproachType)
	}

	return e.revalue(ctx, scenarioID, in.ApproachType, StageIndicatedValue)
}

// recomputeWeighted blends the indicated values of whichever approaches
// exist for the scenario into its weighted market value.
func (e *Engine) recomputeWeighted(ctx context.Context, scenarioID uint) error {
	var sc model.Scenario
	if err := e.db.WithContext(ctx).First(&sc, scenarioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	total := 0.0
	if income, err := e.incomeApproachByScenario(ctx, scenarioID); err == nil {
		total += income.IndicatedRangeAnnual * income.EvalWeight
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if sales, err := e.salesApproachByScenario(ctx, scenarioID); err == nil {
		total += sales.SalesApproachValue * sales.EvalWeight
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if cost, err := e.costApproachByScenario(ctx, scenarioID); err == nil {
		total += cost.TotalCostValuation * cost.EvalWeight
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	sc.WeightedMarketValue = round2(total)
	if err := e.db.WithContext(ctx).Save(&sc).Error; err != nil {
		return err
	}
	e.log.Debug("weighted market value recomputed",
		zap.Uint("scenario_id", scenarioID),
		zap.Float64("weighted_market_value", sc.WeightedMarketValue))
	return nil
}

// Approach removal is permanent: the scenario_id unique index would keep a
// soft-deleted row in the way of re-enabling the approach later.
func (e *Engine) deleteIncomeApproach(ctx context.Context, scenarioID uint) error {
	ap, err := e.incomeApproachByScenario(ctx, scenarioID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	db := e.db.WithContext(ctx).Unscoped()
	if err := db.Where("income_approach_id = ?", ap.ID).Delete(&model.IncomeSource{}).Error; err != nil {
		return err
	}
	if err := db.Where("income_approach_id = ?", ap.ID).Delete(&model.OtherIncomeSource{}).Error; err != nil {
		return err
	}
	if err := db.Where("income_approach_id = ?", ap.ID).Delete(&model.OperatingExpense{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.IncomeApproach{}, ap.ID).Error
}

func (e *Engine) deleteSalesApproach(ctx context.Context, scenarioID uint) error {
	ap, err := e.salesApproachByScenario(ctx, scenarioID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	db := e.db.WithContext(ctx).Unscoped()

	var comps []model.SalesComp
	if err := db.Where("sales_approach_id = ?", ap.ID).Find(&comps).Error; err != nil {
		return err
	}
	for _, c := range comps {
		if err := e.deleteSalesComp(ctx, c.ID); err != nil {
			return err
		}
	}
	if err := db.Where("sales_approach_id = ?", ap.ID).Delete(&model.SalesSubjectAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("sales_approach_id = ?", ap.ID).Delete(&model.SalesQualitativeAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("sales_approach_id = ?", ap.ID).Delete(&model.SalesComparisonAttribute{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.SalesApproach{}, ap.ID).Error
}

func (e *Engine) deleteCostApproach(ctx context.Context, scenarioID uint) error {
	ap, err := e.costApproachByScenario(ctx, scenarioID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	db := e.db.WithContext(ctx).Unscoped()

	var comps []model.CostComp
	if err := db.Where("cost_approach_id = ?", ap.ID).Find(&comps).Error; err != nil {
		return err
	}
	for _, c := range comps {
		if err := e.deleteCostComp(ctx, c.ID); err != nil {
			return err
		}
	}
	if err := db.Where("cost_approach_id = ?", ap.ID).Delete(&model.CostSubjectAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("cost_approach_id = ?", ap.ID).Delete(&model.CostComparisonAttribute{}).Error; err != nil {
		return err
	}
	if err := db.Where("cost_approach_id = ?", ap.ID).Delete(&model.CostImprovement{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.CostApproach{}, ap.ID).Error
}
