package valuation

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// SalesApproachInput carries the sales approach's scalar fields, its comp
// roster and the approach-level keyed collections as desired state.
type SalesApproachInput struct {
	ID         uint    `json:"id"`
	ScenarioID uint    `json:"res_evaluation_scenario_id"`
	EvalWeight float64 `json:"eval_weight"`

	Comps                  []SalesCompInput           `json:"comp_data"`
	SubjectAdjustments     []AdjustmentInput          `json:"subject_property_adj"`
	QualitativeAdjustments []AdjustmentInput          `json:"subject_qualitative_adjustments"`
	ComparisonAttributes   []ComparisonAttributeInput `json:"sales_comparison_attributes"`
}

// SalesSaveInput is the save-approach request for the sales approach.
type SalesSaveInput struct {
	EvaluationID uint               `json:"res_evaluation_id"`
	Approach     SalesApproachInput `json:"approach"`
}

// SaveSalesApproach updates the approach's scalars, synchronizes the comp
// roster and approach-level collections and re-enters the pipeline at the
// comp-adjustment stage.
func (e *Engine) SaveSalesApproach(ctx context.Context, in SalesSaveInput) (*model.SalesApproach, error) {
	scenario, err := e.scenarioFor(ctx, in.Approach.ScenarioID, in.EvaluationID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(lockKey(model.ApproachSale, scenario.ID))
	defer unlock()

	ap, err := e.resolveSalesApproach(ctx, scenario, in.Approach.ID)
	if err != nil {
		return nil, err
	}

	ap.EvalWeight = in.Approach.EvalWeight
	if err := e.db.WithContext(ctx).Save(ap).Error; err != nil {
		return nil, eris.Wrap(err, "sales: approach")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.syncSalesComps(gctx, ap.ID, in.Approach.Comps) })
	g.Go(func() error { return e.syncSalesSubjectAdjustments(gctx, ap.ID, in.Approach.SubjectAdjustments) })
	g.Go(func() error { return e.syncSalesQualitativeAdjustments(gctx, ap.ID, in.Approach.QualitativeAdjustments) })
	g.Go(func() error { return e.syncSalesComparisonAttributes(gctx, ap.ID, in.Approach.ComparisonAttributes) })
	if err := g.Wait(); err != nil {
		e.log.Error("sales collections sync failed",
			zap.Uint("sales_approach_id", ap.ID), zap.Error(err))
		return nil, eris.Wrapf(ErrSyncFailed, "sales collections: %v", err)
	}

	if err := e.revalue(ctx, scenario.ID, model.ApproachSale, StageCompAdjustments); err != nil {
		return nil, err
	}
	return e.loadSalesApproach(ctx, scenario.ID)
}

// GetSalesApproach returns the scenario's sales approach with children.
func (e *Engine) GetSalesApproach(ctx context.Context, scenarioID uint) (*model.SalesApproach, error) {
	return e.loadSalesApproach(ctx, scenarioID)
}

func (e *Engine) loadSalesApproach(ctx context.Context, scenarioID uint) (*model.SalesApproach, error) {
	var ap model.SalesApproach
	err := e.db.WithContext(ctx).
		Preload("Comps", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("Comps.Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("Comps.QualitativeAdjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("Comps.ExtraAmenities", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("SubjectAdjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("QualitativeAdjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("ComparisonAttributes", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Where("scenario_id = ?", scenarioID).
		First(&ap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (e *Engine) resolveSalesApproach(ctx context.Context, scenario *model.Scenario, inputID uint) (*model.SalesApproach, error) {
	existing, err := e.salesApproachByScenario(ctx, scenario.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if inputID == 0 {
		if existing != nil {
			return nil, ErrDuplicate
		}
		ap := &model.SalesApproach{
			EvaluationID: scenario.EvaluationID,
			ScenarioID:   scenario.ID,
		}
		if err := e.db.WithContext(ctx).Create(ap).Error; err != nil {
			return nil, eris.Wrap(err, "sales: create approach")
		}
		return ap, nil
	}
	if existing == nil || existing.ID != inputID {
		return nil, ErrNotFound
	}
	return existing, nil
}

// recomputeSales derives the approach's blended per-square-foot value and
// prorates it across the subject's zoning breakdown.
func (e *Engine) recomputeSales(ctx context.Context, scenarioID uint) error {
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
	var zonings []model.Zoning
	if err := e.db.WithContext(ctx).Where("evaluation_id = ?", ev.ID).Find(&zonings).Error; err != nil {
		return err
	}

	blended := 0.0
	for _, c := range comps {
		blended += c.AveragedAdjustedPSF
	}
	ap.AveragedAdjustedPSF = round2(blended)

	value := 0.0
	for _, z := range zonings {
		value += ap.AveragedAdjustedPSF * z.TotalSqFt * z.WeightSF / 100
	}
	ap.SalesApproachValue = round2(value)
	ap.TotalCompAdj = round2(ap.AveragedAdjustedPSF * ev.LandSize)
	ap.IncrementalValue = round2(ap.SalesApproachValue * ap.EvalWeight)

	return e.db.WithContext(ctx).Save(ap).Error
}
