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

// CostApproachInput carries the cost approach's scalar fields, its land
// comp roster and the approach-level keyed collections as desired state.
type CostApproachInput struct {
	ID         uint    `json:"id"`
	ScenarioID uint    `json:"res_evaluation_scenario_id"`
	EvalWeight float64 `json:"eval_weight"`

	Comps                []CostCompInput            `json:"comp_data"`
	SubjectAdjustments   []AdjustmentInput          `json:"cost_subject_property_adjustments"`
	ComparisonAttributes []ComparisonAttributeInput `json:"cost_comparison_attributes"`
}

// CostSaveInput is the save-approach request for the cost approach.
type CostSaveInput struct {
	EvaluationID uint              `json:"res_evaluation_id"`
	Approach     CostApproachInput `json:"approach"`
}

// ImprovementInput is one submitted structure line. A zero id means new.
type ImprovementInput struct {
	ID              uint    `json:"id"`
	ZoningID        *uint   `json:"zoning_id"`
	ImprovementType string  `json:"improvement_type"`
	SFArea          float64 `json:"sf_area"`
	AdjustedPSF     float64 `json:"adjusted_psf"`
	Depreciation    float64 `json:"depreciation"`
}

// ImprovementsSaveInput replaces the cost approach's improvements
// collection and re-enters the pipeline at the indicated-value stage.
type ImprovementsSaveInput struct {
	EvaluationID uint               `json:"res_evaluation_id"`
	ScenarioID   uint               `json:"res_evaluation_scenario_id"`
	Improvements []ImprovementInput `json:"improvements"`
}

// SaveCostApproach updates the approach's scalars, synchronizes the land
// comp roster and keyed collections and re-enters the pipeline at the
// comp-adjustment stage.
func (e *Engine) SaveCostApproach(ctx context.Context, in CostSaveInput) (*model.CostApproach, error) {
	scenario, err := e.scenarioFor(ctx, in.Approach.ScenarioID, in.EvaluationID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(lockKey(model.ApproachCost, scenario.ID))
	defer unlock()

	ap, err := e.resolveCostApproach(ctx, scenario, in.Approach.ID)
	if err != nil {
		return nil, err
	}

	ap.EvalWeight = in.Approach.EvalWeight
	if err := e.db.WithContext(ctx).Save(ap).Error; err != nil {
		return nil, eris.Wrap(err, "cost: approach")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.syncCostComps(gctx, ap.ID, in.Approach.Comps) })
	g.Go(func() error { return e.syncCostSubjectAdjustments(gctx, ap.ID, in.Approach.SubjectAdjustments) })
	g.Go(func() error { return e.syncCostComparisonAttributes(gctx, ap.ID, in.Approach.ComparisonAttributes) })
	if err := g.Wait(); err != nil {
		e.log.Error("cost collections sync failed",
			zap.Uint("cost_approach_id", ap.ID), zap.Error(err))
		return nil, eris.Wrapf(ErrSyncFailed, "cost collections: %v", err)
	}

	if err := e.revalue(ctx, scenario.ID, model.ApproachCost, StageCompAdjustments); err != nil {
		return nil, err
	}
	return e.loadCostApproach(ctx, scenario.ID)
}

// SaveCostImprovements synchronizes only the improvements collection of
// the scenario's cost approach, then recomputes from the indicated-value
// stage. The land comps are untouched.
func (e *Engine) SaveCostImprovements(ctx context.Context, in ImprovementsSaveInput) (*model.CostApproach, error) {
	scenario, err := e.scenarioFor(ctx, in.ScenarioID, in.EvaluationID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(lockKey(model.ApproachCost, scenario.ID))
	defer unlock()

	ap, err := e.costApproachByScenario(ctx, scenario.ID)
	if err != nil {
		return nil, err
	}

	desired := make([]model.CostImprovement, 0, len(in.Improvements))
	for _, imp := range in.Improvements {
		row := model.CostImprovement{
			CostApproachID:  ap.ID,
			ZoningID:        imp.ZoningID,
			ImprovementType: imp.ImprovementType,
			SFArea:          imp.SFArea,
			AdjustedPSF:     imp.AdjustedPSF,
			Depreciation:    imp.Depreciation,
		}
		row.ID = imp.ID
		desired = append(desired, row)
	}
	err = syncByID(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("cost_approach_id = ?", ap.ID) },
		desired,
		func(r model.CostImprovement) uint { return r.ID },
		func(r model.CostImprovement, id uint) model.CostImprovement { r.ID = id; return r },
		func(old, cur model.CostImprovement) model.CostImprovement { cur.Model = old.Model; return cur })
	if err != nil {
		e.log.Error("improvements sync failed",
			zap.Uint("cost_approach_id", ap.ID), zap.Error(err))
		return nil, eris.Wrapf(ErrSyncFailed, "cost improvements: %v", err)
	}

	if err := e.revalue(ctx, scenario.ID, model.ApproachCost, StageIndicatedValue); err != nil {
		return nil, err
	}
	return e.loadCostApproach(ctx, scenario.ID)
}

// GetCostApproach returns the scenario's cost approach with children.
func (e *Engine) GetCostApproach(ctx context.Context, scenarioID uint) (*model.CostApproach, error) {
	return e.loadCostApproach(ctx, scenarioID)
}

func (e *Engine) loadCostApproach(ctx context.Context, scenarioID uint) (*model.CostApproach, error) {
	var ap model.CostApproach
	err := e.db.WithContext(ctx).
		Preload("Comps", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("Comps.Adjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("SubjectAdjustments", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("ComparisonAttributes", func(db *gorm.DB) *gorm.DB { return db.Order("\"order\" ASC") }).
		Preload("Improvements", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
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

func (e *Engine) resolveCostApproach(ctx context.Context, scenario *model.Scenario, inputID uint) (*model.CostApproach, error) {
	existing, err := e.costApproachByScenario(ctx, scenario.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if inputID == 0 {
		if existing != nil {
			return nil, ErrDuplicate
		}
		ap := &model.CostApproach{
			EvaluationID: scenario.EvaluationID,
			ScenarioID:   scenario.ID,
		}
		if err := e.db.WithContext(ctx).Create(ap).Error; err != nil {
			return nil, eris.Wrap(err, "cost: create approach")
		}
		return ap, nil
	}
	if existing == nil || existing.ID != inputID {
		return nil, ErrNotFound
	}
	return existing, nil
}

// recomputeCost derives land value from the comp roster, depreciated
// structure cost from the improvements and the total cost valuation.
func (e *Engine) recomputeCost(ctx context.Context, scenarioID uint) error {
	ap, err := e.costApproachByScenario(ctx, scenarioID)
	if err != nil {
		return err
	}
	var ev model.Evaluation
	if err := e.db.WithContext(ctx).First(&ev, ap.EvaluationID).Error; err != nil {
		return err
	}
	var zonings []model.Zoning
	if err := e.db.WithContext(ctx).Where("evaluation_id = ?", ev.ID).Find(&zonings).Error; err != nil {
		return err
	}
	var comps []model.CostComp
	if err := e.db.WithContext(ctx).Where("cost_approach_id = ?", ap.ID).Find(&comps).Error; err != nil {
		return err
	}

	blended := 0.0
	for _, c := range comps {
		blended += c.AveragedAdjustedPSF
	}
	ap.AveragedAdjustedPSF = round2(blended)
	ap.LandValue = round2(ap.AveragedAdjustedPSF * ev.LandSize)

	improvements, err := e.reconcileImprovements(ctx, ap, zonings)
	if err != nil {
		return err
	}

	replacement, depreciation, adjusted, sfArea := 0.0, 0.0, 0.0, 0.0
	for i := range improvements {
		imp := &improvements[i]
		imp.StructureCost = round2(imp.SFArea * imp.AdjustedPSF)
		imp.DepreciationAmount = round2(imp.StructureCost * imp.Depreciation / 100)
		imp.AdjustedCost = round2(imp.StructureCost - imp.DepreciationAmount)
		if err := e.db.WithContext(ctx).Save(imp).Error; err != nil {
			return err
		}
		replacement += imp.StructureCost
		depreciation += imp.DepreciationAmount
		adjusted += imp.AdjustedCost
		sfArea += imp.SFArea
	}
	ap.OverallReplacementCost = round2(replacement)
	ap.TotalDepreciation = round2(depreciation)
	ap.ImprovementsTotalAdjustedCost = round2(adjusted)
	ap.ImprovementsTotalSFArea = sfArea

	ap.TotalCostValuation = round2(ap.LandValue + ap.ImprovementsTotalAdjustedCost)
	if len(improvements) > 0 {
		ap.IndicatedValuePSF = round2(safeDiv(ap.TotalCostValuation, ap.ImprovementsTotalSFArea))
	} else {
		ap.IndicatedValuePSF = round2(safeDiv(ap.TotalCostValuation, ev.BuildingSize))
	}
	ap.IncrementalValue = round2(ap.TotalCostValuation * ap.EvalWeight)

	return e.db.WithContext(ctx).Save(ap).Error
}

// reconcileImprovements removes rows orphaned by a vanished zoning and
// seeds one row per zoning when the collection is empty, mirroring the
// income-source seeding.
func (e *Engine) reconcileImprovements(ctx context.Context, ap *model.CostApproach, zonings []model.Zoning) ([]model.CostImprovement, error) {
	var improvements []model.CostImprovement
	if err := e.db.WithContext(ctx).Where("cost_approach_id = ?", ap.ID).Find(&improvements).Error; err != nil {
		return nil, err
	}

	zoneIDs := make(map[uint]struct{}, len(zonings))
	for _, z := range zonings {
		zoneIDs[z.ID] = struct{}{}
	}

	kept := improvements[:0]
	for _, imp := range improvements {
		if imp.ZoningID != nil {
			if _, ok := zoneIDs[*imp.ZoningID]; !ok {
				if err := e.db.WithContext(ctx).Unscoped().Delete(&model.CostImprovement{}, imp.ID).Error; err != nil {
					return nil, err
				}
				continue
			}
		}
		kept = append(kept, imp)
	}

	if len(kept) > 0 || len(zonings) == 0 {
		return kept, nil
	}

	seeded := make([]model.CostImprovement, 0, len(zonings))
	for _, z := range zonings {
		zid := z.ID
		seeded = append(seeded, model.CostImprovement{
			CostApproachID:  ap.ID,
			ZoningID:        &zid,
			ImprovementType: z.SubZone,
			SFArea:          z.TotalSqFt,
		})
	}
	if err := e.db.WithContext(ctx).Create(&seeded).Error; err != nil {
		return nil, err
	}
	return seeded, nil
}
