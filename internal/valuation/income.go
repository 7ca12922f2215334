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

// IncomeSourceInput is one submitted rent line. A zero id means new.
type IncomeSourceInput struct {
	ID            uint    `json:"id"`
	ZoningID      *uint   `json:"zoning_id"`
	Type          string  `json:"type"`
	Space         string  `json:"space"`
	SquareFeet    float64 `json:"square_feet"`
	MonthlyIncome float64 `json:"monthly_income"`
	AnnualIncome  float64 `json:"annual_income"`
	RentSqFt      float64 `json:"rent_sq_ft"`
	Comments      string  `json:"comments"`
}

// OtherIncomeSourceInput is one submitted ancillary income line.
type OtherIncomeSourceInput struct {
	ID            uint    `json:"id"`
	Type          string  `json:"type"`
	MonthlyIncome float64 `json:"monthly_income"`
	AnnualIncome  float64 `json:"annual_income"`
	Comments      string  `json:"comments"`
}

// OperatingExpenseInput is one submitted annual expense line.
type OperatingExpenseInput struct {
	ID           uint    `json:"id"`
	ExpenseType  string  `json:"expense_type"`
	AnnualAmount float64 `json:"annual_amount"`
}

// IncomeApproachInput carries the income approach's scalar fields and its
// three child collections as desired state.
type IncomeApproachInput struct {
	ID         uint    `json:"id"`
	ScenarioID uint    `json:"res_evaluation_scenario_id"`
	EvalWeight float64 `json:"eval_weight"`
	Vacancy    float64 `json:"vacancy"`

	MonthlyCapitalizationRate float64 `json:"monthly_capitalization_rate"`
	AnnualCapitalizationRate  float64 `json:"annual_capitalization_rate"`
	SqFtCapitalizationRate    float64 `json:"sq_ft_capitalization_rate"`

	IncomeSources      []IncomeSourceInput      `json:"income_sources"`
	OtherIncomeSources []OtherIncomeSourceInput `json:"other_income_sources"`
	OperatingExpenses  []OperatingExpenseInput  `json:"operating_expenses"`
}

// IncomeSaveInput is the save-approach request for the income approach.
type IncomeSaveInput struct {
	EvaluationID uint                `json:"res_evaluation_id"`
	Approach     IncomeApproachInput `json:"approach"`
}

// SaveIncomeApproach updates the approach's scalar fields, synchronizes
// its child collections and re-enters the recompute pipeline. The returned
// record carries the freshly derived values.
func (e *Engine) SaveIncomeApproach(ctx context.Context, in IncomeSaveInput) (*model.IncomeApproach, error) {
	scenario, err := e.scenarioFor(ctx, in.Approach.ScenarioID, in.EvaluationID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(lockKey(model.ApproachIncome, scenario.ID))
	defer unlock()

	ap, err := e.resolveIncomeApproach(ctx, scenario, in.Approach.ID)
	if err != nil {
		return nil, err
	}

	ap.EvalWeight = in.Approach.EvalWeight
	ap.Vacancy = in.Approach.Vacancy
	ap.MonthlyCapitalizationRate = in.Approach.MonthlyCapitalizationRate
	ap.AnnualCapitalizationRate = in.Approach.AnnualCapitalizationRate
	ap.SqFtCapitalizationRate = in.Approach.SqFtCapitalizationRate
	if err := e.db.WithContext(ctx).Save(ap).Error; err != nil {
		return nil, eris.Wrap(err, "income: approach")
	}

	if err := e.syncIncomeCollections(ctx, ap.ID, in.Approach); err != nil {
		e.log.Error("income collections sync failed",
			zap.Uint("income_approach_id", ap.ID), zap.Error(err))
		return nil, eris.Wrapf(ErrSyncFailed, "income collections: %v", err)
	}

	if err := e.revalue(ctx, scenario.ID, model.ApproachIncome, StageIndicatedValue); err != nil {
		return nil, err
	}
	return e.loadIncomeApproach(ctx, scenario.ID)
}

// GetIncomeApproach returns the scenario's income approach with children.
func (e *Engine) GetIncomeApproach(ctx context.Context, scenarioID uint) (*model.IncomeApproach, error) {
	return e.loadIncomeApproach(ctx, scenarioID)
}

func (e *Engine) loadIncomeApproach(ctx context.Context, scenarioID uint) (*model.IncomeApproach, error) {
	var ap model.IncomeApproach
	err := e.db.WithContext(ctx).
		Preload("IncomeSources", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("OtherIncomeSources", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("OperatingExpenses", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
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

// scenarioFor loads a scenario and checks it belongs to the evaluation the
// caller named. Happens before any write.
func (e *Engine) scenarioFor(ctx context.Context, scenarioID, evaluationID uint) (*model.Scenario, error) {
	var sc model.Scenario
	err := e.db.WithContext(ctx).First(&sc, scenarioID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if evaluationID != 0 && sc.EvaluationID != evaluationID {
		return nil, ErrNotFound
	}
	return &sc, nil
}

// resolveIncomeApproach enforces the create-versus-update contract: a zero
// submitted id creates the scenario's approach and fails on a duplicate; a
// non-zero id must match the stored row.
func (e *Engine) resolveIncomeApproach(ctx context.Context, scenario *model.Scenario, inputID uint) (*model.IncomeApproach, error) {
	existing, err := e.incomeApproachByScenario(ctx, scenario.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if inputID == 0 {
		if existing != nil {
			return nil, ErrDuplicate
		}
		ap := &model.IncomeApproach{
			EvaluationID: scenario.EvaluationID,
			ScenarioID:   scenario.ID,
		}
		if err := e.db.WithContext(ctx).Create(ap).Error; err != nil {
			return nil, eris.Wrap(err, "income: create approach")
		}
		return ap, nil
	}
	if existing == nil || existing.ID != inputID {
		return nil, ErrNotFound
	}
	return existing, nil
}

func (e *Engine) syncIncomeCollections(ctx context.Context, approachID uint, in IncomeApproachInput) error {
	sources := make([]model.IncomeSource, 0, len(in.IncomeSources))
	for _, s := range in.IncomeSources {
		row := model.IncomeSource{
			IncomeApproachID: approachID,
			ZoningID:         s.ZoningID,
			Type:             s.Type,
			Space:            s.Space,
			SquareFeet:       s.SquareFeet,
			MonthlyIncome:    s.MonthlyIncome,
			AnnualIncome:     s.AnnualIncome,
			RentSqFt:         s.RentSqFt,
			Comments:         s.Comments,
		}
		row.ID = s.ID
		sources = append(sources, row)
	}

	others := make([]model.OtherIncomeSource, 0, len(in.OtherIncomeSources))
	for _, s := range in.OtherIncomeSources {
		row := model.OtherIncomeSource{
			IncomeApproachID: approachID,
			Type:             s.Type,
			MonthlyIncome:    s.MonthlyIncome,
			AnnualIncome:     s.AnnualIncome,
			Comments:         s.Comments,
		}
		row.ID = s.ID
		others = append(others, row)
	}

	expenses := make([]model.OperatingExpense, 0, len(in.OperatingExpenses))
	for _, x := range in.OperatingExpenses {
		row := model.OperatingExpense{
			IncomeApproachID: approachID,
			ExpenseType:      x.ExpenseType,
			AnnualAmount:     x.AnnualAmount,
		}
		row.ID = x.ID
		expenses = append(expenses, row)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncByID(gctx, e.db,
			func(db *gorm.DB) *gorm.DB { return db.Where("income_approach_id = ?", approachID) },
			sources,
			func(r model.IncomeSource) uint { return r.ID },
			func(r model.IncomeSource, id uint) model.IncomeSource { r.ID = id; return r },
			func(old, cur model.IncomeSource) model.IncomeSource { cur.Model = old.Model; return cur })
	})
	g.Go(func() error {
		return syncByID(gctx, e.db,
			func(db *gorm.DB) *gorm.DB { return db.Where("income_approach_id = ?", approachID) },
			others,
			func(r model.OtherIncomeSource) uint { return r.ID },
			func(r model.OtherIncomeSource, id uint) model.OtherIncomeSource { r.ID = id; return r },
			func(old, cur model.OtherIncomeSource) model.OtherIncomeSource { cur.Model = old.Model; return cur })
	})
	g.Go(func() error {
		return syncByID(gctx, e.db,
			func(db *gorm.DB) *gorm.DB { return db.Where("income_approach_id = ?", approachID) },
			expenses,
			func(r model.OperatingExpense) uint { return r.ID },
			func(r model.OperatingExpense, id uint) model.OperatingExpense { r.ID = id; return r },
			func(old, cur model.OperatingExpense) model.OperatingExpense {
				cur.Model = old.Model
				cur.PercentageOfGross = old.PercentageOfGross
				cur.TotalPerSqFt = old.TotalPerSqFt
				return cur
			})
	})
	return g.Wait()
}

// recomputeIncome rebuilds every derived field of the scenario's income
// approach from the persisted rows. Income-source rows tied to a zoning
// that left the subject are removed, and an empty collection is seeded
// with one row per zoning.
func (e *Engine) recomputeIncome(ctx context.Context, scenarioID uint) error {
	ap, err := e.incomeApproachByScenario(ctx, scenarioID)
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

	sources, err := e.reconcileIncomeSources(ctx, ap, zonings)
	if err != nil {
		return err
	}

	totalMonthly, totalAnnual, totalSqFt, totalRentSqFt := 0.0, 0.0, 0.0, 0.0
	for _, s := range sources {
		totalMonthly += s.MonthlyIncome
		totalAnnual += s.AnnualIncome
		totalSqFt += s.SquareFeet
		totalRentSqFt += s.RentSqFt
	}
	ap.TotalMonthlyIncome = round2(totalMonthly)
	ap.TotalAnnualIncome = round2(totalAnnual)
	ap.TotalSqFt = totalSqFt
	ap.TotalRentSqFt = round2(totalRentSqFt)

	vacant := round2(totalAnnual * ap.Vacancy / 100)
	ap.VacantAmount = -vacant
	ap.AdjustedGrossAmount = round2(totalAnnual - vacant)

	var others []model.OtherIncomeSource
	if err := e.db.WithContext(ctx).Where("income_approach_id = ?", ap.ID).Find(&others).Error; err != nil {
		return err
	}
	otherAnnual := 0.0
	for _, o := range others {
		otherAnnual += o.AnnualIncome
	}
	ap.OtherTotalAnnualIncome = round2(otherAnnual)

	var expenses []model.OperatingExpense
	if err := e.db.WithContext(ctx).Where("income_approach_id = ?", ap.ID).Find(&expenses).Error; err != nil {
		return err
	}
	oeAnnual, oeGross, oePerSqFt := 0.0, 0.0, 0.0
	for i := range expenses {
		x := &expenses[i]
		x.TotalPerSqFt = round2(safeDiv(x.AnnualAmount, ev.BuildingSize))
		x.PercentageOfGross = round2(safeDiv(x.AnnualAmount, ap.AdjustedGrossAmount) * 100)
		if err := e.db.WithContext(ctx).Save(x).Error; err != nil {
			return err
		}
		oeAnnual += x.AnnualAmount
		oeGross += x.PercentageOfGross
		oePerSqFt += x.TotalPerSqFt
	}
	ap.TotalOEAnnualAmount = round2(oeAnnual)
	ap.TotalOEGross = round2(oeGross)
	ap.TotalOEPerSquareFeet = round2(oePerSqFt)

	// Net income only moves when a monthly capitalization rate is on file.
	// Without one the stored figure stays as-is rather than resetting.
	if ap.MonthlyCapitalizationRate != 0 {
		net := round2(ap.AdjustedGrossAmount + ap.OtherTotalAnnualIncome - ap.TotalOEAnnualAmount)
		ap.TotalNetIncome = &net
	}

	if ap.TotalNetIncome != nil {
		net := *ap.TotalNetIncome
		ap.IndicatedRangeMonthly = round2(safeDiv(net, ap.MonthlyCapitalizationRate/100))
		ap.IndicatedRangeAnnual = round2(safeDiv(net, ap.AnnualCapitalizationRate/100))
		ap.IndicatedRangeSqFt = round2(safeDiv(net, ap.SqFtCapitalizationRate/100))
		ap.IndicatedPSFMonthly = round2(safeDiv(ap.IndicatedRangeMonthly, ev.BuildingSize))
		ap.IndicatedPSFAnnual = round2(safeDiv(ap.IndicatedRangeAnnual, ev.BuildingSize))
		ap.IndicatedPSFSqFt = round2(safeDiv(ap.IndicatedRangeSqFt, ev.BuildingSize))
	}
	ap.IncrementalValue = round2(ap.IndicatedRangeAnnual * ap.EvalWeight)

	return e.db.WithContext(ctx).Save(ap).Error
}

// reconcileIncomeSources removes rows orphaned by a vanished zoning and
// seeds one row per zoning when the collection is empty, so a fresh
// approach always reflects the subject's area breakdown.
func (e *Engine) reconcileIncomeSources(ctx context.Context, ap *model.IncomeApproach, zonings []model.Zoning) ([]model.IncomeSource, error) {
	var sources []model.IncomeSource
	if err := e.db.WithContext(ctx).Where("income_approach_id = ?", ap.ID).Find(&sources).Error; err != nil {
		return nil, err
	}

	zoneIDs := make(map[uint]struct{}, len(zonings))
	for _, z := range zonings {
		zoneIDs[z.ID] = struct{}{}
	}

	kept := sources[:0]
	for _, s := range sources {
		if s.ZoningID != nil {
			if _, ok := zoneIDs[*s.ZoningID]; !ok {
				if err := e.db.WithContext(ctx).Unscoped().Delete(&model.IncomeSource{}, s.ID).Error; err != nil {
					return nil, err
				}
				continue
			}
		}
		kept = append(kept, s)
	}

	if len(kept) > 0 || len(zonings) == 0 {
		return kept, nil
	}

	seeded := make([]model.IncomeSource, 0, len(zonings))
	for _, z := range zonings {
		zid := z.ID
		seeded = append(seeded, model.IncomeSource{
			IncomeApproachID: ap.ID,
			ZoningID:         &zid,
			Type:             z.SubZone,
			Space:            z.SubZone,
			SquareFeet:       z.TotalSqFt,
		})
	}
	if err := e.db.WithContext(ctx).Create(&seeded).Error; err != nil {
		return nil, err
	}
	return seeded, nil
}
