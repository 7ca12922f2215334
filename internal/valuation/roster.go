package valuation

import (
	"context"

	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// AdjustmentInput is one submitted adjustment row. When adj_key is blank a
// user-entered label is normalized into the business key, so custom
// adjustments stay stable across saves.
type AdjustmentInput struct {
	AdjKey               string `json:"adj_key"`
	AdjLabel             string `json:"adj_label"`
	AdjValue             string `json:"adj_value"`
	SubjectPropertyValue string `json:"subject_property_value"`
	Order                int    `json:"order"`
}

func (a AdjustmentInput) key() string {
	if a.AdjKey != "" {
		return a.AdjKey
	}
	if a.AdjLabel != "" {
		return slug.Make(a.AdjLabel)
	}
	return ""
}

// ComparisonAttributeInput is one submitted comparison-grid row.
type ComparisonAttributeInput struct {
	ComparisonKey   string `json:"comparison_key"`
	ComparisonValue string `json:"comparison_value"`
	Order           int    `json:"order"`
}

// AmenityInput is one submitted extra-amenity row. Rows without a name are
// dropped and order follows the array position.
type AmenityInput struct {
	AmenityName  string `json:"another_amenity_name"`
	AmenityValue string `json:"another_amenity_value"`
}

// SalesCompInput is one submitted comparable sale with its nested
// collections. A zero id means the comp is new.
type SalesCompInput struct {
	ID            uint                `json:"id"`
	CompID        uint                `json:"comp_id"`
	Order         int                 `json:"order"`
	Weight        float64             `json:"weight"`
	SalePrice     float64             `json:"sale_price"`
	LandSize      float64             `json:"land_size"`
	LandDimension model.LandDimension `json:"land_dimension"`

	Adjustments            []AdjustmentInput `json:"comps_adjustments"`
	QualitativeAdjustments []AdjustmentInput `json:"comps_qualitative_adjustments"`
	ExtraAmenities         []AmenityInput    `json:"extra_amenities"`
}

// CostCompInput is one submitted comparable land sale.
type CostCompInput struct {
	ID            uint                `json:"id"`
	CompID        uint                `json:"comp_id"`
	Order         int                 `json:"order"`
	Weight        float64             `json:"weight"`
	SalePrice     float64             `json:"sale_price"`
	LandSize      float64             `json:"land_size"`
	LandDimension model.LandDimension `json:"land_dimension"`

	Adjustments []AdjustmentInput `json:"comps_adjustments"`
}

func landDimensionOrDefault(d model.LandDimension) model.LandDimension {
	if d == "" {
		return model.LandDimensionSF
	}
	return d
}

// syncSalesComps reconciles the persisted comp roster of one sales
// approach against the submitted one. Each kept comp is written and its
// nested collections synchronized; removed comps lose their child rows
// first. Per-comp work runs concurrently.
func (e *Engine) syncSalesComps(ctx context.Context, approachID uint, inputs []SalesCompInput) error {
	var existing []model.SalesComp
	if err := e.db.WithContext(ctx).Where("sales_approach_id = ?", approachID).Find(&existing).Error; err != nil {
		return err
	}
	stored := make(map[uint]model.SalesComp, len(existing))
	for _, c := range existing {
		stored[c.ID] = c
	}

	keep := make(map[uint]struct{}, len(inputs))
	for _, in := range inputs {
		if _, ok := stored[in.ID]; ok {
			keep[in.ID] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			comp := model.SalesComp{
				SalesApproachID: approachID,
				CompID:          in.CompID,
				Order:           in.Order,
				Weight:          in.Weight,
				SalePrice:       in.SalePrice,
				LandSize:        in.LandSize,
				LandDimension:   landDimensionOrDefault(in.LandDimension),
			}
			if old, ok := stored[in.ID]; ok {
				comp.Model = old.Model
				comp.TotalAdjustment = old.TotalAdjustment
				comp.AdjustedPSF = old.AdjustedPSF
				comp.AveragedAdjustedPSF = old.AveragedAdjustedPSF
			}
			if err := e.db.WithContext(gctx).Save(&comp).Error; err != nil {
				return err
			}
			return e.syncSalesCompChildren(gctx, comp.ID, in)
		})
	}
	for _, old := range existing {
		if _, ok := keep[old.ID]; ok {
			continue
		}
		old := old
		g.Go(func() error {
			return e.deleteSalesComp(gctx, old.ID)
		})
	}
	return g.Wait()
}

func (e *Engine) syncSalesCompChildren(ctx context.Context, compID uint, in SalesCompInput) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.syncSalesCompAdjustments(gctx, compID, in.Adjustments) })
	g.Go(func() error { return e.syncSalesCompQualitative(gctx, compID, in.QualitativeAdjustments) })
	g.Go(func() error { return e.syncSalesCompAmenities(gctx, compID, in.ExtraAmenities) })
	return g.Wait()
}

func (e *Engine) deleteSalesComp(ctx context.Context, compID uint) error {
	db := e.db.WithContext(ctx).Unscoped()
	if err := db.Where("sales_comp_id = ?", compID).Delete(&model.SalesCompAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("sales_comp_id = ?", compID).Delete(&model.SalesCompQualitativeAdjustment{}).Error; err != nil {
		return err
	}
	if err := db.Where("sales_comp_id = ?", compID).Delete(&model.SalesCompAmenity{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.SalesComp{}, compID).Error
}

// syncCostComps mirrors syncSalesComps for the cost approach's land comps.
func (e *Engine) syncCostComps(ctx context.Context, approachID uint, inputs []CostCompInput) error {
	var existing []model.CostComp
	if err := e.db.WithContext(ctx).Where("cost_approach_id = ?", approachID).Find(&existing).Error; err != nil {
		return err
	}
	stored := make(map[uint]model.CostComp, len(existing))
	for _, c := range existing {
		stored[c.ID] = c
	}

	keep := make(map[uint]struct{}, len(inputs))
	for _, in := range inputs {
		if _, ok := stored[in.ID]; ok {
			keep[in.ID] = struct{}{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			comp := model.CostComp{
				CostApproachID: approachID,
				CompID:         in.CompID,
				Order:          in.Order,
				Weight:         in.Weight,
				SalePrice:      in.SalePrice,
				LandSize:       in.LandSize,
				LandDimension:  landDimensionOrDefault(in.LandDimension),
			}
			if old, ok := stored[in.ID]; ok {
				comp.Model = old.Model
				comp.TotalAdjustment = old.TotalAdjustment
				comp.AdjustedPSF = old.AdjustedPSF
				comp.AveragedAdjustedPSF = old.AveragedAdjustedPSF
			}
			if err := e.db.WithContext(gctx).Save(&comp).Error; err != nil {
				return err
			}
			return e.syncCostCompAdjustments(gctx, comp.ID, in.Adjustments)
		})
	}
	for _, old := range existing {
		if _, ok := keep[old.ID]; ok {
			continue
		}
		old := old
		g.Go(func() error {
			return e.deleteCostComp(gctx, old.ID)
		})
	}
	return g.Wait()
}

func (e *Engine) deleteCostComp(ctx context.Context, compID uint) error {
	db := e.db.WithContext(ctx).Unscoped()
	if err := db.Where("cost_comp_id = ?", compID).Delete(&model.CostCompAdjustment{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.CostComp{}, compID).Error
}

func (e *Engine) syncSalesCompAdjustments(ctx context.Context, compID uint, inputs []AdjustmentInput) error {
	desired := make([]model.SalesCompAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.SalesCompAdjustment{
			SalesCompID: compID,
			AdjKey:      in.key(),
			AdjValue:    in.AdjValue,
			Order:       in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_comp_id = ?", compID) },
		desired,
		func(r model.SalesCompAdjustment) string { return r.AdjKey },
		func(old, cur model.SalesCompAdjustment) bool {
			return old.AdjValue != cur.AdjValue || old.Order != cur.Order
		},
		func(old, cur model.SalesCompAdjustment) model.SalesCompAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncSalesCompQualitative(ctx context.Context, compID uint, inputs []AdjustmentInput) error {
	desired := make([]model.SalesCompQualitativeAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.SalesCompQualitativeAdjustment{
			SalesCompID: compID,
			AdjKey:      in.key(),
			AdjValue:    in.AdjValue,
			Order:       in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_comp_id = ?", compID) },
		desired,
		func(r model.SalesCompQualitativeAdjustment) string { return r.AdjKey },
		func(old, cur model.SalesCompQualitativeAdjustment) bool {
			return old.AdjValue != cur.AdjValue || old.Order != cur.Order
		},
		func(old, cur model.SalesCompQualitativeAdjustment) model.SalesCompQualitativeAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncSalesCompAmenities(ctx context.Context, compID uint, inputs []AmenityInput) error {
	desired := make([]model.SalesCompAmenity, 0, len(inputs))
	for i, in := range inputs {
		desired = append(desired, model.SalesCompAmenity{
			SalesCompID:  compID,
			AmenityName:  in.AmenityName,
			AmenityValue: in.AmenityValue,
			Order:        i,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_comp_id = ?", compID) },
		desired,
		func(r model.SalesCompAmenity) string { return r.AmenityName },
		func(old, cur model.SalesCompAmenity) bool {
			return old.AmenityValue != cur.AmenityValue || old.Order != cur.Order
		},
		func(old, cur model.SalesCompAmenity) model.SalesCompAmenity {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncCostCompAdjustments(ctx context.Context, compID uint, inputs []AdjustmentInput) error {
	desired := make([]model.CostCompAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.CostCompAdjustment{
			CostCompID: compID,
			AdjKey:     in.key(),
			AdjValue:   in.AdjValue,
			Order:      in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("cost_comp_id = ?", compID) },
		desired,
		func(r model.CostCompAdjustment) string { return r.AdjKey },
		func(old, cur model.CostCompAdjustment) bool {
			return old.AdjValue != cur.AdjValue || old.Order != cur.Order
		},
		func(old, cur model.CostCompAdjustment) model.CostCompAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncSalesSubjectAdjustments(ctx context.Context, approachID uint, inputs []AdjustmentInput) error {
	desired := make([]model.SalesSubjectAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.SalesSubjectAdjustment{
			SalesApproachID: approachID,
			AdjKey:          in.key(),
			AdjValue:        in.AdjValue,
			Order:           in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_approach_id = ?", approachID) },
		desired,
		func(r model.SalesSubjectAdjustment) string { return r.AdjKey },
		func(old, cur model.SalesSubjectAdjustment) bool {
			return old.AdjValue != cur.AdjValue || old.Order != cur.Order
		},
		func(old, cur model.SalesSubjectAdjustment) model.SalesSubjectAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncSalesQualitativeAdjustments(ctx context.Context, approachID uint, inputs []AdjustmentInput) error {
	desired := make([]model.SalesQualitativeAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.SalesQualitativeAdjustment{
			SalesApproachID:      approachID,
			AdjKey:               in.key(),
			AdjValue:             in.AdjValue,
			SubjectPropertyValue: in.SubjectPropertyValue,
			Order:                in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_approach_id = ?", approachID) },
		desired,
		func(r model.SalesQualitativeAdjustment) string { return r.AdjKey },
		func(old, cur model.SalesQualitativeAdjustment) bool {
			return old.AdjValue != cur.AdjValue ||
				old.SubjectPropertyValue != cur.SubjectPropertyValue ||
				old.Order != cur.Order
		},
		func(old, cur model.SalesQualitativeAdjustment) model.SalesQualitativeAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncCostSubjectAdjustments(ctx context.Context, approachID uint, inputs []AdjustmentInput) error {
	desired := make([]model.CostSubjectAdjustment, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.CostSubjectAdjustment{
			CostApproachID: approachID,
			AdjKey:         in.key(),
			AdjValue:       in.AdjValue,
			Order:          in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("cost_approach_id = ?", approachID) },
		desired,
		func(r model.CostSubjectAdjustment) string { return r.AdjKey },
		func(old, cur model.CostSubjectAdjustment) bool {
			return old.AdjValue != cur.AdjValue || old.Order != cur.Order
		},
		func(old, cur model.CostSubjectAdjustment) model.CostSubjectAdjustment {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncSalesComparisonAttributes(ctx context.Context, approachID uint, inputs []ComparisonAttributeInput) error {
	desired := make([]model.SalesComparisonAttribute, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.SalesComparisonAttribute{
			SalesApproachID: approachID,
			ComparisonKey:   in.ComparisonKey,
			ComparisonValue: in.ComparisonValue,
			Order:           in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("sales_approach_id = ?", approachID) },
		desired,
		func(r model.SalesComparisonAttribute) string { return r.ComparisonKey },
		func(old, cur model.SalesComparisonAttribute) bool {
			return old.ComparisonValue != cur.ComparisonValue || old.Order != cur.Order
		},
		func(old, cur model.SalesComparisonAttribute) model.SalesComparisonAttribute {
			cur.Model = old.Model
			return cur
		})
}

func (e *Engine) syncCostComparisonAttributes(ctx context.Context, approachID uint, inputs []ComparisonAttributeInput) error {
	desired := make([]model.CostComparisonAttribute, 0, len(inputs))
	for _, in := range inputs {
		desired = append(desired, model.CostComparisonAttribute{
			CostApproachID:  approachID,
			ComparisonKey:   in.ComparisonKey,
			ComparisonValue: in.ComparisonValue,
			Order:           in.Order,
		})
	}
	return syncKeyed(ctx, e.db,
		func(db *gorm.DB) *gorm.DB { return db.Where("cost_approach_id = ?", approachID) },
		desired,
		func(r model.CostComparisonAttribute) string { return r.ComparisonKey },
		func(old, cur model.CostComparisonAttribute) bool {
			return old.ComparisonValue != cur.ComparisonValue || old.Order != cur.Order
		},
		func(old, cur model.CostComparisonAttribute) model.CostComparisonAttribute {
			cur.Model = old.Model
			return cur
		})
}
