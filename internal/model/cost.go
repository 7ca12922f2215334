package model

import "gorm.io/gorm"

// CostApproach is the replacement-cost valuation of one scenario. Land
// value comes from the comp grid, improvement cost from the improvement
// rows seeded off the subject's zonings.
type CostApproach struct {
	gorm.Model
	EvaluationID uint `json:"evaluation_id" gorm:"index"`
	ScenarioID   uint `json:"scenario_id" gorm:"uniqueIndex"`

	EvalWeight float64 `json:"eval_weight"`

	// Derived
	AveragedAdjustedPSF           float64 `json:"averaged_adjusted_psf"`
	LandValue                     float64 `json:"land_value"`
	OverallReplacementCost        float64 `json:"overall_replacement_cost"`
	TotalDepreciation             float64 `json:"total_depreciation"`
	ImprovementsTotalSFArea       float64 `json:"improvements_total_sf_area"`
	ImprovementsTotalAdjustedCost float64 `json:"improvements_total_adjusted_cost"`
	TotalCostValuation            float64 `json:"total_cost_valuation"`
	IndicatedValuePSF             float64 `json:"indicated_value_psf"`
	IncrementalValue              float64 `json:"incremental_value"`

	Comps                []CostComp                `json:"comp_data" gorm:"foreignKey:CostApproachID;constraint:OnDelete:CASCADE"`
	SubjectAdjustments   []CostSubjectAdjustment   `json:"subject_property_adj" gorm:"foreignKey:CostApproachID;constraint:OnDelete:CASCADE"`
	ComparisonAttributes []CostComparisonAttribute `json:"cost_comparison_attributes" gorm:"foreignKey:CostApproachID;constraint:OnDelete:CASCADE"`
	Improvements         []CostImprovement         `json:"improvements" gorm:"foreignKey:CostApproachID;constraint:OnDelete:CASCADE"`

	Scenario Scenario `json:"-" gorm:"foreignKey:ScenarioID"`
}

// CostComp is one comparable land sale on a cost approach.
type CostComp struct {
	gorm.Model
	CostApproachID uint `json:"cost_approach_id" gorm:"index"`
	CompID         uint `json:"comp_id"`

	Order         int           `json:"order"`
	Weight        float64       `json:"weight"`
	SalePrice     float64       `json:"sale_price"`
	LandSize      float64       `json:"land_size"`
	LandDimension LandDimension `json:"land_dimension" gorm:"default:SF"`

	// Derived
	TotalAdjustment     float64 `json:"total_adjustment"`
	AdjustedPSF         float64 `json:"adjusted_psf"`
	AveragedAdjustedPSF float64 `json:"averaged_adjusted_psf"`

	Adjustments []CostCompAdjustment `json:"comps_adjustments" gorm:"foreignKey:CostCompID;constraint:OnDelete:CASCADE"`

	CostApproach CostApproach `json:"-" gorm:"foreignKey:CostApproachID"`
}

// CostCompAdjustment is a keyed adjustment on one cost comp.
type CostCompAdjustment struct {
	gorm.Model
	CostCompID uint   `json:"cost_comp_id" gorm:"uniqueIndex:idx_cost_comp_adj_key"`
	AdjKey     string `json:"adj_key" gorm:"uniqueIndex:idx_cost_comp_adj_key;not null"`
	AdjValue   string `json:"adj_value"`
	Order      int    `json:"order"`

	CostComp CostComp `json:"-" gorm:"foreignKey:CostCompID"`
}

// CostSubjectAdjustment is an approach-level adjustment describing the
// subject land.
type CostSubjectAdjustment struct {
	gorm.Model
	CostApproachID uint   `json:"cost_approach_id" gorm:"uniqueIndex:idx_cost_sub_adj_key"`
	AdjKey         string `json:"adj_key" gorm:"uniqueIndex:idx_cost_sub_adj_key;not null"`
	AdjValue       string `json:"adj_value"`
	Order          int    `json:"order"`

	CostApproach CostApproach `json:"-" gorm:"foreignKey:CostApproachID"`
}

// CostComparisonAttribute is one row of the cost approach's comparison
// grid, keyed by comparison_key.
type CostComparisonAttribute struct {
	gorm.Model
	CostApproachID  uint   `json:"cost_approach_id" gorm:"uniqueIndex:idx_cost_comparison_key"`
	ComparisonKey   string `json:"comparison_key" gorm:"uniqueIndex:idx_cost_comparison_key;not null"`
	ComparisonValue string `json:"comparison_value"`
	Order           int    `json:"order"`

	CostApproach CostApproach `json:"-" gorm:"foreignKey:CostApproachID"`
}

// CostImprovement is one structure on the subject. Rows seeded from a
// zoning record carry its id and are removed when the zoning goes away.
// StructureCost, DepreciationAmount and AdjustedCost are derived.
type CostImprovement struct {
	gorm.Model
	CostApproachID uint  `json:"cost_approach_id" gorm:"index"`
	ZoningID       *uint `json:"zoning_id" gorm:"index"`

	ImprovementType string  `json:"improvement_type"`
	SFArea          float64 `json:"sf_area"`
	AdjustedPSF     float64 `json:"adjusted_psf"`
	Depreciation    float64 `json:"depreciation"` // percent

	StructureCost      float64 `json:"structure_cost"`
	DepreciationAmount float64 `json:"depreciation_amount"`
	AdjustedCost       float64 `json:"adjusted_cost"`

	CostApproach CostApproach `json:"-" gorm:"foreignKey:CostApproachID"`
}
