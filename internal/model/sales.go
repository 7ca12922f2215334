package model

import "gorm.io/gorm"

// SalesApproach is the sales-comparison valuation of one scenario.
type SalesApproach struct {
	gorm.Model
	EvaluationID uint `json:"evaluation_id" gorm:"index"`
	ScenarioID   uint `json:"scenario_id" gorm:"uniqueIndex"`

	EvalWeight float64 `json:"eval_weight"`

	// Derived
	AveragedAdjustedPSF float64 `json:"averaged_adjusted_psf"`
	SalesApproachValue  float64 `json:"sales_approach_value"`
	TotalCompAdj        float64 `json:"total_comp_adj"`
	IncrementalValue    float64 `json:"incremental_value"`

	Comps                  []SalesComp                  `json:"comp_data" gorm:"foreignKey:SalesApproachID;constraint:OnDelete:CASCADE"`
	SubjectAdjustments     []SalesSubjectAdjustment     `json:"subject_property_adj" gorm:"foreignKey:SalesApproachID;constraint:OnDelete:CASCADE"`
	QualitativeAdjustments []SalesQualitativeAdjustment `json:"subject_qualitative_adjustments" gorm:"foreignKey:SalesApproachID;constraint:OnDelete:CASCADE"`
	ComparisonAttributes   []SalesComparisonAttribute   `json:"sales_comparison_attributes" gorm:"foreignKey:SalesApproachID;constraint:OnDelete:CASCADE"`

	Scenario Scenario `json:"-" gorm:"foreignKey:ScenarioID"`
}

// SalesComp is one comparable sale attached to a sales approach. The
// adjusted figures are derived from the comp's adjustment rows and its
// weight on every recompute.
type SalesComp struct {
	gorm.Model
	SalesApproachID uint `json:"sales_approach_id" gorm:"index"`
	CompID          uint `json:"comp_id"`

	Order         int           `json:"order"`
	Weight        float64       `json:"weight"` // percentage share among the approach's comps
	SalePrice     float64       `json:"sale_price"`
	LandSize      float64       `json:"land_size"`
	LandDimension LandDimension `json:"land_dimension" gorm:"default:SF"`

	// Derived
	TotalAdjustment     float64 `json:"total_adjustment"`
	AdjustedPSF         float64 `json:"adjusted_psf"`
	AveragedAdjustedPSF float64 `json:"averaged_adjusted_psf"`

	Adjustments            []SalesCompAdjustment            `json:"comps_adjustments" gorm:"foreignKey:SalesCompID;constraint:OnDelete:CASCADE"`
	QualitativeAdjustments []SalesCompQualitativeAdjustment `json:"comps_qualitative_adjustments" gorm:"foreignKey:SalesCompID;constraint:OnDelete:CASCADE"`
	ExtraAmenities         []SalesCompAmenity               `json:"extra_amenities" gorm:"foreignKey:SalesCompID;constraint:OnDelete:CASCADE"`

	SalesApproach SalesApproach `json:"-" gorm:"foreignKey:SalesApproachID"`
}

// SalesCompAdjustment is a quantitative delta on one comp, keyed by a
// stable business key. One row per (comp, adj_key).
type SalesCompAdjustment struct {
	gorm.Model
	SalesCompID uint   `json:"sales_comp_id" gorm:"uniqueIndex:idx_sales_comp_adj_key"`
	AdjKey      string `json:"adj_key" gorm:"uniqueIndex:idx_sales_comp_adj_key;not null"`
	AdjValue    string `json:"adj_value"`
	Order       int    `json:"order"`

	SalesComp SalesComp `json:"-" gorm:"foreignKey:SalesCompID"`
}

// SalesCompQualitativeAdjustment is a descriptive (non-numeric) rating on
// one comp, keyed like the quantitative rows.
type SalesCompQualitativeAdjustment struct {
	gorm.Model
	SalesCompID uint   `json:"sales_comp_id" gorm:"uniqueIndex:idx_sales_comp_qual_key"`
	AdjKey      string `json:"adj_key" gorm:"uniqueIndex:idx_sales_comp_qual_key;not null"`
	AdjValue    string `json:"adj_value"`
	Order       int    `json:"order"`

	SalesComp SalesComp `json:"-" gorm:"foreignKey:SalesCompID"`
}

// SalesCompAmenity is an extra amenity line on one comp. Amenities have no
// business key; blank-named rows are dropped and order follows the
// submitted array position.
type SalesCompAmenity struct {
	gorm.Model
	SalesCompID  uint   `json:"sales_comp_id" gorm:"index"`
	AmenityName  string `json:"another_amenity_name"`
	AmenityValue string `json:"another_amenity_value"`
	Order        int    `json:"order"`

	SalesComp SalesComp `json:"-" gorm:"foreignKey:SalesCompID"`
}

// SalesSubjectAdjustment is an approach-level adjustment describing the
// subject property itself.
type SalesSubjectAdjustment struct {
	gorm.Model
	SalesApproachID uint   `json:"sales_approach_id" gorm:"uniqueIndex:idx_sales_sub_adj_key"`
	AdjKey          string `json:"adj_key" gorm:"uniqueIndex:idx_sales_sub_adj_key;not null"`
	AdjValue        string `json:"adj_value"`
	Order           int    `json:"order"`

	SalesApproach SalesApproach `json:"-" gorm:"foreignKey:SalesApproachID"`
}

// SalesQualitativeAdjustment is an approach-level qualitative row carrying
// the subject's own rating alongside the adjustment value.
type SalesQualitativeAdjustment struct {
	gorm.Model
	SalesApproachID      uint   `json:"sales_approach_id" gorm:"uniqueIndex:idx_sales_qual_adj_key"`
	AdjKey               string `json:"adj_key" gorm:"uniqueIndex:idx_sales_qual_adj_key;not null"`
	AdjValue             string `json:"adj_value"`
	SubjectPropertyValue string `json:"subject_property_value"`
	Order                int    `json:"order"`

	SalesApproach SalesApproach `json:"-" gorm:"foreignKey:SalesApproachID"`
}

// SalesComparisonAttribute is one row of the approach's comparison grid,
// keyed by comparison_key.
type SalesComparisonAttribute struct {
	gorm.Model
	SalesApproachID uint   `json:"sales_approach_id" gorm:"uniqueIndex:idx_sales_comparison_key"`
	ComparisonKey   string `json:"comparison_key" gorm:"uniqueIndex:idx_sales_comparison_key;not null"`
	ComparisonValue string `json:"comparison_value"`
	Order           int    `json:"order"`

	SalesApproach SalesApproach `json:"-" gorm:"foreignKey:SalesApproachID"`
}
