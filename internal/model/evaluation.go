package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LandDimension units used for comp land sizes.
type LandDimension string

const (
	LandDimensionSF   LandDimension = "SF"
	LandDimensionAcre LandDimension = "ACRE"
)

// AdjustmentMode controls how comp adjustments are applied to the base
// price per square foot.
type AdjustmentMode string

const (
	AdjustmentModeDollar  AdjustmentMode = "Dollar"
	AdjustmentModePercent AdjustmentMode = "Percent"
)

// ComparisonBasis is the unit the subject property is analyzed in.
type ComparisonBasis string

const (
	ComparisonBasisSF   ComparisonBasis = "SF"
	ComparisonBasisUnit ComparisonBasis = "Unit"
	ComparisonBasisBed  ComparisonBasis = "Bed"
)

// Evaluation is the subject property under appraisal. It owns the zoning
// breakdown and the valuation scenarios.
type Evaluation struct {
	gorm.Model
	Ref          string `json:"ref" gorm:"uniqueIndex;not null"`
	BusinessName string `json:"business_name"`

	// Location fields
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	County        string `json:"county"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`

	// Subject metrics
	BuildingSize  float64       `json:"building_size"`
	LandSize      float64       `json:"land_size"`
	LandDimension LandDimension `json:"land_dimension" gorm:"default:SF"`

	ComparisonBasis    ComparisonBasis `json:"comparison_basis" gorm:"default:SF"`
	CompAdjustmentMode AdjustmentMode  `json:"comp_adjustment_mode" gorm:"default:Percent"`

	MapSelectedArea datatypes.JSON `json:"map_selected_area"`

	Zonings   []Zoning   `json:"zonings" gorm:"foreignKey:EvaluationID;constraint:OnDelete:CASCADE"`
	Scenarios []Scenario `json:"scenarios" gorm:"foreignKey:EvaluationID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the immutable external reference.
func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.Ref == "" {
		e.Ref = uuid.NewString()
	}
	return nil
}

// Zoning is one line of the subject's area breakdown (by sub-zone / use
// type). Income sources and cost improvements are seeded from these rows,
// and the sales approach prorates its blended value across them.
type Zoning struct {
	gorm.Model
	EvaluationID uint    `json:"evaluation_id" gorm:"index"`
	Zone         string  `json:"zone"`
	SubZone      string  `json:"sub_zone"`
	TotalSqFt    float64 `json:"total_sq_ft"`
	WeightSF     float64 `json:"weight_sf"`
	Bed          *int    `json:"bed"`
	Unit         *int    `json:"unit"`

	Evaluation Evaluation `json:"-" gorm:"foreignKey:EvaluationID"`
}
