package model

import "gorm.io/gorm"

// ApproachType names the three valuation methodologies.
type ApproachType string

const (
	ApproachIncome ApproachType = "Income"
	ApproachSale   ApproachType = "Sale"
	ApproachCost   ApproachType = "Cost"
)

// Scenario is one valuation context inside an evaluation. The approach
// flags control which approach sub-records exist; WeightedMarketValue is
// derived and owned exclusively by the weighted value aggregator.
type Scenario struct {
	gorm.Model
	EvaluationID uint   `json:"evaluation_id" gorm:"index"`
	Name         string `json:"name"`

	HasIncomeApproach bool `json:"has_income_approach"`
	HasSalesApproach  bool `json:"has_sales_approach"`
	HasCostApproach   bool `json:"has_cost_approach"`

	WeightedMarketValue float64 `json:"weighted_market_value"`
	Rounding            int     `json:"rounding"`

	IncomeApproach *IncomeApproach `json:"income_approach,omitempty" gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
	SalesApproach  *SalesApproach  `json:"sales_approach,omitempty" gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
	CostApproach   *CostApproach   `json:"cost_approach,omitempty" gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`

	Evaluation Evaluation `json:"-" gorm:"foreignKey:EvaluationID"`
}
