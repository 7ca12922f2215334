package model

import "gorm.io/gorm"

// IncomeApproach is the income-capitalization valuation of one scenario.
// Fields below the capitalization rates are derived; the calculator always
// recomputes them from the persisted income and expense rows before a
// response leaves the server.
type IncomeApproach struct {
	gorm.Model
	EvaluationID uint `json:"evaluation_id" gorm:"index"`
	ScenarioID   uint `json:"scenario_id" gorm:"uniqueIndex"`

	EvalWeight float64 `json:"eval_weight"`
	Vacancy    float64 `json:"vacancy"`

	MonthlyCapitalizationRate float64 `json:"monthly_capitalization_rate"`
	AnnualCapitalizationRate  float64 `json:"annual_capitalization_rate"`
	SqFtCapitalizationRate    float64 `json:"sq_ft_capitalization_rate"`

	OtherTotalAnnualIncome float64 `json:"other_total_annual_income"`

	// Derived
	TotalMonthlyIncome   float64 `json:"total_monthly_income"`
	TotalAnnualIncome    float64 `json:"total_annual_income"`
	VacantAmount         float64 `json:"vacant_amount"` // stored negated
	AdjustedGrossAmount  float64 `json:"adjusted_gross_amount"`
	TotalOEAnnualAmount  float64 `json:"total_oe_annual_amount"`
	TotalOEGross         float64 `json:"total_oe_gross"`
	TotalOEPerSquareFeet float64 `json:"total_oe_per_square_feet"`
	TotalSqFt            float64 `json:"total_sq_ft"`
	TotalRentSqFt        float64 `json:"total_rent_sq_ft"`

	TotalNetIncome        *float64 `json:"total_net_income"` // nil until a monthly cap rate is present
	IndicatedRangeMonthly float64  `json:"indicated_range_monthly"`
	IndicatedRangeAnnual  float64  `json:"indicated_range_annual"`
	IndicatedRangeSqFt    float64  `json:"indicated_range_sq_ft"`
	IndicatedPSFMonthly   float64  `json:"indicated_psf_monthly"`
	IndicatedPSFAnnual    float64  `json:"indicated_psf_annual"`
	IndicatedPSFSqFt      float64  `json:"indicated_psf_sq_ft"`

	IncrementalValue float64 `json:"incremental_value"`

	IncomeSources      []IncomeSource      `json:"income_sources" gorm:"foreignKey:IncomeApproachID;constraint:OnDelete:CASCADE"`
	OtherIncomeSources []OtherIncomeSource `json:"other_income_sources" gorm:"foreignKey:IncomeApproachID;constraint:OnDelete:CASCADE"`
	OperatingExpenses  []OperatingExpense  `json:"operating_expenses" gorm:"foreignKey:IncomeApproachID;constraint:OnDelete:CASCADE"`

	Scenario Scenario `json:"-" gorm:"foreignKey:ScenarioID"`
}

// IncomeSource is one rent line. Rows seeded from a zoning record carry its
// id; a row whose zoning disappears from the subject is removed on the next
// recompute.
type IncomeSource struct {
	gorm.Model
	IncomeApproachID uint  `json:"income_approach_id" gorm:"index"`
	ZoningID         *uint `json:"zoning_id" gorm:"index"`

	Type          string  `json:"type"`
	Space         string  `json:"space"`
	SquareFeet    float64 `json:"square_feet"`
	MonthlyIncome float64 `json:"monthly_income"`
	AnnualIncome  float64 `json:"annual_income"`
	RentSqFt      float64 `json:"rent_sq_ft"`
	Comments      string  `json:"comments"`

	IncomeApproach IncomeApproach `json:"-" gorm:"foreignKey:IncomeApproachID"`
}

// OtherIncomeSource is ancillary income (billboards, parking, laundry).
type OtherIncomeSource struct {
	gorm.Model
	IncomeApproachID uint `json:"income_approach_id" gorm:"index"`

	Type          string  `json:"type"`
	MonthlyIncome float64 `json:"monthly_income"`
	AnnualIncome  float64 `json:"annual_income"`
	Comments      string  `json:"comments"`

	IncomeApproach IncomeApproach `json:"-" gorm:"foreignKey:IncomeApproachID"`
}

// OperatingExpense is one annual expense line. PercentageOfGross and
// TotalPerSqFt are derived.
type OperatingExpense struct {
	gorm.Model
	IncomeApproachID uint `json:"income_approach_id" gorm:"index"`

	ExpenseType       string  `json:"expense_type"`
	AnnualAmount      float64 `json:"annual_amount"`
	PercentageOfGross float64 `json:"percentage_of_gross"`
	TotalPerSqFt      float64 `json:"total_per_sq_ft"`

	IncomeApproach IncomeApproach `json:"-" gorm:"foreignKey:IncomeApproachID"`
}
