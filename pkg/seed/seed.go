package seed

import (
	"log"

	"gorm.io/gorm"

	"appraisal_backend/internal/model"
)

// ComparisonAttributes installs the default comparison-attribute catalog.
// Existing rows are kept, so operators can re-run this safely.
func ComparisonAttributes(db *gorm.DB) error {
	defaults := []model.ComparisonAttributeDefinition{
		{ApproachType: model.ApproachSale, ComparisonKey: "sale-date", Label: "Sale Date", Order: 1},
		{ApproachType: model.ApproachSale, ComparisonKey: "location", Label: "Location", Order: 2},
		{ApproachType: model.ApproachSale, ComparisonKey: "land-size", Label: "Land Size", Order: 3},
		{ApproachType: model.ApproachSale, ComparisonKey: "building-size", Label: "Building Size", Order: 4},
		{ApproachType: model.ApproachSale, ComparisonKey: "zoning", Label: "Zoning", Order: 5},
		{ApproachType: model.ApproachSale, ComparisonKey: "condition", Label: "Condition", Order: 6},
		{ApproachType: model.ApproachSale, ComparisonKey: "age", Label: "Year Built", Order: 7},
		{ApproachType: model.ApproachSale, ComparisonKey: "quality", Label: "Construction Quality", Order: 8},

		{ApproachType: model.ApproachCost, ComparisonKey: "sale-date", Label: "Sale Date", Order: 1},
		{ApproachType: model.ApproachCost, ComparisonKey: "location", Label: "Location", Order: 2},
		{ApproachType: model.ApproachCost, ComparisonKey: "land-size", Label: "Land Size", Order: 3},
		{ApproachType: model.ApproachCost, ComparisonKey: "zoning", Label: "Zoning", Order: 4},
		{ApproachType: model.ApproachCost, ComparisonKey: "topography", Label: "Topography", Order: 5},
		{ApproachType: model.ApproachCost, ComparisonKey: "utilities", Label: "Utilities", Order: 6},
		{ApproachType: model.ApproachCost, ComparisonKey: "frontage", Label: "Frontage / Access", Order: 7},
	}

	for _, def := range defaults {
		var row model.ComparisonAttributeDefinition
		err := db.Where(model.ComparisonAttributeDefinition{
			ApproachType:  def.ApproachType,
			ComparisonKey: def.ComparisonKey,
		}).Attrs(def).FirstOrCreate(&row).Error
		if err != nil {
			return err
		}
	}
	log.Println("Comparison attribute catalog seeded")
	return nil
}
