package model

import "gorm.io/gorm"

// ComparisonAttributeDefinition is one entry of the built-in catalog of
// comparison-grid attributes offered when an approach is assembled.
// Seeded at startup, read-only afterwards.
type ComparisonAttributeDefinition struct {
	gorm.Model
	ApproachType  ApproachType `json:"approach_type" gorm:"uniqueIndex:idx_catalog_key;not null"`
	ComparisonKey string       `json:"comparison_key" gorm:"uniqueIndex:idx_catalog_key;not null"`
	Label         string       `json:"label"`
	Order         int          `json:"order"`
}
