package controller

import (
	"github.com/gofiber/fiber/v2"

	"appraisal_backend/internal/model"
	"appraisal_backend/pkg/database"
)

// ListComparisonAttributes returns the catalog of comparison-grid
// attributes, optionally filtered by approach type.
func ListComparisonAttributes(c *fiber.Ctx) error {
	db := database.GetDB()

	query := db.Model(&model.ComparisonAttributeDefinition{}).Order("approach_type ASC, \"order\" ASC")
	if t := c.Query("approach_type"); t != "" {
		query = query.Where("approach_type = ?", t)
	}

	var definitions []model.ComparisonAttributeDefinition
	if err := query.Find(&definitions).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comparison_attributes": definitions})
}
