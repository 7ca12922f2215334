package controller

import (
	"github.com/gofiber/fiber/v2"

	"appraisal_backend/internal/valuation"
)

// SaveIncomeApproach handles the income save-approach request: scalar
// update, child-collection sync, recompute, aggregation.
func SaveIncomeApproach(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	input := new(valuation.IncomeSaveInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	input.EvaluationID = uint(id)

	approach, err := engine.SaveIncomeApproach(c.UserContext(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// GetIncomeApproach returns a scenario's income approach with children.
func GetIncomeApproach(c *fiber.Ctx) error {
	scenarioID := c.QueryInt("scenario_id")
	if scenarioID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scenario_id is required",
		})
	}
	approach, err := engine.GetIncomeApproach(c.UserContext(), uint(scenarioID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// SaveSalesApproach handles the sales save-approach request, including
// the comp roster with its nested collections.
func SaveSalesApproach(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	input := new(valuation.SalesSaveInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	input.EvaluationID = uint(id)

	approach, err := engine.SaveSalesApproach(c.UserContext(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// GetSalesApproach returns a scenario's sales approach with children.
func GetSalesApproach(c *fiber.Ctx) error {
	scenarioID := c.QueryInt("scenario_id")
	if scenarioID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scenario_id is required",
		})
	}
	approach, err := engine.GetSalesApproach(c.UserContext(), uint(scenarioID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// SaveCostApproach handles the cost save-approach request.
func SaveCostApproach(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	input := new(valuation.CostSaveInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	input.EvaluationID = uint(id)

	approach, err := engine.SaveCostApproach(c.UserContext(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// SaveCostImprovements replaces the cost approach's improvements and
// recomputes the cost valuation.
func SaveCostImprovements(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	input := new(valuation.ImprovementsSaveInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	input.EvaluationID = uint(id)

	approach, err := engine.SaveCostImprovements(c.UserContext(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// GetCostApproach returns a scenario's cost approach with children.
func GetCostApproach(c *fiber.Ctx) error {
	scenarioID := c.QueryInt("scenario_id")
	if scenarioID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scenario_id is required",
		})
	}
	approach, err := engine.GetCostApproach(c.UserContext(), uint(scenarioID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(approach)
}

// SetApproachWeight changes one approach's weight and re-aggregates the
// scenario's weighted market value.
func SetApproachWeight(c *fiber.Ctx) error {
	input := new(valuation.WeightInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if err := engine.SetApproachWeight(c.UserContext(), *input); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Weight updated"})
}
