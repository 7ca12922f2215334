package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
	"appraisal_backend/internal/valuation"
	"appraisal_backend/pkg/database"
)

type ScenarioInput struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`

	HasIncomeApproach bool `json:"has_income_approach"`
	HasSalesApproach  bool `json:"has_sales_approach"`
	HasCostApproach   bool `json:"has_cost_approach"`

	Rounding int `json:"rounding"`
}

type EvaluationInput struct {
	BusinessName string `json:"business_name"`

	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	County        string `json:"county"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`

	BuildingSize  float64             `json:"building_size"`
	LandSize      float64             `json:"land_size"`
	LandDimension model.LandDimension `json:"land_dimension"`

	ComparisonBasis    model.ComparisonBasis `json:"comparison_basis"`
	CompAdjustmentMode model.AdjustmentMode  `json:"comp_adjustment_mode"`

	MapSelectedArea datatypes.JSON `json:"map_selected_area"`

	Zonings   []valuation.ZoningInput `json:"zonings"`
	Scenarios []ScenarioInput         `json:"scenarios"`
}

// CreateEvaluation creates the subject property with its zonings and
// scenarios, then activates each scenario's approaches.
func CreateEvaluation(c *fiber.Ctx) error {
	input := new(EvaluationInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	db := database.GetDB()
	ev := model.Evaluation{
		BusinessName:       input.BusinessName,
		StreetAddress:      input.StreetAddress,
		City:               input.City,
		County:             input.County,
		State:              input.State,
		Zipcode:            input.Zipcode,
		BuildingSize:       input.BuildingSize,
		LandSize:           input.LandSize,
		LandDimension:      input.LandDimension,
		ComparisonBasis:    input.ComparisonBasis,
		CompAdjustmentMode: input.CompAdjustmentMode,
		MapSelectedArea:    input.MapSelectedArea,
	}
	for _, z := range input.Zonings {
		ev.Zonings = append(ev.Zonings, model.Zoning{
			Zone:      z.Zone,
			SubZone:   z.SubZone,
			TotalSqFt: z.TotalSqFt,
			WeightSF:  z.WeightSF,
			Bed:       z.Bed,
			Unit:      z.Unit,
		})
	}
	if err := db.Create(&ev).Error; err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	for _, s := range input.Scenarios {
		sc := model.Scenario{
			EvaluationID: ev.ID,
			Name:         s.Name,
			Rounding:     s.Rounding,
		}
		if err := db.Create(&sc).Error; err != nil {
			return respondError(c, err)
		}
		if _, err := engine.ApplyScenarioApproaches(ctx, sc.ID, s.HasIncomeApproach, s.HasSalesApproach, s.HasCostApproach); err != nil {
			return respondError(c, err)
		}
	}

	loaded, err := loadEvaluation(ev.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(loaded)
}

// UpdateEvaluation updates the subject's fields, reconciles its zoning
// breakdown and upserts the submitted scenarios with their approach flags.
func UpdateEvaluation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	input := new(EvaluationInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	db := database.GetDB()
	var ev model.Evaluation
	if err := db.First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, valuation.ErrNotFound)
		}
		return respondError(c, err)
	}

	ev.BusinessName = input.BusinessName
	ev.StreetAddress = input.StreetAddress
	ev.City = input.City
	ev.County = input.County
	ev.State = input.State
	ev.Zipcode = input.Zipcode
	ev.BuildingSize = input.BuildingSize
	ev.LandSize = input.LandSize
	ev.LandDimension = input.LandDimension
	ev.ComparisonBasis = input.ComparisonBasis
	ev.CompAdjustmentMode = input.CompAdjustmentMode
	ev.MapSelectedArea = input.MapSelectedArea
	if err := db.Save(&ev).Error; err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()
	for _, s := range input.Scenarios {
		if s.ID == 0 {
			sc := model.Scenario{
				EvaluationID: ev.ID,
				Name:         s.Name,
				Rounding:     s.Rounding,
			}
			if err := db.Create(&sc).Error; err != nil {
				return respondError(c, err)
			}
			s.ID = sc.ID
		} else {
			if err := db.Model(&model.Scenario{}).
				Where("id = ? AND evaluation_id = ?", s.ID, ev.ID).
				Updates(map[string]interface{}{"name": s.Name, "rounding": s.Rounding}).Error; err != nil {
				return respondError(c, err)
			}
		}
		if _, err := engine.ApplyScenarioApproaches(ctx, s.ID, s.HasIncomeApproach, s.HasSalesApproach, s.HasCostApproach); err != nil {
			return respondError(c, err)
		}
	}

	// Zonings last: the sync re-runs every scenario's pipeline, which
	// needs the approach rows from the flag changes above in place.
	if err := engine.SyncZonings(ctx, ev.ID, input.Zonings); err != nil {
		return respondError(c, err)
	}

	loaded, err := loadEvaluation(ev.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loaded)
}

// GetEvaluation returns the subject with zonings, scenarios and the
// scenarios' approach records.
func GetEvaluation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	loaded, err := loadEvaluation(uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loaded)
}

// DeleteEvaluation removes the subject and everything under it.
func DeleteEvaluation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}

	db := database.GetDB()
	var ev model.Evaluation
	if err := db.First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, valuation.ErrNotFound)
		}
		return respondError(c, err)
	}

	ctx := c.UserContext()
	var scenarios []model.Scenario
	if err := db.Where("evaluation_id = ?", ev.ID).Find(&scenarios).Error; err != nil {
		return respondError(c, err)
	}
	for _, sc := range scenarios {
		if _, err := engine.ApplyScenarioApproaches(ctx, sc.ID, false, false, false); err != nil {
			return respondError(c, err)
		}
		if err := db.Delete(&model.Scenario{}, sc.ID).Error; err != nil {
			return respondError(c, err)
		}
	}
	if err := db.Where("evaluation_id = ?", ev.ID).Delete(&model.Zoning{}).Error; err != nil {
		return respondError(c, err)
	}
	if err := db.Delete(&model.Evaluation{}, ev.ID).Error; err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Evaluation deleted"})
}

// GetReview returns every scenario's weighted market value with the
// per-approach indicated and incremental values.
func GetReview(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation id",
		})
	}
	summaries, err := engine.ReviewSummaries(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"scenarios": summaries})
}

func loadEvaluation(id uint) (*model.Evaluation, error) {
	db := database.GetDB()
	var ev model.Evaluation
	err := db.
		Preload("Zonings", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Scenarios", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Scenarios.IncomeApproach").
		Preload("Scenarios.SalesApproach").
		Preload("Scenarios.CostApproach").
		First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, valuation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
