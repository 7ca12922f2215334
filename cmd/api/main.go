package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"appraisal_backend/internal/controller"
	"appraisal_backend/internal/model"
	"appraisal_backend/internal/valuation"
	"appraisal_backend/pkg/config"
	appcron "appraisal_backend/pkg/cron"
	"appraisal_backend/pkg/database"
	"appraisal_backend/pkg/logger"
	"appraisal_backend/pkg/seed"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	evaluations := api.Group("/evaluations")
	evaluations.Post("/", controller.CreateEvaluation)
	evaluations.Get("/:id", controller.GetEvaluation)
	evaluations.Put("/:id", controller.UpdateEvaluation)
	evaluations.Delete("/:id", controller.DeleteEvaluation)
	evaluations.Get("/:id/review", controller.GetReview)

	evaluations.Post("/:id/income-approach", controller.SaveIncomeApproach)
	evaluations.Get("/:id/income-approach", controller.GetIncomeApproach)

	evaluations.Post("/:id/sales-approach", controller.SaveSalesApproach)
	evaluations.Get("/:id/sales-approach", controller.GetSalesApproach)

	evaluations.Post("/:id/cost-approach", controller.SaveCostApproach)
	evaluations.Post("/:id/cost-approach/improvements", controller.SaveCostImprovements)
	evaluations.Get("/:id/cost-approach", controller.GetCostApproach)

	evaluations.Put("/:id/approach-weight", controller.SetApproachWeight)

	api.Get("/comparison-attributes", controller.ListComparisonAttributes)
}

func main() {
	zlog, err := logger.Init()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	cfg := config.Load()
	database.InitDB(cfg.Database.URL)
	db := database.GetDB()

	if err := database.MigrateDatabase(
		&model.Evaluation{},
		&model.Zoning{},
		&model.Scenario{},
		&model.IncomeApproach{},
		&model.IncomeSource{},
		&model.OtherIncomeSource{},
		&model.OperatingExpense{},
		&model.SalesApproach{},
		&model.SalesComp{},
		&model.SalesCompAdjustment{},
		&model.SalesCompQualitativeAdjustment{},
		&model.SalesCompAmenity{},
		&model.SalesSubjectAdjustment{},
		&model.SalesQualitativeAdjustment{},
		&model.SalesComparisonAttribute{},
		&model.CostApproach{},
		&model.CostComp{},
		&model.CostCompAdjustment{},
		&model.CostSubjectAdjustment{},
		&model.CostComparisonAttribute{},
		&model.CostImprovement{},
		&model.ComparisonAttributeDefinition{},
	); err != nil {
		zlog.Fatal("Database migration failed", zap.Error(err))
	}

	if err := seed.ComparisonAttributes(db); err != nil {
		zlog.Fatal("Catalog seeding failed", zap.Error(err))
	}

	engine := valuation.NewEngine(db, zlog)
	controller.Init(engine)

	if _, err := appcron.StartRevaluationSweep(db, engine, cfg.Cron.RevaluationSpec, zlog); err != nil {
		zlog.Fatal("Cron setup failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New())

	setupRoutes(app)

	zlog.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("Server failed", zap.Error(err))
	}
}
