package valuation

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"appraisal_backend/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	// A fresh connection would see a fresh in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
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
	))

	return NewEngine(db, zap.NewNop())
}

func createSubject(t *testing.T, e *Engine, ev model.Evaluation) *model.Evaluation {
	t.Helper()
	if ev.LandDimension == "" {
		ev.LandDimension = model.LandDimensionSF
	}
	if ev.CompAdjustmentMode == "" {
		ev.CompAdjustmentMode = model.AdjustmentModePercent
	}
	require.NoError(t, e.db.Create(&ev).Error)
	return &ev
}

func createScenario(t *testing.T, e *Engine, evaluationID uint) *model.Scenario {
	t.Helper()
	sc := model.Scenario{EvaluationID: evaluationID, Name: "As Is"}
	require.NoError(t, e.db.Create(&sc).Error)
	return &sc
}
