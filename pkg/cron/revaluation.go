package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"appraisal_backend/internal/model"
	"appraisal_backend/internal/valuation"
)

// StartRevaluationSweep schedules a periodic pass that re-runs the
// recompute pipeline for scenarios touched in the last day. Collection
// writes are best-effort, so a partially failed save can leave derived
// fields behind their inputs; the sweep converges them.
func StartRevaluationSweep(db *gorm.DB, engine *valuation.Engine, spec string, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		sweep(db, engine, log)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Info("revaluation sweep scheduled", zap.String("spec", spec))
	return c, nil
}

func sweep(db *gorm.DB, engine *valuation.Engine, log *zap.Logger) {
	cutoff := time.Now().Add(-24 * time.Hour)

	var scenarios []model.Scenario
	if err := db.Where("updated_at > ?", cutoff).Find(&scenarios).Error; err != nil {
		log.Error("revaluation sweep query failed", zap.Error(err))
		return
	}

	ctx := context.Background()
	failed := 0
	for _, sc := range scenarios {
		if err := engine.Revalue(ctx, sc.ID); err != nil {
			failed++
			log.Error("revaluation failed",
				zap.Uint("scenario_id", sc.ID), zap.Error(err))
		}
	}
	log.Info("revaluation sweep complete",
		zap.Int("scenarios", len(scenarios)), zap.Int("failed", failed))
}
