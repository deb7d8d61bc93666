// Package cli holds the portalctl operator commands.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/database"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/logger"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

// env is what every database command needs
type env struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.Logger
}

func openEnv() (*env, error) {
	cfg := config.FromEnv()
	logger.InitLogger(cfg)
	log := logger.GetLogger()

	db, err := database.Open(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &env{cfg: cfg, db: db, log: log}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}
