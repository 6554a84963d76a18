package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phResumeRender/internal/config"
)

const slowQueryThreshold = 500 * time.Millisecond

// Open 连接 PostgreSQL 并返回 GORM 实例。SQL 日志经 slog 输出，只记录慢查询与错误。
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	// 导出任务只做单行读写，连接池保持较小
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func newGormLogger(log *slog.Logger) logger.Interface {
	if log == nil {
		log = slog.Default()
	}
	writer := slog.NewLogLogger(log.With(slog.String("component", "gorm")).Handler(), slog.LevelWarn)
	return logger.New(writer, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate 同步导出任务表结构。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ExportJob{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
