// Package database 负责初始化关系数据库与 Redis 连接。
package database

import (
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据驱动名打开一个 gorm 连接并配置连接池。
// driver 支持 mysql 与 sqlite（本地单文件模式及测试使用）。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// sqlite 只允许单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Infof("[Database] %s database connected successfully", dialector.Name())
	return db, nil
}

// Migrate 创建 Users 与 ConversationHistory 表（已存在则补齐缺失列）。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.ConversationTurn{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	log.Info("[Database] tables migrated")
	return nil
}
