package database

import (
	"bili-downloader/app/config"
	"bili-downloader/app/logger"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 全局数据库实例
var DB *gorm.DB

// Init 初始化数据库连接，服务模式下同时初始化管理员账户
func Init(cfg *config.Config, log *logger.Logger) error {
	if err := InitStore(cfg, log); err != nil {
		return err
	}

	// 初始化管理员账户
	if err := InitAdminUser(DB, cfg, log); err != nil {
		log.Errorf("初始化管理员账户失败: %v", err)
		return err
	}
	return nil
}

// InitStore 连接数据库、迁移表结构并写入默认下载设置，命令行工具只需要这一步
func InitStore(cfg *config.Config, log *logger.Logger) error {
	db, err := Open(cfg.Database.Path)
	if err != nil {
		log.Errorf("连接数据库失败: %v", err)
		return err
	}

	DB = db
	log.Debugf("数据库连接成功: %s", cfg.Database.Path)

	// 自动迁移表结构
	if err := AutoMigrate(db); err != nil {
		log.Errorf("数据库迁移失败: %v", err)
		return err
	}

	// 写入默认下载设置
	if err := InitSettings(db, cfg, log); err != nil {
		log.Errorf("初始化下载设置失败: %v", err)
		return err
	}

	return nil
}

// Open 打开 sqlite 数据库，目录不存在时自动创建
func Open(dbPath string) (*gorm.DB, error) {
	if err := ensureDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}
	return gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// Close 关闭数据库连接
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return DB
}

// ensureDir 确保目录存在
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
