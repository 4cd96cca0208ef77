package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/config"
	"bili-downloader/app/database"
	"bili-downloader/app/logger"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

func testConfig(base string) *config.Config {
	return &config.Config{
		Bilibili: config.BilibiliConfig{
			UserAgent:       "test-agent",
			WebBase:         base,
			APIBase:         base,
			Timeout:         5 * time.Second,
			RequestInterval: time.Millisecond,
			TierCacheTTL:    time.Minute,
		},
		Download: config.DownloadConfig{
			Path:          "/data/downloads",
			IsFolder:      true,
			MaxConcurrent: 2,
		},
	}
}

func newTestDB(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	if err := database.InitSettings(db, cfg, logger.NewNop()); err != nil {
		t.Fatalf("InitSettings() error = %v", err)
	}
	return db
}

func newTask(id string, status bilibili.TaskStatus) bilibili.DownloadTask {
	task := bilibili.DownloadTask{
		TaskID:    id,
		Quality:   64,
		CreatedAt: time.Now(),
		Status:    status,
	}
	task.Title = "标题-" + id
	task.Bvid = "BV1" + id
	task.Cid = 100
	return task
}
