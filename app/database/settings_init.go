package database

import (
	"bili-downloader/app/config"
	"bili-downloader/app/logger"
	"bili-downloader/app/model"
	"strconv"

	"gorm.io/gorm"
)

// InitSettings 首次启动时写入默认下载设置，已存在的配置不覆盖
func InitSettings(db *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	defaults := []model.SystemConfig{
		{
			ConfigKey:   model.KeyDownloadPath,
			ConfigValue: cfg.Download.Path,
			ConfigType:  model.TypeString,
			Category:    model.CategoryDownload,
			Description: "下载目录",
			SortOrder:   1,
		},
		{
			ConfigKey:   model.KeyIsFolder,
			ConfigValue: strconv.FormatBool(cfg.Download.IsFolder),
			ConfigType:  model.TypeBool,
			Category:    model.CategoryDownload,
			Description: "每个任务单独建文件夹",
			SortOrder:   2,
		},
		{
			ConfigKey:   model.KeyMaxConcurrent,
			ConfigValue: strconv.Itoa(cfg.Download.MaxConcurrent),
			ConfigType:  model.TypeInt,
			Category:    model.CategoryDownload,
			Description: "最大同时下载数",
			SortOrder:   3,
		},
		{
			ConfigKey:   model.KeySESSDATA,
			ConfigValue: cfg.Download.SESSDATA,
			ConfigType:  model.TypeString,
			Category:    model.CategoryBilibili,
			Description: "登录凭证 SESSDATA",
			SortOrder:   4,
		},
		{
			ConfigKey:   model.KeyRefreshCookie,
			ConfigType:  model.TypeString,
			Category:    model.CategoryBilibili,
			Description: "接口下发的刷新 cookie",
			IsSystem:    true,
			SortOrder:   5,
		},
	}

	created := 0
	for _, item := range defaults {
		result := db.Where(model.SystemConfig{ConfigKey: item.ConfigKey}).Attrs(item).FirstOrCreate(&model.SystemConfig{})
		if result.Error != nil {
			return result.Error
		}
		created += int(result.RowsAffected)
	}
	if created > 0 {
		log.Infof("写入 %d 项默认设置", created)
	}
	return nil
}
