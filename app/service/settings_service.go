package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/logger"
	"bili-downloader/app/model"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// ErrUnknownSetting 不允许修改的配置键
var ErrUnknownSetting = errors.New("未知的配置项")

// editableKeys 可以通过接口修改的配置
var editableKeys = map[string]bool{
	model.KeyDownloadPath:  true,
	model.KeyIsFolder:      true,
	model.KeyMaxConcurrent: true,
	model.KeySESSDATA:      true,
}

// Settings 对外展示的下载设置
type Settings struct {
	DownloadPath  string `json:"download_path"`
	IsFolder      bool   `json:"is_folder"`
	MaxConcurrent int    `json:"max_concurrent"`
	HasSESSDATA   bool   `json:"has_sessdata"`
}

// SettingsService 基于 system_configs 表的设置存储
type SettingsService struct {
	db     *gorm.DB
	logger *logger.Logger

	mu                 sync.Mutex
	credentialHandlers []func(old string)
}

// NewSettingsService 创建设置服务
func NewSettingsService(db *gorm.DB, log *logger.Logger) *SettingsService {
	return &SettingsService{db: db, logger: log}
}

// OnCredentialChange 登录凭证变更时回调，参数为旧凭证
func (s *SettingsService) OnCredentialChange(fn func(old string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentialHandlers = append(s.credentialHandlers, fn)
}

// Get 读取配置值，不存在时返回空字符串
func (s *SettingsService) Get(key string) (string, error) {
	var item model.SystemConfig
	err := s.db.Where("config_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return item.ConfigValue, nil
}

// Set 写入配置值，仅允许修改可编辑的配置
func (s *SettingsService) Set(key, value string) error {
	if !editableKeys[key] {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	value = strings.TrimSpace(value)
	if err := validateSetting(key, value); err != nil {
		return err
	}

	if key != model.KeySESSDATA {
		return s.put(key, value)
	}

	old, err := s.Get(model.KeySESSDATA)
	if err != nil {
		return err
	}
	if old == value {
		return nil
	}
	// 更换凭证后旧的刷新 cookie 不再有效
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := putTx(tx, model.KeySESSDATA, value); err != nil {
			return err
		}
		return putTx(tx, model.KeyRefreshCookie, "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("登录凭证已更新")

	s.mu.Lock()
	handlers := append([]func(string){}, s.credentialHandlers...)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(old)
	}
	return nil
}

// SetMany 先校验全部配置再依次写入，任何一项不合法时都不修改
func (s *SettingsService) SetMany(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for key, value := range values {
		if !editableKeys[key] {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
		if err := validateSetting(key, strings.TrimSpace(value)); err != nil {
			return err
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if err := s.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettingsService) put(key, value string) error {
	return putTx(s.db, key, value)
}

func putTx(tx *gorm.DB, key, value string) error {
	return tx.Where(model.SystemConfig{ConfigKey: key}).
		Assign(map[string]any{"config_value": value}).
		FirstOrCreate(&model.SystemConfig{}).Error
}

func validateSetting(key, value string) error {
	switch key {
	case model.KeyDownloadPath:
		if value == "" {
			return errors.New("下载目录不能为空")
		}
	case model.KeyIsFolder:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("is_folder 必须是布尔值: %w", err)
		}
	case model.KeyMaxConcurrent:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return errors.New("max_concurrent 必须是正整数")
		}
	}
	return nil
}

// SaveRefreshCookie 保存接口下发的刷新 cookie
func (s *SettingsService) SaveRefreshCookie(refresh string) error {
	s.logger.Debugf("保存刷新 cookie: %s", refresh)
	return s.put(model.KeyRefreshCookie, refresh)
}

// Session 当前登录态
func (s *SettingsService) Session() bilibili.Session {
	sessdata, err := s.Get(model.KeySESSDATA)
	if err != nil {
		s.logger.Warnf("读取登录凭证失败: %v", err)
	}
	refresh, err := s.Get(model.KeyRefreshCookie)
	if err != nil {
		s.logger.Warnf("读取刷新 cookie 失败: %v", err)
	}
	return bilibili.Session{SESSDATA: sessdata, Refresh: refresh}
}

// Snapshot 读取全部下载设置
func (s *SettingsService) Snapshot() (*Settings, error) {
	var items []model.SystemConfig
	if err := s.db.Where("config_key IN ?", []string{
		model.KeyDownloadPath, model.KeyIsFolder, model.KeyMaxConcurrent, model.KeySESSDATA,
	}).Find(&items).Error; err != nil {
		return nil, err
	}

	settings := &Settings{}
	for _, item := range items {
		switch item.ConfigKey {
		case model.KeyDownloadPath:
			settings.DownloadPath = item.ConfigValue
		case model.KeyIsFolder:
			settings.IsFolder, _ = strconv.ParseBool(item.ConfigValue)
		case model.KeyMaxConcurrent:
			settings.MaxConcurrent, _ = strconv.Atoi(item.ConfigValue)
		case model.KeySESSDATA:
			settings.HasSESSDATA = strings.TrimSpace(item.ConfigValue) != ""
		}
	}
	return settings, nil
}

// PlanOptions 生成任务时使用的路径设置
func (s *SettingsService) PlanOptions() (bilibili.PlanOptions, error) {
	settings, err := s.Snapshot()
	if err != nil {
		return bilibili.PlanOptions{}, err
	}
	return bilibili.PlanOptions{
		DownloadPath:   settings.DownloadPath,
		PerVideoFolder: settings.IsFolder,
	}, nil
}

// MaxConcurrent 最大同时下载数
func (s *SettingsService) MaxConcurrent() (int, error) {
	settings, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	return settings.MaxConcurrent, nil
}
