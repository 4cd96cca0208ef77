package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/logger"
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// LoginCheckTimeout 单次登录状态检查的超时时间
const LoginCheckTimeout = 30 * time.Second

// loginChecker 由 ResolveService 实现
type loginChecker interface {
	CheckLogin(ctx context.Context) (bilibili.Tier, error)
}

// LoginMonitor 定时检查登录凭证是否仍然有效，同时预热用户等级缓存
type LoginMonitor struct {
	checker  loginChecker
	settings *SettingsService
	spec     string
	logger   *logger.Logger

	cron     *cron.Cron
	wg       sync.WaitGroup
	mu       sync.Mutex
	lastTier *bilibili.Tier
}

// NewLoginMonitor 创建登录状态巡检服务，spec 为 cron 表达式
func NewLoginMonitor(checker loginChecker, settings *SettingsService, spec string, log *logger.Logger) *LoginMonitor {
	return &LoginMonitor{
		checker:  checker,
		settings: settings,
		spec:     spec,
		logger:   log,
	}
}

// Start 启动巡检，spec 为空时不启用
func (m *LoginMonitor) Start() error {
	if m.spec == "" {
		m.logger.Info("未配置登录状态巡检")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.spec, m.check); err != nil {
		return err
	}
	m.cron = c
	c.Start()

	// 启动时立即执行一次检查
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.check()
	}()

	m.logger.Infof("登录状态巡检已启动: %s", m.spec)
	return nil
}

// Stop 停止巡检，等待正在执行的检查结束
func (m *LoginMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.wg.Wait()
	m.logger.Info("登录状态巡检已停止")
}

// check 检查登录状态，等级变化或凭证失效时记录日志
func (m *LoginMonitor) check() {
	if !m.settings.Session().LoggedIn() {
		m.logger.Debug("未设置登录凭证，跳过检查")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), LoginCheckTimeout)
	defer cancel()

	tier, err := m.checker.CheckLogin(ctx)
	if err != nil {
		m.logger.Errorf("登录状态检查失败: %v", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tier == bilibili.TierGuest {
		m.logger.Warn("登录凭证已失效，请重新设置 SESSDATA")
	} else if m.lastTier == nil || *m.lastTier != tier {
		m.logger.Infof("当前登录身份: %s", tier)
	}
	m.lastTier = &tier
}

// LastTier 最近一次检查得到的用户等级
func (m *LoginMonitor) LastTier() (bilibili.Tier, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastTier == nil {
		return bilibili.TierGuest, false
	}
	return *m.lastTier, true
}
