package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/config"
	"bili-downloader/app/logger"
	"bili-downloader/app/utils/downloader"
	"context"
	"strings"

	"go.uber.org/zap"
)

// shortLinkHosts 需要先跟随跳转才能判断类型的短链接
var shortLinkHosts = []string{"b23.tv/", "bili2233.cn/"}

// ResolveService 串联链接解析、任务生成和入队
type ResolveService struct {
	client    *bilibili.Client
	perms     *bilibili.PermissionResolver
	extractor *bilibili.Extractor
	planner   *bilibili.Planner
	covers    *downloader.CoverSaver
	settings  *SettingsService
	queue     *DownloadQueueService
	logger    *logger.Logger
}

// NewResolveService 创建解析服务
func NewResolveService(cfg *config.Config, settings *SettingsService, queue *DownloadQueueService, log *logger.Logger) (*ResolveService, error) {
	client := bilibili.NewClient(bilibili.ClientOptions{
		WebBase:   cfg.Bilibili.WebBase,
		APIBase:   cfg.Bilibili.APIBase,
		UserAgent: cfg.Bilibili.UserAgent,
		Timeout:   cfg.Bilibili.Timeout,
	})

	bililog := log.With(zap.String("module", "bilibili"))
	perms := bilibili.NewPermissionResolver(client, cfg.Bilibili.TierCacheTTL, bililog)
	streams := bilibili.NewStreamResolver(client, perms, settings, bililog)
	planner, err := bilibili.NewPlanner(streams, cfg.Bilibili.RequestInterval, bililog)
	if err != nil {
		client.Close()
		return nil, err
	}

	settings.OnCredentialChange(perms.Forget)

	return &ResolveService{
		client:    client,
		perms:     perms,
		extractor: bilibili.NewExtractor(client, perms, streams, bililog),
		planner:   planner,
		covers:    downloader.NewCoverSaver(client, nil),
		settings:  settings,
		queue:     queue,
		logger:    log,
	}, nil
}

// Close 释放连接
func (s *ResolveService) Close() error {
	return s.client.Close()
}

// CheckLogin 检查当前凭证的登录状态，探测失败时返回错误
func (s *ResolveService) CheckLogin(ctx context.Context) (bilibili.Tier, error) {
	return s.perms.ResolveTier(ctx, s.settings.Session())
}

// Resolve 解析链接得到视频元数据
func (s *ResolveService) Resolve(ctx context.Context, rawURL string) (*bilibili.VideoMetadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	sess := s.settings.Session()

	kind, ok := bilibili.Classify(rawURL)
	if !ok && !isShortLink(rawURL) {
		s.logger.Warnf("不支持的链接: %s", rawURL)
		return nil, bilibili.NewUnsupportedURLError(rawURL)
	}

	page, err := s.client.FetchPage(ctx, sess, rawURL)
	if err != nil {
		return nil, err
	}
	if page.URL != rawURL {
		s.logger.Infof("链接跳转: %s -> %s", rawURL, page.URL)
	}

	// 以跳转后的地址为准
	if finalKind, ok := bilibili.Classify(page.URL); ok {
		kind = finalKind
	} else if kind == "" {
		return nil, bilibili.NewUnsupportedURLError(page.URL)
	}

	meta, _, err := s.extractor.Extract(ctx, sess, kind, page.Body, page.URL)
	if err != nil {
		s.logger.Errorf("解析视频失败: %s, %v", page.URL, err)
		return nil, err
	}
	return meta, nil
}

// Plan 为选中的分P生成下载任务
func (s *ResolveService) Plan(ctx context.Context, meta *bilibili.VideoMetadata, pages []int, quality int) ([]bilibili.DownloadTask, error) {
	opts, err := s.settings.PlanOptions()
	if err != nil {
		return nil, err
	}
	tasks, _, err := s.planner.Plan(ctx, s.settings.Session(), meta, pages, quality, opts)
	return tasks, err
}

// Enqueue 按剩余并发数接收任务并持久化
func (s *ResolveService) Enqueue(ctx context.Context, tasks []bilibili.DownloadTask) ([]bilibili.DownloadTask, error) {
	maxConcurrent, err := s.settings.MaxConcurrent()
	if err != nil {
		return nil, err
	}
	running, err := s.queue.RunningCount()
	if err != nil {
		return nil, err
	}

	capacity := maxConcurrent - running
	admitted := bilibili.Admit(tasks, capacity)
	if len(admitted) == 0 && len(tasks) > 0 {
		s.logger.Warnf("下载数已超过上限，未接收任务: 上限 %d, 下载中 %d", maxConcurrent, running)
		return admitted, nil
	}

	if err := s.queue.Save(admitted); err != nil {
		return nil, err
	}
	s.logger.Infof("接收下载任务 %d 个，剩余并发数 %d", len(admitted), capacity)
	return admitted, nil
}

// SaveCovers 保存任务封面缩略图，单个失败只记录日志
func (s *ResolveService) SaveCovers(ctx context.Context, tasks []bilibili.DownloadTask) {
	for _, task := range tasks {
		if len(task.FilePathList) <= bilibili.PathCover {
			continue
		}
		label := task.Bvid
		if label == "" {
			label = task.Title
		}
		if err := s.covers.Save(ctx, task.Cover, task.FilePathList[bilibili.PathCover], label); err != nil {
			s.logger.Warnf("保存封面失败: %s, %v", task.TaskID, err)
		}
	}
}

func isShortLink(rawURL string) bool {
	for _, host := range shortLinkHosts {
		if strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}
