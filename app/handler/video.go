package handler

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/logger"
	"bili-downloader/app/middleware"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// 解析结果缓存时间，下载时优先复用，避免重复抓取页面
const (
	metadataCacheTTL     = 10 * time.Minute
	metadataCacheCleanup = 20 * time.Minute
)

// videoService 由 service.ResolveService 实现
type videoService interface {
	CheckLogin(ctx context.Context) (bilibili.Tier, error)
	Resolve(ctx context.Context, rawURL string) (*bilibili.VideoMetadata, error)
	Plan(ctx context.Context, meta *bilibili.VideoMetadata, pages []int, quality int) ([]bilibili.DownloadTask, error)
	Enqueue(ctx context.Context, tasks []bilibili.DownloadTask) ([]bilibili.DownloadTask, error)
	SaveCovers(ctx context.Context, tasks []bilibili.DownloadTask)
}

// VideoHandler 视频解析与下载处理器
type VideoHandler struct {
	service videoService
	cache   *cache.Cache
	logger  *logger.Logger
}

// NewVideoHandler 创建视频处理器
func NewVideoHandler(svc videoService, log *logger.Logger) *VideoHandler {
	return &VideoHandler{
		service: svc,
		cache:   cache.New(metadataCacheTTL, metadataCacheCleanup),
		logger:  log,
	}
}

// ParseRequest 解析请求
type ParseRequest struct {
	URL string `json:"url" binding:"required"`
}

// DownloadRequest 下载请求
type DownloadRequest struct {
	URL     string `json:"url" binding:"required"`
	Pages   []int  `json:"pages" binding:"required,min=1"`
	Quality int    `json:"quality" binding:"required"`
	Cover   bool   `json:"cover"`
}

// DownloadResponse 下载响应，planned 为生成的任务数，tasks 为被接收的任务
type DownloadResponse struct {
	Planned int                     `json:"planned"`
	Tasks   []bilibili.DownloadTask `json:"tasks"`
}

// LoginStatus 当前凭证的登录状态
func (h *VideoHandler) LoginStatus(c *gin.Context) {
	tier, err := h.service.CheckLogin(c.Request.Context())
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, gin.H{
		"tier":      int(tier),
		"label":     tier.String(),
		"logged_in": tier != bilibili.TierGuest,
	}, "success")
}

// Parse 解析视频链接
func (h *VideoHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	meta, err := h.metadata(c.Request.Context(), req.URL)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, meta, "解析成功")
}

// Download 为选中的分P生成下载任务并加入队列
func (h *VideoHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	meta, err := h.metadata(ctx, req.URL)
	if err != nil {
		failWithError(c, err)
		return
	}

	tasks, err := h.service.Plan(ctx, meta, req.Pages, req.Quality)
	if err != nil {
		failWithError(c, err)
		return
	}
	admitted, err := h.service.Enqueue(ctx, tasks)
	if err != nil {
		failWithError(c, err)
		return
	}
	if req.Cover {
		h.service.SaveCovers(ctx, admitted)
	}

	middleware.Logger(c, h.logger).Info("下载任务已提交", zap.String("url", meta.URL), zap.Int("planned", len(tasks)), zap.Int("admitted", len(admitted)))
	success(c, DownloadResponse{Planned: len(tasks), Tasks: admitted}, "提交成功")
}

// ForgetCredential 登录凭证变更后清空解析缓存，缓存中的清晰度和取流地址随凭证等级而定
func (h *VideoHandler) ForgetCredential(old string) {
	n := h.cache.ItemCount()
	h.cache.Flush()
	h.logger.Info("登录凭证已变更，清空解析缓存", zap.Int("items", n))
}

// metadata 优先读取缓存，解析成功后同时按请求地址和最终地址缓存
func (h *VideoHandler) metadata(ctx context.Context, rawURL string) (*bilibili.VideoMetadata, error) {
	key := strings.TrimSpace(rawURL)
	if cached, ok := h.cache.Get(key); ok {
		h.logger.Debugf("命中解析缓存: %s", key)
		return cached.(*bilibili.VideoMetadata), nil
	}

	meta, err := h.service.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	h.cache.SetDefault(key, meta)
	if meta.URL != key {
		h.cache.SetDefault(meta.URL, meta)
	}
	return meta, nil
}
