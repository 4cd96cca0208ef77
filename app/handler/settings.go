package handler

import (
	"bili-downloader/app/model"
	"bili-downloader/app/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SettingsHandler 下载设置处理器
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler 创建下载设置处理器
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// UpdateSettingsRequest 只修改传入的字段
type UpdateSettingsRequest struct {
	DownloadPath  *string `json:"download_path"`
	IsFolder      *bool   `json:"is_folder"`
	MaxConcurrent *int    `json:"max_concurrent"`
	SESSDATA      *string `json:"sessdata"`
}

func (r UpdateSettingsRequest) values() map[string]string {
	values := map[string]string{}
	if r.DownloadPath != nil {
		values[model.KeyDownloadPath] = *r.DownloadPath
	}
	if r.IsFolder != nil {
		values[model.KeyIsFolder] = strconv.FormatBool(*r.IsFolder)
	}
	if r.MaxConcurrent != nil {
		values[model.KeyMaxConcurrent] = strconv.Itoa(*r.MaxConcurrent)
	}
	if r.SESSDATA != nil {
		values[model.KeySESSDATA] = *r.SESSDATA
	}
	return values
}

// Get 获取下载设置，登录凭证只返回是否已设置
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Snapshot()
	if err != nil {
		fail(c, http.StatusInternalServerError, "获取设置失败: "+err.Error())
		return
	}
	success(c, settings, "success")
}

// Update 修改下载设置
func (h *SettingsHandler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	values := req.values()
	if len(values) == 0 {
		fail(c, http.StatusBadRequest, "没有需要修改的设置")
		return
	}
	if err := h.settings.SetMany(values); err != nil {
		fail(c, http.StatusBadRequest, "修改设置失败: "+err.Error())
		return
	}

	settings, err := h.settings.Snapshot()
	if err != nil {
		fail(c, http.StatusInternalServerError, "获取设置失败: "+err.Error())
		return
	}
	success(c, settings, "设置已更新")
}
