package handler

import (
	"bili-downloader/app/service"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TaskHandler 下载队列处理器
type TaskHandler struct {
	queue *service.DownloadQueueService
}

// NewTaskHandler 创建下载队列处理器
func NewTaskHandler(queue *service.DownloadQueueService) *TaskHandler {
	return &TaskHandler{queue: queue}
}

// List 列出任务，可按 status 过滤
func (h *TaskHandler) List(c *gin.Context) {
	status := 0
	if raw := c.Query("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "无效的状态: "+raw)
			return
		}
		status = n
	}

	tasks, err := h.queue.List(status)
	if err != nil {
		fail(c, http.StatusInternalServerError, "获取任务列表失败: "+err.Error())
		return
	}
	success(c, tasks, "success")
}

// Get 获取任务详情
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.queue.Get(c.Param("id"))
	if err != nil {
		h.taskError(c, err)
		return
	}
	success(c, task, "success")
}

// Cancel 取消任务
func (h *TaskHandler) Cancel(c *gin.Context) {
	if err := h.queue.Cancel(c.Param("id")); err != nil {
		h.taskError(c, err)
		return
	}
	success(c, nil, "任务已取消")
}

// Clear 清空队列
func (h *TaskHandler) Clear(c *gin.Context) {
	removed, err := h.queue.Clear()
	if err != nil {
		fail(c, http.StatusInternalServerError, "清空队列失败: "+err.Error())
		return
	}
	success(c, gin.H{"removed": removed}, "队列已清空")
}

func (h *TaskHandler) taskError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrTaskNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	fail(c, http.StatusInternalServerError, err.Error())
}
