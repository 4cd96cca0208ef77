package service

import (
	"bili-downloader/app/bilibili"
	"bili-downloader/app/logger"
	"bili-downloader/app/model"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrTaskNotFound 任务不存在
var ErrTaskNotFound = errors.New("下载任务不存在")

// DownloadQueueService 已接收下载任务的持久化队列。
// 实际下载由外部执行器完成，执行器通过这里读取任务并更新状态。
type DownloadQueueService struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewDownloadQueueService 创建下载队列服务
func NewDownloadQueueService(db *gorm.DB, log *logger.Logger) *DownloadQueueService {
	return &DownloadQueueService{db: db, logger: log}
}

// RunningCount 正在下载的任务数
func (s *DownloadQueueService) RunningCount() (int, error) {
	var count int64
	if err := s.db.Model(&model.DownloadTask{}).Where("status = ?", model.TaskStatusRunning).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Save 在一个事务中保存一批已接收的任务
func (s *DownloadQueueService) Save(tasks []bilibili.DownloadTask) error {
	if len(tasks) == 0 {
		return nil
	}

	rows := make([]model.DownloadTask, 0, len(tasks))
	for _, task := range tasks {
		payload, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("序列化任务 %s 失败: %w", task.TaskID, err)
		}
		rows = append(rows, model.DownloadTask{
			TaskID:    task.TaskID,
			Bvid:      task.Bvid,
			Cid:       task.Cid,
			Title:     task.Title,
			Quality:   task.Quality,
			Status:    int(task.Status),
			Progress:  task.Progress,
			FileDir:   task.FileDir,
			Payload:   string(payload),
			CreatedAt: task.CreatedAt,
		})
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	}); err != nil {
		s.logger.Errorf("保存下载任务失败: %v", err)
		return err
	}

	s.logger.Infof("保存下载任务成功: %d 个", len(rows))
	return nil
}

// List 按创建时间列出任务，status 为 0 时返回全部
func (s *DownloadQueueService) List(status int) ([]model.DownloadTask, error) {
	query := s.db.Order("created_at ASC, id ASC")
	if status != 0 {
		query = query.Where("status = ?", status)
	}
	tasks := []model.DownloadTask{}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get 读取完整任务数据
func (s *DownloadQueueService) Get(taskID string) (*bilibili.DownloadTask, error) {
	var row model.DownloadTask
	err := s.db.Where("task_id = ?", taskID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var task bilibili.DownloadTask
	if err := json.Unmarshal([]byte(row.Payload), &task); err != nil {
		return nil, fmt.Errorf("解析任务 %s 失败: %w", taskID, err)
	}
	// 状态和进度以表字段为准
	task.Status = bilibili.TaskStatus(row.Status)
	task.Progress = row.Progress
	return &task, nil
}

// UpdateProgress 由下载执行器上报进度
func (s *DownloadQueueService) UpdateProgress(taskID string, status, progress int) error {
	result := s.db.Model(&model.DownloadTask{}).Where("task_id = ?", taskID).
		Updates(map[string]any{"status": status, "progress": progress})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Cancel 取消并删除任务
func (s *DownloadQueueService) Cancel(taskID string) error {
	result := s.db.Where("task_id = ?", taskID).Delete(&model.DownloadTask{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	s.logger.Infof("下载任务已取消: %s", taskID)
	return nil
}

// Clear 清空队列，返回删除的任务数
func (s *DownloadQueueService) Clear() (int64, error) {
	result := s.db.Where("1 = 1").Delete(&model.DownloadTask{})
	if result.Error != nil {
		return 0, result.Error
	}
	s.logger.Infof("下载队列已清空: %d 个任务", result.RowsAffected)
	return result.RowsAffected, nil
}
