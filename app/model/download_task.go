package model

import (
	"time"
)

// DownloadTask 已接收的下载任务（持久化队列）
type DownloadTask struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	TaskID    string    `json:"task_id" gorm:"not null;uniqueIndex;size:32"`  // 任务ID，16位随机字符
	Bvid      string    `json:"bvid" gorm:"size:32;index"`                   // 视频BV号，剧集精简数据可能为空
	Cid       int64     `json:"cid"`                                         // 分P cid
	Title     string    `json:"title" gorm:"size:255"`                       // 分P标题
	Quality   int       `json:"quality"`                                     // 清晰度 id
	Status    int       `json:"status" gorm:"not null;index;comment:状态"`     // 状态：1 下载中，4 排队中
	Progress  int       `json:"progress" gorm:"default:0"`                   // 下载进度 0-100
	FileDir   string    `json:"file_dir" gorm:"type:text"`                   // 保存目录
	Payload   string    `json:"-" gorm:"type:text;comment:完整任务数据(JSON)"` // 完整任务数据，交给下载执行器使用
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DownloadTask) TableName() string {
	return "download_tasks"
}

// 状态常量，与下载执行器约定的数值一致
const (
	TaskStatusRunning = 1 // 下载中
	TaskStatusQueued  = 4 // 排队中
)

// IsRunning 是否正在下载
func (t *DownloadTask) IsRunning() bool {
	return t.Status == TaskStatusRunning
}
