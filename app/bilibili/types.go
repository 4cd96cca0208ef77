package bilibili

import (
	"fmt"
	"time"
)

// PageKind 页面类型
type PageKind string

const (
	KindVideo    PageKind = "BV" // 普通视频 video/BV、video/av
	KindMovieSet PageKind = "ss" // 番剧/影视合集 play/ss
	KindEpisode  PageKind = "ep" // 番剧/影视单集 play/ep
)

// Name 用于日志和错误信息的可读名称
func (k PageKind) Name() string {
	switch k {
	case KindVideo:
		return "BV"
	case KindMovieSet:
		return "SS"
	case KindEpisode:
		return "EP"
	default:
		return string(k)
	}
}

// Uploader UP主
type Uploader struct {
	Name string `json:"name"`
	Mid  int64  `json:"mid"`
}

// QualityOption 当前用户可选的清晰度
type QualityOption struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Page 一个可下载的分P或剧集
type Page struct {
	Title    string `json:"title"`
	Index    int    `json:"page"` // 从 1 开始
	Duration string `json:"duration"`
	Cid      int64  `json:"cid"`
	Bvid     string `json:"bvid"`
	EpID     int64  `json:"epId,omitempty"` // 仅精简剧集数据使用，cid 缺失时通过 ep_id 取流
	URL      string `json:"url"`
}

// Subtitle 字幕
type Subtitle struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Stream 已内嵌在页面中的音视频流地址
type Stream struct {
	ID  int    `json:"id"` // 清晰度 id，音频为码率档位
	Cid int64  `json:"cid"`
	URL string `json:"url"`
}

// DownloadURL 选定清晰度下的音视频地址
type DownloadURL struct {
	Video string `json:"video"`
	Audio string `json:"audio"`
}

// VideoMetadata 一次链接解析的结果，构建后不再修改
type VideoMetadata struct {
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	Bvid           string          `json:"bvid"`
	Cid            int64           `json:"cid"`
	Cover          string          `json:"cover"`
	View           int64           `json:"view"`
	Danmaku        int64           `json:"danmaku"`
	Reply          int64           `json:"reply"`
	Duration       string          `json:"duration"`
	Uploaders      []Uploader      `json:"up"`
	QualityOptions []QualityOption `json:"qualityOptions"`
	Pages          []Page          `json:"page"`
	Subtitles      []Subtitle      `json:"subtitle"`
	Video          []Stream        `json:"video"`
	Audio          []Stream        `json:"audio"`
	Size           int64           `json:"size"` // 未知时为 -1
}

// FindPage 按页码查找分P
func (m *VideoMetadata) FindPage(index int) (Page, bool) {
	for _, p := range m.Pages {
		if p.Index == index {
			return p, true
		}
	}
	return Page{}, false
}

// TaskStatus 下载任务状态，数值与下载队列的约定保持一致
type TaskStatus int

const (
	StatusRunning TaskStatus = 1
	StatusQueued  TaskStatus = 4
)

func (s TaskStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusQueued:
		return "queued"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DownloadTask 一个分P对应的下载任务
type DownloadTask struct {
	VideoMetadata

	TaskID       string      `json:"id"`
	Quality      int         `json:"quality"`
	CreatedAt    time.Time   `json:"createdTime"`
	DownloadURL  DownloadURL `json:"downloadUrl"`
	FilePathList []string    `json:"filePathList"` // 成片、封面、视频分段、音频分段、文件夹（可为空）
	FileDir      string      `json:"fileDir"`
	Status       TaskStatus  `json:"status"`
	Progress     int         `json:"progress"`
}

// 下载文件路径在 FilePathList 中的位置
const (
	PathVideo = iota
	PathCover
	PathVideoSegment
	PathAudioSegment
	PathFolder
)
