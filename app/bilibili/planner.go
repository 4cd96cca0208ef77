package bilibili

import (
	"context"
	"time"

	"bili-downloader/app/logger"
	"bili-downloader/app/utils/pathhelper"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

const (
	taskIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	taskIDLength   = 16
)

// DefaultPlanInterval 相邻分P之间的请求间隔
const DefaultPlanInterval = time.Second

// PlanOptions 下载路径设置
type PlanOptions struct {
	DownloadPath   string
	PerVideoFolder bool // 每个任务单独建文件夹
}

// Planner 将选中的分P展开为下载任务
type Planner struct {
	streams  *StreamResolver
	newID    func() string
	sleep    func(ctx context.Context, d time.Duration) error
	interval time.Duration
	logger   *logger.Logger
}

// NewPlanner 创建任务规划器，interval 为 0 时使用 DefaultPlanInterval
func NewPlanner(streams *StreamResolver, interval time.Duration, log *logger.Logger) (*Planner, error) {
	newID, err := nanoid.CustomASCII(taskIDAlphabet, taskIDLength)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPlanInterval
	}
	return &Planner{
		streams:  streams,
		newID:    newID,
		sleep:    sleepContext,
		interval: interval,
		logger:   log,
	}, nil
}

// Plan 按 selected 的顺序为每个分P生成下载任务，任一分P失败则整体失败
func (p *Planner) Plan(ctx context.Context, sess Session, meta *VideoMetadata, selected []int, quality int, opts PlanOptions) ([]DownloadTask, Session, error) {
	p.logger.Info("开始生成下载任务",
		zap.String("title", meta.Title),
		zap.Ints("pages", selected),
		zap.String("quality", QualityLabel(quality)),
	)

	// 所有页面都不存在时不发任何请求
	for _, index := range selected {
		if _, ok := meta.FindPage(index); !ok {
			p.logger.Error("未找到分P", zap.Int("page", index))
			return nil, sess, pageNotFound(index)
		}
	}

	uploader := ""
	if len(meta.Uploaders) > 0 {
		uploader = meta.Uploaders[0].Name
	}

	tasks := make([]DownloadTask, 0, len(selected))
	for i, index := range selected {
		page, _ := meta.FindPage(index)

		var (
			downloadURL DownloadURL
			err         error
		)
		if embedded, ok := embeddedDownloadURL(meta, page, quality); ok {
			p.logger.Debug("使用页面内嵌的下载地址", zap.Int("page", index))
			downloadURL = embedded
		} else if page.Cid == 0 && page.EpID != 0 {
			downloadURL, sess, err = p.streams.ResolveEpisodeDownloadURL(ctx, sess, page.EpID, quality)
		} else {
			downloadURL, sess, err = p.streams.ResolveDownloadURL(ctx, sess, page.Cid, page.Bvid, quality)
		}
		if err != nil {
			return nil, sess, err
		}

		subtitles, next, err := p.streams.ResolveSubtitles(ctx, sess, page.Cid, page.Bvid)
		sess = next
		if err != nil {
			return nil, sess, err
		}

		pathIndex := index
		if len(selected) == 1 {
			pathIndex = 0
		}
		taskID := p.newID()
		name := pathhelper.TaskFileName(pathIndex, page.Title, uploader, page.Bvid, taskID)
		filePathList, fileDir := pathhelper.TaskFilePaths(opts.DownloadPath, opts.PerVideoFolder, name)

		task := DownloadTask{
			VideoMetadata: *meta,
			TaskID:        taskID,
			Quality:       quality,
			CreatedAt:     time.Now(),
			DownloadURL:   downloadURL,
			FilePathList:  filePathList,
			FileDir:       fileDir,
		}
		task.Title = page.Title
		task.URL = page.URL
		task.Duration = page.Duration
		task.Cid = page.Cid
		task.Bvid = page.Bvid
		task.Subtitles = subtitles
		tasks = append(tasks, task)

		p.logger.Info("下载任务已生成", zap.String("id", taskID), zap.Int("page", index), zap.String("name", name))

		if i != len(selected)-1 {
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, sess, err
			}
		}
	}
	return tasks, sess, nil
}

// embeddedDownloadURL 元数据中已有该分P和清晰度的视频流时直接使用
func embeddedDownloadURL(meta *VideoMetadata, page Page, quality int) (DownloadURL, bool) {
	audio, ok := SelectHighestBitrateAudio(meta.Audio)
	if !ok {
		return DownloadURL{}, false
	}
	for _, v := range meta.Video {
		if v.ID == quality && v.Cid == page.Cid {
			return DownloadURL{Video: v.URL, Audio: audio.URL}, true
		}
	}
	return DownloadURL{}, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
