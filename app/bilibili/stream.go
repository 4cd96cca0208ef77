package bilibili

import (
	"context"
	"slices"

	"bili-downloader/app/logger"

	"go.uber.org/zap"
)

// manifestQuality 获取清晰度列表时请求的最高清晰度
const manifestQuality = 127

// Manifest 一个内容可用的清晰度及音视频流
type Manifest struct {
	AcceptQuality []int
	Video         []Stream
	Audio         []Stream
}

// StreamResolver 解析音视频流地址和字幕
type StreamResolver struct {
	client *Client
	perms  *PermissionResolver
	sink   SessionSink
	logger *logger.Logger
}

// NewStreamResolver 创建取流解析器，sink 可以为 nil
func NewStreamResolver(client *Client, perms *PermissionResolver, sink SessionSink, log *logger.Logger) *StreamResolver {
	return &StreamResolver{client: client, perms: perms, sink: sink, logger: log}
}

// ResolveManifest 通过接口获取清晰度列表和音视频流
func (r *StreamResolver) ResolveManifest(ctx context.Context, sess Session, cid int64, bvid string) (*Manifest, Session, error) {
	r.logger.Info("获取视频清晰度列表", zap.Int64("cid", cid), zap.String("bvid", bvid), zap.Bool("hasSESSDATA", sess.LoggedIn()))
	resp, next, err := r.client.fetchPlayURL(ctx, sess, cid, bvid, manifestQuality)
	next = r.capture(sess, next)
	if err != nil {
		return nil, next, err
	}
	data, err := checkPlayResponse(resp, map[string]any{"cid": cid, "bvid": bvid})
	if err != nil {
		return nil, next, err
	}
	return manifestFrom(data, cid), next, nil
}

// ResolveDownloadURL 获取指定清晰度的音视频地址。
// 先校验权限，找不到完全匹配的清晰度时退回接口返回的第一条视频流。
func (r *StreamResolver) ResolveDownloadURL(ctx context.Context, sess Session, cid int64, bvid string, quality int) (DownloadURL, Session, error) {
	details := map[string]any{"cid": cid, "bvid": bvid, "quality": quality}
	return r.resolveDownloadURL(ctx, sess, quality, details, func(s Session) (*playURLResponse, Session, error) {
		return r.client.fetchPlayURL(ctx, s, cid, bvid, quality)
	})
}

// ResolveEpisodeDownloadURL 按 ep_id 获取音视频地址，用于缺少 cid 的剧集
func (r *StreamResolver) ResolveEpisodeDownloadURL(ctx context.Context, sess Session, epID int64, quality int) (DownloadURL, Session, error) {
	details := map[string]any{"epId": epID, "quality": quality}
	return r.resolveDownloadURL(ctx, sess, quality, details, func(s Session) (*playURLResponse, Session, error) {
		return r.client.fetchPGCPlayURL(ctx, s, epID, quality)
	})
}

func (r *StreamResolver) resolveDownloadURL(ctx context.Context, sess Session, quality int, details map[string]any,
	fetch func(Session) (*playURLResponse, Session, error)) (DownloadURL, Session, error) {

	tier := r.perms.TierOrGuest(ctx, sess)
	if err := AssertQualityAllowed(quality, tier); err != nil {
		r.logger.Warn("清晰度权限验证失败", zap.Int("quality", quality), zap.Stringer("tier", tier))
		return DownloadURL{}, sess, err
	}
	r.logger.Debug("清晰度权限验证通过", zap.String("quality", QualityLabel(quality)), zap.Stringer("tier", tier))

	resp, next, err := fetch(sess)
	next = r.capture(sess, next)
	if err != nil {
		r.logger.Error("获取下载地址失败", zap.Any("target", details), zap.Error(err))
		return DownloadURL{}, next, err
	}
	data, err := checkPlayResponse(resp, details)
	if err != nil {
		r.logger.Error("获取下载地址失败", zap.Any("target", details), zap.Error(err))
		return DownloadURL{}, next, err
	}

	manifest := manifestFrom(data, 0)
	video, ok := findStream(manifest.Video, quality)
	if !ok {
		// 不校验退回的清晰度是否在权限范围内，保持与接口返回一致
		video = manifest.Video[0]
		r.logger.Warn("未找到指定清晰度，使用默认清晰度", zap.Int("quality", quality), zap.Int("fallback", video.ID))
	}
	audio, _ := SelectHighestBitrateAudio(manifest.Audio)

	return DownloadURL{Video: video.URL, Audio: audio.URL}, next, nil
}

// ResolveSubtitles 获取字幕列表，没有字幕时返回空列表
func (r *StreamResolver) ResolveSubtitles(ctx context.Context, sess Session, cid int64, bvid string) ([]Subtitle, Session, error) {
	if cid == 0 {
		return []Subtitle{}, sess, nil
	}
	resp, next, err := r.client.fetchPlayerV2(ctx, sess, cid, bvid)
	next = r.capture(sess, next)
	if err != nil {
		return nil, next, err
	}
	subtitles := make([]Subtitle, 0, len(resp.Data.Subtitle.Subtitles))
	for _, s := range resp.Data.Subtitle.Subtitles {
		subtitles = append(subtitles, Subtitle{Title: s.LanDoc, URL: s.SubtitleURL})
	}
	return subtitles, next, nil
}

// capture 刷新 cookie 变化时转交持久化，失败只记录日志
func (r *StreamResolver) capture(prev, next Session) Session {
	if next.Refresh == "" || next.Refresh == prev.Refresh {
		return next
	}
	r.logger.Debug("捕获刷新 cookie", zap.String("refresh", next.Refresh))
	if r.sink != nil {
		if err := r.sink.SaveRefreshCookie(next.Refresh); err != nil {
			r.logger.Warn("保存刷新 cookie 失败", zap.Error(err))
		}
	}
	return next
}

// SelectHighestBitrateAudio 按 id 降序取第一条音频流，id 视为码率档位。不修改入参。
func SelectHighestBitrateAudio(audio []Stream) (Stream, bool) {
	if len(audio) == 0 {
		return Stream{}, false
	}
	sorted := slices.Clone(audio)
	slices.SortStableFunc(sorted, func(a, b Stream) int {
		return b.ID - a.ID
	})
	return sorted[0], true
}

func findStream(streams []Stream, id int) (Stream, bool) {
	for _, s := range streams {
		if s.ID == id {
			return s, true
		}
	}
	return Stream{}, false
}

// checkPlayResponse 校验取流接口的业务码和 dash 数据
func checkPlayResponse(resp *playURLResponse, details map[string]any) (*playData, error) {
	if resp.Code != 0 {
		return nil, platformRejected(resp.Code, resp.Message, details)
	}
	data := resp.payload()
	if data == nil || data.Dash == nil || len(data.Dash.Video) == 0 || len(data.Dash.Audio) == 0 {
		return nil, newError(ErrStreamDataMissing, "", nil, details)
	}
	return data, nil
}

// manifestFrom 转换 dash 数据，cid 写入每条流
func manifestFrom(data *playData, cid int64) *Manifest {
	m := &Manifest{AcceptQuality: slices.Clone(data.AcceptQuality)}
	if data.Dash == nil {
		return m
	}
	for _, v := range data.Dash.Video {
		m.Video = append(m.Video, Stream{ID: v.ID, Cid: cid, URL: v.url()})
	}
	for _, a := range data.Dash.Audio {
		m.Audio = append(m.Audio, Stream{ID: a.ID, Cid: cid, URL: a.url()})
	}
	return m
}
