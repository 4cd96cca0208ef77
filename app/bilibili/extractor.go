package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bili-downloader/app/logger"

	"go.uber.org/zap"
)

// kindRules 链接路径片段与页面类型，按顺序匹配
var kindRules = []struct {
	fragment string
	kind     PageKind
}{
	{"video/av", KindVideo},
	{"video/BV", KindVideo},
	{"play/ss", KindMovieSet},
	{"play/ep", KindEpisode},
}

// Classify 根据链接判断页面类型，无法识别时返回 false
func Classify(pageURL string) (PageKind, bool) {
	for _, rule := range kindRules {
		if strings.Contains(pageURL, rule.fragment) {
			return rule.kind, true
		}
	}
	return "", false
}

var epIDPattern = regexp.MustCompile(`ep(\d+)`)

// Extractor 从页面 HTML 中提取视频元数据
type Extractor struct {
	client  *Client
	perms   *PermissionResolver
	streams *StreamResolver
	logger  *logger.Logger
}

// NewExtractor 创建元数据提取器
func NewExtractor(client *Client, perms *PermissionResolver, streams *StreamResolver, log *logger.Logger) *Extractor {
	return &Extractor{client: client, perms: perms, streams: streams, logger: log}
}

// Extract 按页面类型解析元数据
func (e *Extractor) Extract(ctx context.Context, sess Session, kind PageKind, html, pageURL string) (*VideoMetadata, Session, error) {
	e.logger.Info("开始解析视频", zap.String("kind", kind.Name()), zap.String("url", pageURL))
	switch kind {
	case KindVideo:
		return e.extractVideo(ctx, sess, html, pageURL)
	case KindEpisode:
		return e.extractEpisode(ctx, sess, html, pageURL)
	case KindMovieSet:
		return e.extractMovieSet(ctx, sess, html)
	default:
		return nil, sess, unsupportedURL(pageURL)
	}
}

type videoState struct {
	VideoData *videoData `json:"videoData"`
}

type videoData struct {
	Bvid     string `json:"bvid"`
	Cid      int64  `json:"cid"`
	Title    string `json:"title"`
	Pic      string `json:"pic"`
	Duration int64  `json:"duration"`
	Stat     struct {
		View    int64 `json:"view"`
		Danmaku int64 `json:"danmaku"`
		Reply   int64 `json:"reply"`
	} `json:"stat"`
	Owner Uploader   `json:"owner"`
	Staff []Uploader `json:"staff"`
	Pages []struct {
		Cid      int64  `json:"cid"`
		Page     int    `json:"page"`
		Part     string `json:"part"`
		Duration int64  `json:"duration"`
	} `json:"pages"`
}

func (e *Extractor) extractVideo(ctx context.Context, sess Session, html, pageURL string) (*VideoMetadata, Session, error) {
	fragment, ok := videoStateLocator.Find(html)
	if !ok {
		return nil, sess, metadataNotFound(KindVideo, []string{videoStateLocator.Name})
	}
	var state videoState
	if err := json.Unmarshal([]byte(fragment), &state); err != nil {
		return nil, sess, metadataMalformed(KindVideo, videoStateLocator.Name, err)
	}
	data := state.VideoData
	if data == nil {
		return nil, sess, metadataNotFound(KindVideo, []string{videoStateLocator.Name})
	}

	manifest, sess, err := e.manifest(ctx, sess, KindVideo, html, []Locator{playInfoLocator}, data.Cid, data.Bvid)
	if err != nil {
		return nil, sess, err
	}

	uploaders := data.Staff
	if len(uploaders) == 0 {
		uploaders = []Uploader{data.Owner}
	}

	pages := make([]Page, 0, len(data.Pages))
	if len(data.Pages) == 1 {
		p := data.Pages[0]
		pages = append(pages, Page{
			Title:    data.Title,
			Index:    p.Page,
			Duration: formatSeconds(p.Duration),
			Cid:      p.Cid,
			Bvid:     data.Bvid,
			URL:      pageURL,
		})
	} else {
		for _, p := range data.Pages {
			pages = append(pages, Page{
				Title:    p.Part,
				Index:    p.Page,
				Duration: formatSeconds(p.Duration),
				Cid:      p.Cid,
				Bvid:     data.Bvid,
				URL:      pageLink(pageURL, p.Page),
			})
		}
	}

	tier := e.perms.TierOrGuest(ctx, sess)
	meta := &VideoMetadata{
		Title:          data.Title,
		URL:            pageURL,
		Bvid:           data.Bvid,
		Cid:            data.Cid,
		Cover:          data.Pic,
		View:           data.Stat.View,
		Danmaku:        data.Stat.Danmaku,
		Reply:          data.Stat.Reply,
		Duration:       formatSeconds(data.Duration),
		Uploaders:      uploaders,
		QualityOptions: qualityOptions(FilterQualities(manifest.AcceptQuality, tier)),
		Pages:          pages,
		Subtitles:      []Subtitle{},
		Video:          streamsOrEmpty(manifest.Video),
		Audio:          streamsOrEmpty(manifest.Audio),
		Size:           -1,
	}
	e.logger.Info("视频解析完成", zap.String("bvid", meta.Bvid), zap.Int("pages", len(meta.Pages)), zap.Stringer("tier", tier))
	return meta, sess, nil
}

type episodeState struct {
	H1Title   string `json:"h1Title"`
	MediaInfo *struct {
		Cover string `json:"cover"`
		Stat  struct {
			Views    int64 `json:"views"`
			Danmakus int64 `json:"danmakus"`
			Reply    int64 `json:"reply"`
		} `json:"stat"`
		UpInfo   *Uploader `json:"upInfo"`
		NewestEp *struct {
			ID int64 `json:"id"`
		} `json:"newestEp"`
	} `json:"mediaInfo"`
	EpInfo *struct {
		ID       int64  `json:"id"`
		Cid      int64  `json:"cid"`
		Bvid     string `json:"bvid"`
		Duration int64  `json:"duration"` // 毫秒
	} `json:"epInfo"`
	EpList []struct {
		ID        int64  `json:"id"`
		Cid       int64  `json:"cid"`
		Bvid      string `json:"bvid"`
		ShareCopy string `json:"share_copy"`
		ShareURL  string `json:"share_url"`
		Duration  int64  `json:"duration"` // 毫秒
	} `json:"epList"`
}

func (s *episodeState) complete() bool {
	return s.H1Title != "" && s.MediaInfo != nil && s.EpInfo != nil
}

// findEpisodeState 依次尝试各种 __INITIAL_STATE__ 写法，accept 决定命中的数据是否可用。
// 数据格式错误直接返回，缺少关键字段时继续尝试下一种。
func (e *Extractor) findEpisodeState(kind PageKind, html string, accept func(*episodeState) bool) (*episodeState, error) {
	for _, l := range episodeStateLocators {
		fragment, ok := l.Find(html)
		if !ok {
			continue
		}
		var state episodeState
		if err := json.Unmarshal([]byte(fragment), &state); err != nil {
			return nil, metadataMalformed(kind, l.Name, err)
		}
		if accept(&state) {
			e.logger.Debug("解析方式命中", zap.String("locator", l.Name))
			return &state, nil
		}
		e.logger.Debug("数据缺少关键字段，尝试下一种解析方式", zap.String("locator", l.Name))
	}
	return nil, nil
}

func (e *Extractor) extractEpisode(ctx context.Context, sess Session, html, pageURL string) (*VideoMetadata, Session, error) {
	nextFragment, hasNextData := nextDataLocator.Find(html)
	if hasNextData {
		info, err := videoInfoFromNextData(nextFragment)
		if err != nil {
			return nil, sess, metadataMalformed(KindEpisode, nextDataLocator.Name, err)
		}
		if info != nil {
			e.logger.Info("使用 __NEXT_DATA__ 生成精简剧集数据", zap.String("url", pageURL))
			tier := e.perms.TierOrGuest(ctx, sess)
			return minimalEpisode(pageURL, info.Timelength, FilterQualities(info.AcceptQuality, tier)), sess, nil
		}
	}

	state, err := e.findEpisodeState(KindEpisode, html, (*episodeState).complete)
	if err != nil {
		return nil, sess, err
	}
	if state == nil {
		if hasNextData {
			e.logger.Warn("__NEXT_DATA__ 不含播放信息，生成精简剧集数据", zap.String("url", pageURL))
			// 没有 accept_quality 可供筛选，清晰度列表留空，下载时按 ep_id 取流
			return minimalEpisode(pageURL, 0, nil), sess, nil
		}
		attempted := append([]string{nextDataLocator.Name}, locatorNames(episodeStateLocators)...)
		e.logger.Error("剧集解析失败", zap.Strings("attempted", attempted))
		return nil, sess, metadataNotFound(KindEpisode, attempted)
	}

	ep := state.EpInfo
	manifest, sess, err := e.manifest(ctx, sess, KindEpisode, html, episodeManifestLocators, ep.Cid, ep.Bvid)
	if err != nil {
		return nil, sess, err
	}

	pages := make([]Page, 0, len(state.EpList))
	for i, item := range state.EpList {
		pages = append(pages, Page{
			Title:    item.ShareCopy,
			Index:    i + 1,
			Duration: formatSeconds(item.Duration / 1000),
			Cid:      item.Cid,
			Bvid:     item.Bvid,
			EpID:     item.ID,
			URL:      item.ShareURL,
		})
	}

	media := state.MediaInfo
	uploaders := []Uploader{}
	if media.UpInfo != nil {
		uploaders = append(uploaders, *media.UpInfo)
	}
	cover := media.Cover
	if strings.HasPrefix(cover, "//") {
		cover = "http:" + cover
	}

	tier := e.perms.TierOrGuest(ctx, sess)
	meta := &VideoMetadata{
		Title:          state.H1Title,
		URL:            pageURL,
		Bvid:           ep.Bvid,
		Cid:            ep.Cid,
		Cover:          cover,
		View:           media.Stat.Views,
		Danmaku:        media.Stat.Danmakus,
		Reply:          media.Stat.Reply,
		Duration:       formatSeconds(ep.Duration / 1000),
		Uploaders:      uploaders,
		QualityOptions: qualityOptions(FilterQualities(manifest.AcceptQuality, tier)),
		Pages:          pages,
		Subtitles:      []Subtitle{},
		Video:          streamsOrEmpty(manifest.Video),
		Audio:          streamsOrEmpty(manifest.Audio),
		Size:           -1,
	}
	e.logger.Info("剧集解析完成", zap.String("title", meta.Title), zap.Int("episodes", len(meta.Pages)), zap.Stringer("tier", tier))
	return meta, sess, nil
}

func (e *Extractor) extractMovieSet(ctx context.Context, sess Session, html string) (*VideoMetadata, Session, error) {
	state, err := e.findEpisodeState(KindMovieSet, html, func(s *episodeState) bool {
		return s.MediaInfo != nil && s.MediaInfo.NewestEp != nil && s.MediaInfo.NewestEp.ID != 0
	})
	if err != nil {
		return nil, sess, err
	}
	if state == nil {
		return nil, sess, metadataNotFound(KindMovieSet, locatorNames(episodeStateLocators))
	}

	epURL := fmt.Sprintf("%s/bangumi/play/ep%d", e.client.WebBase(), state.MediaInfo.NewestEp.ID)
	e.logger.Info("合集跳转到最新剧集", zap.String("url", epURL))
	page, err := e.client.FetchPage(ctx, sess, epURL)
	if err != nil {
		return nil, sess, err
	}
	return e.extractEpisode(ctx, sess, page.Body, page.URL)
}

// manifest 优先使用页面内嵌的取流数据，都没有时调用接口
func (e *Extractor) manifest(ctx context.Context, sess Session, kind PageKind, html string, locators []Locator, cid int64, bvid string) (*Manifest, Session, error) {
	for _, l := range locators {
		fragment, ok := l.Find(html)
		if !ok {
			continue
		}
		data, err := decodeEmbeddedPlay(fragment)
		if err != nil {
			e.logger.Warn("内嵌取流数据格式错误，尝试下一种方式",
				zap.String("kind", string(kind)), zap.String("locator", l.Name), zap.Error(err))
			continue
		}
		if data != nil && data.Dash != nil {
			e.logger.Debug("使用页面内嵌取流数据", zap.String("locator", l.Name))
			return manifestFrom(data, cid), sess, nil
		}
	}
	return e.streams.ResolveManifest(ctx, sess, cid, bvid)
}

// decodeEmbeddedPlay 兼容 {data:{...}}、{result:{video_info:{...}}} 和直接的取流数据
func decodeEmbeddedPlay(fragment string) (*playData, error) {
	var wrapped struct {
		Data   *playData `json:"data"`
		Result *struct {
			VideoInfo *playData `json:"video_info"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(fragment), &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Data != nil && wrapped.Data.Dash != nil:
		return wrapped.Data, nil
	case wrapped.Result != nil && wrapped.Result.VideoInfo != nil:
		return wrapped.Result.VideoInfo, nil
	}
	var direct playData
	if err := json.Unmarshal([]byte(fragment), &direct); err != nil {
		return nil, err
	}
	return &direct, nil
}

type nextResult struct {
	VideoInfo *playData `json:"video_info"`
}

// videoInfoFromNextData 在 Next.js 的 query 缓存中查找 video_info，没有时返回 nil
func videoInfoFromNextData(fragment string) (*playData, error) {
	var next struct {
		Props struct {
			PageProps struct {
				DehydratedState struct {
					Queries []struct {
						State struct {
							Data json.RawMessage `json:"data"`
						} `json:"state"`
					} `json:"queries"`
				} `json:"dehydratedState"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(fragment), &next); err != nil {
		return nil, err
	}
	for _, q := range next.Props.PageProps.DehydratedState.Queries {
		if len(q.State.Data) == 0 {
			continue
		}
		var data struct {
			Data *struct {
				Result *nextResult `json:"result"`
			} `json:"data"`
			Result *nextResult `json:"result"`
		}
		// 其他 query 的 data 可能不是对象
		if err := json.Unmarshal(q.State.Data, &data); err != nil {
			continue
		}
		if data.Data != nil && data.Data.Result != nil && data.Data.Result.VideoInfo != nil {
			return data.Data.Result.VideoInfo, nil
		}
		if data.Result != nil && data.Result.VideoInfo != nil {
			return data.Result.VideoInfo, nil
		}
	}
	return nil, nil
}

// minimalEpisode 仅有播放信息时的精简剧集数据，取流时使用 ep_id
func minimalEpisode(pageURL string, timelength int64, qualities []int) *VideoMetadata {
	epID := "unknown"
	var id int64
	if m := epIDPattern.FindStringSubmatch(pageURL); m != nil {
		epID = m[1]
		id, _ = strconv.ParseInt(m[1], 10, 64)
	}
	title := "EP" + epID
	duration := formatSeconds(timelength / 1000)
	return &VideoMetadata{
		Title:          title,
		URL:            pageURL,
		Duration:       duration,
		Uploaders:      []Uploader{{Name: "哔哩哔哩", Mid: 0}},
		QualityOptions: qualityOptions(qualities),
		Pages: []Page{{
			Title:    title,
			Index:    1,
			Duration: duration,
			EpID:     id,
			URL:      pageURL,
		}},
		Subtitles: []Subtitle{},
		Video:     []Stream{},
		Audio:     []Stream{},
		Size:      -1,
	}
}

// pageLink 多P视频的分P链接
func pageLink(pageURL string, page int) string {
	sep := "?"
	if strings.Contains(pageURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sp=%d", pageURL, sep, page)
}

// formatSeconds 秒数格式化为 H:MM:SS
func formatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

func streamsOrEmpty(streams []Stream) []Stream {
	if streams == nil {
		return []Stream{}
	}
	return streams
}
