package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"
)

// ClientOptions 上游接口配置
type ClientOptions struct {
	WebBase   string
	APIBase   string
	UserAgent string
	Timeout   time.Duration
}

// Client 封装对 bilibili 页面和接口的 GET 请求
type Client struct {
	opts   ClientOptions
	client *resty.Client
}

// NewClient 创建客户端
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	opts.WebBase = strings.TrimRight(opts.WebBase, "/")
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Referer", opts.WebBase+"/")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	// cookie 由 Session 显式管理
	client.SetCookieJar(nil)

	return &Client{opts: opts, client: client}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// WebBase 站点地址
func (c *Client) WebBase() string {
	return c.opts.WebBase
}

// PageContent 页面抓取结果
type PageContent struct {
	Body string
	URL  string // 跟随重定向后的最终地址
}

// FetchPage 抓取页面 HTML，跟随重定向并返回最终地址
func (c *Client) FetchPage(ctx context.Context, sess Session, pageURL string) (*PageContent, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Cookie", sess.credentialCookie()).
		Get(pageURL)
	if err != nil {
		return nil, transportError("请求页面 "+pageURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, transportError("请求页面 "+pageURL, fmt.Errorf("状态码: %d", resp.StatusCode()))
	}

	finalURL := pageURL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	return &PageContent{Body: resp.String(), URL: finalURL}, nil
}

// FetchBytes 下载任意资源（封面等）
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, transportError("下载 "+rawURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, transportError("下载 "+rawURL, fmt.Errorf("状态码: %d", resp.StatusCode()))
	}
	return resp.Bytes(), nil
}

// NavInfo 登录状态探测结果
type NavInfo struct {
	IsLogin   bool   `json:"isLogin"`
	VipStatus int    `json:"vipStatus"`
	VipType   int    `json:"vipType"`
	Uname     string `json:"uname"`
}

type navResponse struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Data    NavInfo `json:"data"`
}

// Nav 身份探测。未登录时接口返回非 0 码但 data.isLogin 为 false，这里不视为错误。
func (c *Client) Nav(ctx context.Context, sess Session) (*NavInfo, error) {
	var result navResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Cookie", sess.credentialCookie()).
		SetResult(&result).
		Get(c.opts.APIBase + "/x/web-interface/nav")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("状态码: %d", resp.StatusCode())
	}
	return &result.Data, nil
}

type dashStream struct {
	ID        int    `json:"id"`
	BaseURL   string `json:"baseUrl"`
	BaseURL2  string `json:"base_url"`
	Bandwidth int64  `json:"bandwidth"`
	Codecs    string `json:"codecs"`
}

func (d dashStream) url() string {
	if d.BaseURL != "" {
		return d.BaseURL
	}
	return d.BaseURL2
}

type dashInfo struct {
	Video []dashStream `json:"video"`
	Audio []dashStream `json:"audio"`
}

// playData 取流接口及页面内嵌 __playinfo__ 的共同结构
type playData struct {
	AcceptQuality []int     `json:"accept_quality"`
	Timelength    int64     `json:"timelength"`
	Dash          *dashInfo `json:"dash"`
}

type playURLResponse struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    *playData `json:"data"`
	Result  *playData `json:"result"` // pgc 接口使用 result
}

func (r *playURLResponse) payload() *playData {
	if r.Data != nil {
		return r.Data
	}
	return r.Result
}

// fetchPlayURL 按 cid/bvid 取流
func (c *Client) fetchPlayURL(ctx context.Context, sess Session, cid int64, bvid string, qn int) (*playURLResponse, Session, error) {
	params := map[string]string{
		"cid":   strconv.FormatInt(cid, 10),
		"bvid":  bvid,
		"qn":    strconv.Itoa(qn),
		"type":  "",
		"otype": "json",
		"fourk": "1",
		"fnver": "0",
		"fnval": "80",
	}
	return c.playURL(ctx, sess, c.opts.APIBase+"/x/player/playurl", params)
}

// fetchPGCPlayURL 按 ep_id 取流，用于缺少 cid 的剧集
func (c *Client) fetchPGCPlayURL(ctx context.Context, sess Session, epID int64, qn int) (*playURLResponse, Session, error) {
	params := map[string]string{
		"ep_id": strconv.FormatInt(epID, 10),
		"qn":    strconv.Itoa(qn),
		"fourk": "1",
		"fnver": "0",
		"fnval": "80",
	}
	return c.playURL(ctx, sess, c.opts.APIBase+"/pgc/player/web/playurl", params)
}

func (c *Client) playURL(ctx context.Context, sess Session, endpoint string, params map[string]string) (*playURLResponse, Session, error) {
	var result playURLResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Cookie", sess.cookieHeader()).
		SetQueryParams(params).
		SetResult(&result).
		Get(endpoint)
	if err != nil {
		return nil, sess, transportError("获取视频地址", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, sess, transportError("获取视频地址", fmt.Errorf("状态码: %d", resp.StatusCode()))
	}
	next, _ := sess.withResponseCookies(resp.Cookies())
	return &result, next, nil
}

type playerV2Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Subtitle struct {
			Subtitles []struct {
				LanDoc      string `json:"lan_doc"`
				SubtitleURL string `json:"subtitle_url"`
			} `json:"subtitles"`
		} `json:"subtitle"`
	} `json:"data"`
}

// fetchPlayerV2 播放器信息，包含字幕列表
func (c *Client) fetchPlayerV2(ctx context.Context, sess Session, cid int64, bvid string) (*playerV2Response, Session, error) {
	var result playerV2Response
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Cookie", sess.cookieHeader()).
		SetQueryParams(map[string]string{
			"cid":  strconv.FormatInt(cid, 10),
			"bvid": bvid,
		}).
		SetResult(&result).
		Get(c.opts.APIBase + "/x/player/v2")
	if err != nil {
		return nil, sess, transportError("获取字幕", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, sess, transportError("获取字幕", fmt.Errorf("状态码: %d", resp.StatusCode()))
	}
	next, _ := sess.withResponseCookies(resp.Cookies())
	return &result, next, nil
}
