package bilibili

import (
	"net/http"
	"strings"
)

// Session 一次操作使用的登录态。
// 由调用方显式传入每个需要鉴权的请求，服务端下发的刷新 cookie 通过返回值带回。
type Session struct {
	SESSDATA string
	Refresh  string // 服务端下发的刷新 cookie，如 "bfe_id=xxx"
}

// LoggedIn 是否携带了登录凭证
func (s Session) LoggedIn() bool {
	return strings.TrimSpace(s.SESSDATA) != ""
}

// credentialCookie 仅包含登录凭证的 cookie 头，用于身份探测和页面抓取
func (s Session) credentialCookie() string {
	return "SESSDATA=" + s.SESSDATA
}

// cookieHeader 登录凭证加上已捕获的刷新 cookie
func (s Session) cookieHeader() string {
	if s.Refresh == "" {
		return s.credentialCookie()
	}
	return s.credentialCookie() + ";" + s.Refresh
}

// withResponseCookies 合并响应中的 Set-Cookie，返回新会话以及刷新 cookie 是否变化
func (s Session) withResponseCookies(cookies []*http.Cookie) (Session, bool) {
	if len(cookies) == 0 {
		return s, false
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" || c.Name == "SESSDATA" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	if len(pairs) == 0 {
		return s, false
	}
	refresh := strings.Join(pairs, ";")
	if refresh == s.Refresh {
		return s, false
	}
	s.Refresh = refresh
	return s, true
}

// SessionSink 接收刷新 cookie 的持久化目标
type SessionSink interface {
	SaveRefreshCookie(refresh string) error
}
