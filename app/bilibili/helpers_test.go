package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bili-downloader/app/logger"
)

// fakePlatform 模拟上游站点，记录每个路径的请求次数
type fakePlatform struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{mux: http.NewServeMux(), hits: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePlatform) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, h)
}

func (f *fakePlatform) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// recordingSink 记录保存的刷新 cookie
type recordingSink struct {
	saved []string
}

func (s *recordingSink) SaveRefreshCookie(refresh string) error {
	s.saved = append(s.saved, refresh)
	return nil
}

type testStack struct {
	client    *Client
	perms     *PermissionResolver
	streams   *StreamResolver
	extractor *Extractor
	planner   *Planner
	sink      *recordingSink
	sleeps    int
}

func newTestStack(t *testing.T, f *fakePlatform) *testStack {
	t.Helper()
	log := logger.NewNop()
	client := NewClient(ClientOptions{
		WebBase:   f.server.URL,
		APIBase:   f.server.URL,
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
	t.Cleanup(func() { client.Close() })

	s := &testStack{client: client, sink: &recordingSink{}}
	s.perms = NewPermissionResolver(client, time.Minute, log)
	s.streams = NewStreamResolver(client, s.perms, s.sink, log)
	s.extractor = NewExtractor(client, s.perms, s.streams, log)

	planner, err := NewPlanner(s.streams, time.Second, log)
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}
	planner.sleep = func(ctx context.Context, d time.Duration) error {
		s.sleeps++
		return ctx.Err()
	}
	s.planner = planner
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// dashJSON 构造 dash 数据，地址形如 https://cdn.test/video-64.m4s
func dashJSON(accept, video, audio []int) map[string]any {
	streams := func(kind string, ids []int) []map[string]any {
		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, map[string]any{"id": id, "baseUrl": fmt.Sprintf("https://cdn.test/%s-%d.m4s", kind, id)})
		}
		return out
	}
	return map[string]any{
		"accept_quality": accept,
		"timelength":     120000,
		"dash": map[string]any{
			"video": streams("video", video),
			"audio": streams("audio", audio),
		},
	}
}

func playURLHandler(accept, video, audio []int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "message": "0", "data": dashJSON(accept, video, audio)})
	}
}

func navHandler(isLogin bool, vipStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"code": 0,
			"data": map[string]any{"isLogin": isLogin, "vipStatus": vipStatus, "vipType": vipStatus, "uname": "tester"},
		})
	}
}

func emptySubtitlesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"code": 0, "data": map[string]any{"subtitle": map[string]any{"subtitles": []any{}}}})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(b)
}
