package bilibili

import "regexp"

// Locator 从页面 HTML 中定位一段内嵌 JSON。
// 每个 Locator 互相独立，按优先级依次尝试，新增或移除一种页面格式只需要调整列表。
type Locator struct {
	Name    string
	pattern *regexp.Regexp
}

func newLocator(name, pattern string) Locator {
	return Locator{Name: name, pattern: regexp.MustCompile(pattern)}
}

// Find 返回匹配到的 JSON 片段
func (l Locator) Find(html string) (string, bool) {
	m := l.pattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func locatorNames(locators []Locator) []string {
	names := make([]string, 0, len(locators))
	for _, l := range locators {
		names = append(names, l.Name)
	}
	return names
}

var (
	// 普通视频页的 __INITIAL_STATE__
	videoStateLocator = newLocator("video_initial_state", `<script>.*?window\.__INITIAL_STATE__=([\s\S]*?);`)

	// 页面内嵌的取流数据
	playInfoLocator = newLocator("playinfo", `<script>window\.__playinfo__=([\s\S]*?)</script><script>window\.__INITIAL_STATE__=`)

	// 新版番剧页面的 Next.js 数据
	nextDataLocator = newLocator("next_data", `<script id="__NEXT_DATA__" type="application/json">([\s\S]*?)</script>`)

	// 新版番剧页面的服务端取流数据
	playurlSSRLocator = newLocator("playurl_ssr_data", `const playurlSSRData = ([\s\S]*?);`)

	// 旧版番剧页面的 __INITIAL_STATE__，依次尝试
	episodeStateLocators = []Locator{
		newLocator("initial_state", `<script>window\.__INITIAL_STATE__=([\s\S]*?);\(function\(\)\{var s;`),
		newLocator("initial_state_assign", `window\.__INITIAL_STATE__\s*=\s*([\s\S]*?);`),
		newLocator("initial_state_bracket", `window\['__INITIAL_STATE__'\]\s*=\s*([\s\S]*?);`),
		newLocator("initial_state_iife", `__INITIAL_STATE__\s*=\s*([\s\S]*?);\s*\(`),
		newLocator("initial_state_script_end", `__INITIAL_STATE__\s*=\s*([\s\S]*?);\s*</script>`),
	}

	// 剧集页内嵌取流数据，都未命中时走接口
	episodeManifestLocators = []Locator{playInfoLocator, playurlSSRLocator}
)
