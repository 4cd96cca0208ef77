package pathhelper

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// MaxTitleRunes 文件名中标题部分的最大长度
const MaxTitleRunes = 80

// 正则表达式用于匹配文件名中不允许出现的字符
var invalidCharsPattern = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f\x7f]`)

var spacesPattern = regexp.MustCompile(`\s+`)

// FilterTitle 转换为可以安全用作文件名的字符串
func FilterTitle(title string) string {
	// 全角字符转半角后统一处理
	s := width.Fold.String(norm.NFC.String(title))
	s = spacesPattern.ReplaceAllString(s, " ")
	s = invalidCharsPattern.ReplaceAllString(s, "")
	return strings.Trim(s, " .")
}

// TruncateRunes 按字符截断
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// TaskFileName 任务文件的基础名称，page 为 0 时不加分P前缀
func TaskFileName(page int, title, uploader, bvid, taskID string) string {
	name := FilterTitle(fmt.Sprintf("%s-%s-%s-%s", TruncateRunes(FilterTitle(title), MaxTitleRunes), uploader, bvid, taskID))
	if page == 0 {
		return name
	}
	return fmt.Sprintf("[P%d]%s", page, name)
}

// TaskFilePaths 返回任务的文件列表和所在目录。
// 列表依次为成片、封面、视频分段、音频分段、文件夹，不单独建文件夹时最后一项为空。
func TaskFilePaths(downloadPath string, perFolder bool, name string) ([]string, string) {
	dir := downloadPath
	folder := ""
	if perFolder {
		dir = filepath.Join(downloadPath, name)
		folder = dir
	}
	return []string{
		filepath.Join(dir, name+".mp4"),
		filepath.Join(dir, name+".png"),
		filepath.Join(dir, name+"-video.m4s"),
		filepath.Join(dir, name+"-audio.m4s"),
		folder,
	}, dir
}
