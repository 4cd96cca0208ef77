package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp" // 封面可能是 webp
)

// Fetcher 下载封面原图
type Fetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// CoverConfig 封面缩略图配置
type CoverConfig struct {
	Width     int    // 最大宽度
	Height    int    // 最大高度
	OverWrite bool   // 是否覆盖已存在的文件
	FillColor string // 无封面时占位图的背景色
}

// DefaultCoverConfig 默认封面配置
func DefaultCoverConfig() *CoverConfig {
	return &CoverConfig{
		Width:     640,
		Height:    400,
		OverWrite: false,
		FillColor: "#fb7299",
	}
}

// CoverSaver 将视频封面保存为任务的 png 缩略图
type CoverSaver struct {
	fetcher Fetcher
	config  *CoverConfig
}

// NewCoverSaver 创建封面保存器
func NewCoverSaver(fetcher Fetcher, config *CoverConfig) *CoverSaver {
	if config == nil {
		config = DefaultCoverConfig()
	}
	return &CoverSaver{fetcher: fetcher, config: config}
}

// Save 下载封面并缩放保存到 savePath。
// 没有封面地址时生成带 label 文字的占位图。
func (s *CoverSaver) Save(ctx context.Context, coverURL, savePath, label string) error {
	if !s.config.OverWrite {
		if _, err := os.Stat(savePath); err == nil {
			return nil
		}
	}

	// 确保保存目录存在
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return fmt.Errorf("创建保存目录失败: %w", err)
	}

	if coverURL == "" {
		return s.placeholder(savePath, label)
	}

	data, err := s.fetcher.FetchBytes(ctx, coverURL)
	if err != nil {
		return fmt.Errorf("下载封面失败: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("解析封面失败: %w", err)
	}

	thumb := imaging.Fit(img, s.config.Width, s.config.Height, imaging.Lanczos)
	if err := imaging.Save(thumb, savePath); err != nil {
		return fmt.Errorf("保存封面失败: %w", err)
	}
	return nil
}

// placeholder 纯色背景加居中文字
func (s *CoverSaver) placeholder(savePath, label string) error {
	dc := gg.NewContext(s.config.Width, s.config.Height)
	dc.SetHexColor(s.config.FillColor)
	dc.Clear()
	dc.SetHexColor("#ffffff")
	dc.DrawStringAnchored(label, float64(s.config.Width)/2, float64(s.config.Height)/2, 0.5, 0.5)
	if err := dc.SavePNG(savePath); err != nil {
		return fmt.Errorf("保存占位封面失败: %w", err)
	}
	return nil
}
