package bilibili

import (
	"fmt"
	"slices"
)

// Tier 用户权限等级
type Tier int

const (
	TierGuest   Tier = 0 // 游客，未登录
	TierMember  Tier = 1 // 普通用户
	TierPremium Tier = 2 // 大会员
)

func (t Tier) String() string {
	switch t {
	case TierMember:
		return "普通用户"
	case TierPremium:
		return "大会员"
	default:
		return "游客"
	}
}

// qualityMap 清晰度 id 与名称
var qualityMap = map[int]string{
	127: "8K 超高清",
	126: "杜比视界",
	125: "HDR 真彩",
	120: "4K 超清",
	116: "1080P 60帧",
	112: "1080P 高码率",
	80:  "1080P 高清",
	74:  "720P 60帧",
	64:  "720P 高清",
	32:  "480P 清晰",
	16:  "360P 流畅",
}

// tierQualities 各等级允许请求的清晰度
var tierQualities = map[Tier][]int{
	TierGuest:   {64, 32, 16},
	TierMember:  {80, 64, 32, 16},
	TierPremium: {127, 126, 125, 120, 116, 112, 80, 74, 64, 32, 16},
}

// QualityLabel 返回清晰度名称，未知 id 返回“清晰度<id>”
func QualityLabel(quality int) string {
	if label, ok := qualityMap[quality]; ok {
		return label
	}
	return fmt.Sprintf("清晰度%d", quality)
}

// AllowedQualities 返回等级允许的清晰度，未知等级按游客处理
func AllowedQualities(tier Tier) []int {
	if allowed, ok := tierQualities[tier]; ok {
		return slices.Clone(allowed)
	}
	return slices.Clone(tierQualities[TierGuest])
}

// FilterQualities 保留 advertised 中当前等级允许的清晰度，顺序不变。
// 交集为空时只返回 advertised 的最后一项（最低清晰度）。
func FilterQualities(advertised []int, tier Tier) []int {
	if len(advertised) == 0 {
		return nil
	}
	allowed := AllowedQualities(tier)
	filtered := make([]int, 0, len(advertised))
	for _, q := range advertised {
		if slices.Contains(allowed, q) {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) == 0 {
		return []int{advertised[len(advertised)-1]}
	}
	return filtered
}

// AssertQualityAllowed 清晰度不在等级允许范围内时返回 ErrQualityNotAllowed
func AssertQualityAllowed(quality int, tier Tier) error {
	if !slices.Contains(AllowedQualities(tier), quality) {
		return qualityNotAllowed(quality, tier)
	}
	return nil
}

// qualityOptions 转换为带名称的选项
func qualityOptions(qualities []int) []QualityOption {
	options := make([]QualityOption, 0, len(qualities))
	for _, q := range qualities {
		options = append(options, QualityOption{Label: QualityLabel(q), Value: q})
	}
	return options
}
