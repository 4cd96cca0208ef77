package bilibili

import (
	"context"
	"time"

	"bili-downloader/app/logger"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// identityProber 身份探测接口，由 Client 实现
type identityProber interface {
	Nav(ctx context.Context, sess Session) (*NavInfo, error)
}

// PermissionResolver 根据登录凭证判断用户等级
type PermissionResolver struct {
	prober identityProber
	cache  *cache.Cache
	logger *logger.Logger
}

// NewPermissionResolver 创建权限解析器。cacheTTL 为 0 时不缓存降级路径的结果。
func NewPermissionResolver(prober identityProber, cacheTTL time.Duration, log *logger.Logger) *PermissionResolver {
	p := &PermissionResolver{prober: prober, logger: log}
	if cacheTTL > 0 {
		p.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return p
}

// ResolveTier 显式检查登录状态。未携带凭证直接返回游客，不发请求；探测失败返回 ErrAuthProbeFailed。
func (p *PermissionResolver) ResolveTier(ctx context.Context, sess Session) (Tier, error) {
	if !sess.LoggedIn() {
		return TierGuest, nil
	}

	nav, err := p.prober.Nav(ctx, sess)
	if err != nil {
		p.logger.Error("登录状态检查失败", zap.Error(err))
		return TierGuest, newError(ErrAuthProbeFailed, "登录状态检查失败: "+err.Error(), err, nil)
	}

	tier := classifyNav(nav)
	p.logger.Info("登录状态检查结果",
		zap.Bool("isLogin", nav.IsLogin),
		zap.Int("vipStatus", nav.VipStatus),
		zap.Int("vipType", nav.VipType),
		zap.String("uname", nav.Uname),
		zap.Stringer("tier", tier),
	)
	if p.cache != nil {
		p.cache.SetDefault(sess.SESSDATA, tier)
	}
	return tier, nil
}

// TierOrGuest 作为决策输入获取用户等级，任何失败都降级为游客
func (p *PermissionResolver) TierOrGuest(ctx context.Context, sess Session) Tier {
	if !sess.LoggedIn() {
		p.logger.Debug("未登录，返回游客权限")
		return TierGuest
	}
	if p.cache != nil {
		if cached, ok := p.cache.Get(sess.SESSDATA); ok {
			return cached.(Tier)
		}
	}

	tier, err := p.ResolveTier(ctx, sess)
	if err != nil {
		p.logger.Warn("获取用户等级失败，默认为游客权限", zap.Error(err))
		return TierGuest
	}
	return tier
}

// Forget 清除凭证对应的缓存，凭证变更后调用
func (p *PermissionResolver) Forget(sessdata string) {
	if p.cache != nil {
		p.cache.Delete(sessdata)
	}
}

func classifyNav(nav *NavInfo) Tier {
	switch {
	case nav.IsLogin && nav.VipStatus != 0:
		return TierPremium
	case nav.IsLogin:
		return TierMember
	default:
		return TierGuest
	}
}
