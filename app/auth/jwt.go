package auth

import (
	"bili-downloader/app/config"
	"bili-downloader/app/model"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RefreshWindow 令牌剩余有效期小于该值时才允许刷新
const RefreshWindow = time.Hour

var (
	ErrTokenInvalid     = errors.New("令牌无效")
	ErrNotAdmin         = errors.New("令牌不属于当前管理员")
	ErrRefreshTooEarly  = errors.New("令牌仍在有效期内，无需刷新")
	ErrAccountNotActive = errors.New("账号不是已启用的管理员")
)

// Claims 管理员令牌声明，Subject 为管理员用户名
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// Username 令牌所属的管理员用户名
func (c *Claims) Username() string {
	return c.Subject
}

// JWTService 签发和校验管理员令牌。服务只有配置文件中定义的一个管理员，
// 管理员用户名变更后旧令牌随即失效。
type JWTService struct {
	secret   []byte
	issuer   string
	admin    string
	lifetime time.Duration
	parser   *jwt.Parser
}

// NewJWTService 创建令牌服务
func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secret:   []byte(cfg.JWT.Secret),
		issuer:   cfg.JWT.Issuer,
		admin:    cfg.Server.Username,
		lifetime: time.Duration(cfg.JWT.ExpireTime) * time.Hour,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.JWT.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// GenerateToken 为管理员签发令牌，返回令牌及其过期时间
func (j *JWTService) GenerateToken(user *model.User) (string, time.Time, error) {
	if !user.IsAdmin || !user.IsActive || user.Username != j.admin {
		return "", time.Time{}, ErrAccountNotActive
	}
	return j.sign(user.ID, user.Username)
}

func (j *JWTService) sign(userID uint, username string) (string, time.Time, error) {
	now := time.Now()
	expireAt := now.Add(j.lifetime)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("签名令牌失败: %w", err)
	}
	return token, expireAt, nil
}

// ValidateToken 校验签名、签发者和有效期，并要求令牌属于当前管理员
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := j.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject != j.admin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// RefreshToken 即将过期的令牌换发新令牌
func (j *JWTService) RefreshToken(tokenString string) (string, time.Time, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return "", time.Time{}, err
	}
	if time.Until(claims.ExpiresAt.Time) > RefreshWindow {
		return "", time.Time{}, ErrRefreshTooEarly
	}
	return j.sign(claims.UserID, claims.Subject)
}
