package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost 管理员密码的 bcrypt 计算成本，配置文件中的密码启动时按此成本重新哈希
const PasswordCost = bcrypt.DefaultCost

// maxPasswordBytes bcrypt 只处理前 72 字节
const maxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("密码不能为空")
	ErrPasswordTooLong = fmt.Errorf("密码长度不能超过 %d 字节", maxPasswordBytes)
)

// HashPassword 生成管理员密码哈希
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("生成密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword 校验密码，空密码或空哈希一律不通过
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash 哈希无法识别或成本与 PasswordCost 不一致时返回 true
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != PasswordCost
}
