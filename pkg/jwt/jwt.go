package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
)

// Manager 运维接口的Token管理器
// 设计说明：
// 1. 运维接口（库存快照、补货）只对店主/管理员开放，用HS256共享密钥签发
// 2. 没有刷新机制：管理端Token有效期按天配置，过期重新签发即可
type Manager struct {
	secret string        // 签名密钥
	expire time.Duration // Token有效期
}

// NewManager 创建Token管理器
func NewManager(secret string, expire time.Duration) *Manager {
	return &Manager{secret: secret, expire: expire}
}

// Claims 自定义JWT Claims
// 嵌入jwt.RegisteredClaims获取标准字段（exp、iat、nbf等）
type Claims struct {
	AdminID uint   `json:"admin_id"`
	Role    string `json:"role"` // owner | operator
	jwt.RegisteredClaims
}

// GenerateToken 签发管理端Token
func (m *Manager) GenerateToken(adminID uint, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: adminID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "shopbot",
			Subject:   fmt.Sprintf("%d", adminID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "生成Token失败")
	}
	return signed, nil
}

// ParseToken 解析并验证Token
// 校验内容：签名算法、签名本身、exp/nbf
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.ErrInvalidToken
}
