package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextKeySubject = "subject"

type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken 签发 HS256 访问令牌
func GenerateToken(secretKey, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

type authOptions struct {
	queryParam string
}

type AuthOption func(*authOptions)

// WithQueryToken 请求没有 Authorization 头时从查询参数读取令牌，供 EventSource 与 WebSocket 使用
func WithQueryToken(param string) AuthOption {
	return func(o *authOptions) {
		o.queryParam = param
	}
}

// AuthMiddleware 校验 Bearer 令牌，secretKey 为空时不做校验
func AuthMiddleware(secretKey string, opts ...AuthOption) gin.HandlerFunc {
	options := authOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		if secretKey == "" {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c, options.queryParam)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims := &Claims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			slog.Info("Invalid token", "err", err, "subject", claims.Subject)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context, queryParam string) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if queryParam != "" {
			if token := c.Query(queryParam); token != "" {
				return token, true
			}
		}
		slog.Info("Authorization header required")
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		slog.Info("Invalid authorization format")
		return "", false
	}
	return parts[1], true
}
