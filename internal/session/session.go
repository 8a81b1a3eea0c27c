package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/helloindustry/tmb/internal/config"
)

// CookieName 是承载会话 token 的 cookie 名称。
const CookieName = "session"

const ctxKey = "sessionUser"

// User 是写进签名 token 的会话身份，服务端不另存会话表。
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

type Claims struct {
	DisplayName string `json:"name"`
	IsAdmin     bool   `json:"adm"`
	jwt.RegisteredClaims
}

// Sign 把会话身份签成 HS256 token。
func Sign(u User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse 验签并解析会话 token。
func Parse(tokenStr, secret string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return &User{ID: claims.Subject, DisplayName: claims.DisplayName, IsAdmin: claims.IsAdmin}, nil
}

// SetCookie 签发会话 token 并写入 httpOnly cookie。
func SetCookie(c *gin.Context, cfg config.Config, u User) error {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	token, err := Sign(u, cfg.SessionSecret, ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(ttl.Seconds()), "/", "", cfg.Env != "dev", true)
	return nil
}

// Middleware 解析会话 cookie，失败时返回 401。
func Middleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
			return
		}
		user, err := Parse(token, cfg.SessionSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
			return
		}
		c.Set(ctxKey, user)
		c.Next()
	}
}

// FromContext 取出 Middleware 存入的会话身份。
func FromContext(c *gin.Context) *User {
	if v, ok := c.Get(ctxKey); ok {
		if u, ok2 := v.(*User); ok2 {
			return u
		}
	}
	return nil
}
