package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"blog/models"
	"blog/services"

	"github.com/gin-gonic/gin"
)

const (
	userContextKey = "user"
	LoginPath      = "/api/v1/auth/login"
)

// LoginRedirect - куда отправить анонима: страница логина с next=<path>
func LoginRedirect(path string) string {
	next := strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
	return LoginPath + "?next=" + next
}

// AbortAuthRequired отвечает 401 с адресом логина
func AbortAuthRequired(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    services.ErrAuthRequired.Error(),
		"redirect": LoginRedirect(c.Request.URL.Path),
	})
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	// браузерный WebSocket не умеет заголовки, токен приходит в query
	return c.Query("token")
}

// OptionalAuthMiddleware - если передан валидный токен, кладет пользователя в контекст.
// Неверный токен не ошибка: запрос идет дальше анонимно.
func OptionalAuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userContextKey, user)
			} else if !errors.Is(err, services.ErrAuthRequired) {
				_ = c.Error(err)
			}
		}
		c.Next()
	}
}

// RequireUser пропускает только авторизованных
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			AbortAuthRequired(c)
			return
		}
		c.Next()
	}
}

// CurrentUser - пользователь запроса или nil для анонима
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
