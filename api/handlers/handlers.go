package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"blog/api/middleware"
	"blog/logger"
	"blog/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceName    = "blog"
	indexURL       = "/api/v1/posts"
	followIndexURL = "/api/v1/follow"
)

func profileURL(username string) string {
	return "/api/v1/users/" + url.PathEscape(username)
}

func postURL(username string, postID int64) string {
	return fmt.Sprintf("%s/posts/%d", profileURL(username), postID)
}

// Handler - HTTP-обработчики поверх сервисов блога
type Handler struct {
	Auth      *services.AuthService
	Feeds     *services.FeedService
	Posts     *services.PostService
	Comments  *services.CommentService
	Follows   *services.FollowService
	Groups    *services.GroupService
	WS        *services.WSConnManager
	MaxUpload int64
}

// NotFound - 404 для неизвестных маршрутов и отсутствующих сущностей
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"error": "not found",
		"path":  c.Request.URL.Path,
	})
}

// respondError переводит ошибки сервисов в HTTP-статусы. form - значения формы для 400.
func respondError(c *gin.Context, err error, form gin.H) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrAuthRequired):
		middleware.AbortAuthRequired(c)
	case errors.Is(err, services.ErrNotFound):
		NotFound(c)
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"errors": verr.Fields,
			"form":   form,
		})
	default:
		_ = c.Error(err)
		logger.L.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pageParam(c *gin.Context) int {
	return services.ParsePage(c.Query("page"))
}

// postIDParam - нечисловой id означает, что такого поста нет
func postIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil || id < 1 {
		NotFound(c)
		return 0, false
	}
	return id, true
}

func outcomeLabel(err error) string {
	var verr *services.ValidationError
	switch {
	case err == nil:
		return string(services.StatusApplied)
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, services.ErrAuthRequired), errors.Is(err, services.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}

func outcomeBody(outcome services.Outcome, redirect string) gin.H {
	body := gin.H{
		"status":   outcome.Status,
		"redirect": redirect,
	}
	if outcome.Reason != "" {
		body["reason"] = outcome.Reason
	}
	return body
}
