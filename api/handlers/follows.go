package handlers

import (
	"net/http"

	"blog/api/middleware"
	"blog/services"

	"github.com/gin-gonic/gin"
)

// FollowIndex - лента подписок, GET /follow?page=
func (h *Handler) FollowIndex(c *gin.Context) {
	page, err := h.Feeds.FollowFeed(c.Request.Context(), middleware.CurrentUser(c), pageParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ProfileFollow - POST /users/:username/follow; после подписки клиент идет в ленту подписок,
// попытка подписаться на себя возвращает в профиль
func (h *Handler) ProfileFollow(c *gin.Context) {
	outcome, err := h.Follows.Follow(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"))
	if err != nil {
		middleware.RecordMutation("follow", outcomeLabel(err), ServiceName)
		respondError(c, err, nil)
		return
	}
	middleware.RecordMutation("follow", string(outcome.Status), ServiceName)
	redirect := followIndexURL
	if outcome.Reason == services.ReasonSelfFollow {
		redirect = profileURL(c.Param("username"))
	}
	c.JSON(http.StatusOK, outcomeBody(outcome, redirect))
}

// ProfileUnfollow - POST /users/:username/unfollow.
// Отписался - на главную, подписки не было - обратно в профиль.
func (h *Handler) ProfileUnfollow(c *gin.Context) {
	username := c.Param("username")
	outcome, err := h.Follows.Unfollow(c.Request.Context(), middleware.CurrentUser(c), username)
	if err != nil {
		middleware.RecordMutation("unfollow", outcomeLabel(err), ServiceName)
		respondError(c, err, nil)
		return
	}
	middleware.RecordMutation("unfollow", string(outcome.Status), ServiceName)
	redirect := indexURL
	if !outcome.IsApplied() {
		redirect = profileURL(username)
	}
	c.JSON(http.StatusOK, outcomeBody(outcome, redirect))
}
