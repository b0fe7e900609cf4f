package handlers

import (
	"net/http"

	"blog/api/middleware"

	"github.com/gin-gonic/gin"
)

// Profile - GET /users/:username?page=
func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.Feeds.UserFeed(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), pageParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, profile)
}
