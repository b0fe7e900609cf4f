package handlers

import (
	"net/http"

	"blog/api/middleware"
	"blog/services"

	"github.com/gin-gonic/gin"
)

// GroupPosts - GET /group/:slug?page=
func (h *Handler) GroupPosts(c *gin.Context) {
	feed, err := h.Feeds.GroupFeed(c.Request.Context(), c.Param("slug"), pageParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// GroupList - список групп для формы поста
func (h *Handler) GroupList(c *gin.Context) {
	groups, err := h.Feeds.Groups(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req services.GroupInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	group, err := h.Groups.CreateGroup(c.Request.Context(), middleware.CurrentUser(c), req)
	middleware.RecordMutation("create_group", outcomeLabel(err), ServiceName)
	if err != nil {
		respondError(c, err, gin.H{"title": req.Title, "slug": req.Slug, "description": req.Description})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":   services.StatusApplied,
		"group":    group,
		"redirect": "/api/v1/group/" + group.Slug,
	})
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	err := h.Groups.DeleteGroup(c.Request.Context(), middleware.CurrentUser(c), c.Param("slug"))
	middleware.RecordMutation("delete_group", outcomeLabel(err), ServiceName)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, outcomeBody(services.Applied(), indexURL))
}
