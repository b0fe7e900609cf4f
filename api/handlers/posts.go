package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"blog/api/middleware"
	"blog/media"
	"blog/services"

	"github.com/gin-gonic/gin"
)

type postForm struct {
	Text  string `form:"text" json:"text"`
	Group *int64 `form:"group" json:"group"`
}

type commentForm struct {
	Text string `form:"text" json:"text"`
}

func (f postForm) values() gin.H {
	return gin.H{"text": f.Text, "group": f.Group}
}

// readPostForm разбирает json или multipart; картинка берется из поля image
func (h *Handler) readPostForm(c *gin.Context) (services.PostInput, postForm, error) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		return services.PostInput{}, form, &services.ValidationError{Fields: map[string]string{"form": err.Error()}}
	}
	in := services.PostInput{Text: form.Text, GroupID: form.Group}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return in, form, nil
	}
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, form, nil
	}
	if err != nil {
		return in, form, err
	}
	if h.MaxUpload > 0 && header.Size > h.MaxUpload {
		return in, form, &services.ValidationError{Fields: map[string]string{"image": "The uploaded file is too large."}}
	}
	f, err := header.Open()
	if err != nil {
		return in, form, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return in, form, err
	}
	in.Image = &media.Upload{Filename: header.Filename, Data: data}
	return in, form, nil
}

// Index - главная лента, GET /posts?page=
func (h *Handler) Index(c *gin.Context) {
	page, err := h.Feeds.GlobalFeed(c.Request.Context(), pageParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, page)
}

// NewPost - POST /new
func (h *Handler) NewPost(c *gin.Context) {
	in, form, err := h.readPostForm(c)
	if err != nil {
		middleware.RecordMutation("create_post", outcomeLabel(err), ServiceName)
		respondError(c, err, form.values())
		return
	}

	post, err := h.Posts.CreatePost(c.Request.Context(), middleware.CurrentUser(c), in)
	middleware.RecordMutation("create_post", outcomeLabel(err), ServiceName)
	if err != nil {
		respondError(c, err, form.values())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": services.StatusApplied, "post": post, "redirect": indexURL})
}

// PostView - GET /users/:username/posts/:post_id
func (h *Handler) PostView(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	view, err := h.Feeds.PostDetail(c.Request.Context(), c.Param("username"), postID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PostEdit - POST /users/:username/posts/:post_id/edit.
// Не автору ничего не меняем и отправляем на страницу поста.
func (h *Handler) PostEdit(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	username := c.Param("username")
	// владелец проверяется до разбора формы: не автору тело запроса не читаем
	_, outcome, err := h.Posts.EditablePost(c.Request.Context(), middleware.CurrentUser(c), username, postID)
	if err != nil {
		middleware.RecordMutation("edit_post", outcomeLabel(err), ServiceName)
		respondError(c, err, nil)
		return
	}
	if !outcome.IsApplied() {
		middleware.RecordMutation("edit_post", string(outcome.Status), ServiceName)
		c.JSON(http.StatusOK, outcomeBody(outcome, postURL(username, postID)))
		return
	}

	in, form, err := h.readPostForm(c)
	if err != nil {
		middleware.RecordMutation("edit_post", outcomeLabel(err), ServiceName)
		respondError(c, err, form.values())
		return
	}

	post, outcome, err := h.Posts.EditPost(c.Request.Context(), middleware.CurrentUser(c), username, postID, in)
	if err != nil {
		middleware.RecordMutation("edit_post", outcomeLabel(err), ServiceName)
		respondError(c, err, form.values())
		return
	}
	middleware.RecordMutation("edit_post", string(outcome.Status), ServiceName)
	body := outcomeBody(outcome, postURL(username, postID))
	if outcome.IsApplied() {
		body["post"] = post
	}
	c.JSON(http.StatusOK, body)
}

// PostDelete - DELETE /users/:username/posts/:post_id
func (h *Handler) PostDelete(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	username := c.Param("username")
	outcome, err := h.Posts.DeletePost(c.Request.Context(), middleware.CurrentUser(c), username, postID)
	if err != nil {
		middleware.RecordMutation("delete_post", outcomeLabel(err), ServiceName)
		respondError(c, err, nil)
		return
	}
	middleware.RecordMutation("delete_post", string(outcome.Status), ServiceName)
	redirect := profileURL(username)
	if !outcome.IsApplied() {
		redirect = postURL(username, postID)
	}
	c.JSON(http.StatusOK, outcomeBody(outcome, redirect))
}

// AddComment - POST /users/:username/posts/:post_id/comment
func (h *Handler) AddComment(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	username := c.Param("username")
	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	comment, err := h.Comments.CreateComment(c.Request.Context(), middleware.CurrentUser(c), username, postID,
		services.CommentInput{Text: form.Text})
	if err != nil {
		middleware.RecordMutation("create_comment", outcomeLabel(err), ServiceName)
		respondError(c, err, gin.H{"text": form.Text})
		return
	}
	middleware.RecordMutation("create_comment", outcomeLabel(nil), ServiceName)
	c.JSON(http.StatusCreated, gin.H{
		"status":   services.StatusApplied,
		"comment":  comment,
		"redirect": postURL(username, postID),
	})
}
