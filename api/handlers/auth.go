package handlers

import (
	"errors"
	"net/http"

	"blog/api/middleware"
	"blog/services"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type LoginResponse struct {
	Status   string `json:"status"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Redirect string `json:"redirect"`
}

// Register создает аккаунт
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, gin.H{
			"username":   req.Username,
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "applied", "user": user, "redirect": middleware.LoginPath})
}

// Login выдает токен. После входа клиент идет на ?next=, иначе на главную.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, user, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}

	redirect := c.Query("next")
	if redirect == "" || redirect[0] != '/' {
		redirect = indexURL
	}
	c.JSON(http.StatusOK, LoginResponse{
		Status:   "ok",
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
		Redirect: redirect,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}
