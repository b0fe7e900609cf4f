package routes

import (
	"strings"

	"blog/api/handlers"
	"blog/api/middleware"
	"blog/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	// MediaRoot - каталог локального хранилища; пусто, если картинки не раздаются отсюда
	MediaRoot   string
	MediaPrefix string
}

// NewRouter собирает gin с общими middleware, API и служебными маршрутами
func NewRouter(h *handlers.Handler, auth *services.AuthService, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.PrometheusMiddleware(handlers.ServiceName),
		middleware.OptionalAuthMiddleware(auth),
		middleware.GinZapLogger(),
	)
	router.NoRoute(handlers.NotFound)
	router.NoMethod(handlers.NotFound)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.MediaRoot != "" {
		prefix := strings.TrimSuffix(opts.MediaPrefix, "/")
		if prefix == "" {
			prefix = "/media"
		}
		router.Static(prefix, opts.MediaRoot)
	}

	PublicApi(router, h)
	return router
}

func PublicApi(router *gin.Engine, h *handlers.Handler) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", h.Register)
		publicEndpoints.POST("auth/login", h.Login)

		publicEndpoints.GET("posts", h.Index)
		publicEndpoints.GET("groups", h.GroupList)
		publicEndpoints.GET("group/:slug", h.GroupPosts)
		publicEndpoints.GET("users/:username", h.Profile)
		publicEndpoints.GET("users/:username/posts/:post_id", h.PostView)
	}

	privateEndpoints := router.Group("/api/v1/", middleware.RequireUser())
	{
		privateEndpoints.POST("auth/logout", h.Logout)

		privateEndpoints.POST("new", h.NewPost)
		privateEndpoints.POST("users/:username/posts/:post_id/edit", h.PostEdit)
		privateEndpoints.DELETE("users/:username/posts/:post_id", h.PostDelete)
		privateEndpoints.POST("users/:username/posts/:post_id/comment", h.AddComment)

		// Подписки
		privateEndpoints.GET("follow", h.FollowIndex)
		privateEndpoints.POST("users/:username/follow", h.ProfileFollow)
		privateEndpoints.POST("users/:username/unfollow", h.ProfileUnfollow)

		privateEndpoints.POST("groups", h.CreateGroup)
		privateEndpoints.DELETE("groups/:slug", h.DeleteGroup)

		privateEndpoints.GET("ws/feed", h.WSFeed)
	}
	return publicEndpoints
}
