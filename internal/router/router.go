package router

import (
	"time"

	"PulseLoop/internal/config"
	"PulseLoop/internal/handler"
	"PulseLoop/internal/middleware"
	"PulseLoop/internal/model"
	"PulseLoop/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps 路由需要的全部处理器，由 main 组装
type Deps struct {
	Config config.Config
	Auth   *middleware.Authenticator
	Redis  *redis.Client // 可为 nil

	User         *handler.UserHandler
	Admin        *handler.AdminHandler
	Post         *handler.PostHandler
	Notification *handler.NotificationHandler
	Resource     *handler.ResourceHandler
	Blog         *handler.BlogHandler
	Invitation   *handler.InvitationHandler
	Broadcast    *handler.BroadcastHandler
	Chat         *handler.ChatHandler
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.MaxAge = 12 * time.Hour
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func InitRouter(d Deps) *gin.Engine {
	if d.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), cors.New(corsConfig(d.Config.CORSOrigins)))
	if d.Config.Storage.Driver == "local" {
		r.Static(storage.LocalURLPrefix, d.Config.Storage.UploadDir)
	}

	auth := d.Auth.Required()
	optional := d.Auth.Optional()
	limit := middleware.RateLimit(d.Config.RateLimit, d.Redis)
	publisher := middleware.RequireRole(model.RoleNurse, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	r.GET("/api/health", handler.Health)
	r.GET("/ws", auth, d.Notification.Socket)

	api := r.Group("/api")
	api.Use(limit)

	// 用户相关接口
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", d.User.Signup)
		authGroup.POST("/login", d.User.Login)
		authGroup.POST("/refresh", d.User.TokenRefresh)
		authGroup.POST("/forgot-password", d.User.SendResetCode)
		authGroup.POST("/reset-password", d.User.ResetPassword)
		authGroup.POST("/logout", auth, d.User.Logout)
		authGroup.POST("/change-password", auth, d.User.ChangePassword)
	}

	profile := api.Group("/profile", auth)
	{
		profile.GET("", d.User.Profile)
		profile.PUT("", d.User.UpdateProfile)
		profile.POST("/avatar", d.User.UploadAvatar)
	}
	api.GET("/users/:id/posts", optional, d.Post.ListUserPosts)

	// 帖子相关接口
	posts := api.Group("/posts")
	{
		posts.GET("", optional, d.Post.ListPosts)
		posts.GET("/:id", optional, d.Post.GetPost)
		posts.GET("/:id/comments", optional, d.Post.ListComments)
		posts.GET("/:id/discussion-analytics", d.Post.DiscussionAnalytics)
		posts.POST("", auth, publisher, d.Post.CreatePost)
		posts.PUT("/:id", auth, d.Post.UpdatePost)
		posts.DELETE("/:id", auth, d.Post.DeletePost)
		posts.POST("/:id/reactions", auth, d.Post.TogglePostReaction)
		posts.POST("/:id/comments", auth, d.Post.AddComment)
	}
	comments := api.Group("/comments", auth)
	{
		comments.DELETE("/:id", d.Post.DeleteComment)
		comments.POST("/:id/reactions", d.Post.ToggleCommentReaction)
	}
	api.GET("/trending-topics", d.Post.TrendingTopics)

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", d.Notification.List)
		notifications.GET("/unread-count", d.Notification.UnreadCount)
		notifications.PUT("/read-all", d.Notification.MarkAllRead)
		notifications.PUT("/:id/read", d.Notification.MarkRead)
	}

	resources := api.Group("/resources")
	{
		resources.GET("", d.Resource.List)
		resources.GET("/mine", auth, d.Resource.Mine)
		resources.GET("/:id", optional, d.Resource.Get)
		resources.POST("", auth, publisher, d.Resource.Create)
		resources.PUT("/:id", auth, d.Resource.Update)
		resources.DELETE("/:id", auth, d.Resource.Delete)
	}

	blogs := api.Group("/blogs")
	{
		blogs.GET("", d.Blog.List)
		blogs.GET("/mine", auth, d.Blog.Mine)
		blogs.GET("/:id", optional, d.Blog.Get)
		blogs.POST("", auth, publisher, d.Blog.Create)
		blogs.POST("/image", auth, publisher, d.Blog.UploadImage)
		blogs.PUT("/:id", auth, d.Blog.Update)
		blogs.DELETE("/:id", auth, d.Blog.Delete)
	}

	invitations := api.Group("/invitations")
	{
		invitations.GET("/validate/:token", d.Invitation.Validate)
		invitations.POST("", auth, publisher, d.Invitation.Create)
		invitations.GET("", auth, d.Invitation.ListSent)
		invitations.GET("/stats", auth, d.Invitation.Stats)
	}

	api.GET("/broadcast-messages/active", d.Broadcast.Active)
	api.POST("/ai/chat", auth, d.Chat.Chat)

	// 管理员接口
	adminGroup := api.Group("/admin", auth, admin)
	{
		adminGroup.GET("/pending-users", d.Admin.PendingUsers)
		adminGroup.GET("/users", d.Admin.Users)
		adminGroup.PUT("/approve-user/:id", d.Admin.ApproveUser)
		adminGroup.PUT("/users/:id/role", d.Admin.UpdateRole)
		adminGroup.PUT("/users/:id/expertise", d.Admin.SetExpertise)
		adminGroup.DELETE("/users/:id", d.Admin.DeleteUser)

		adminGroup.GET("/resources/pending", d.Resource.Pending)
		adminGroup.GET("/resources", d.Resource.All)
		adminGroup.GET("/blogs/pending", d.Blog.Pending)
		adminGroup.GET("/blogs", d.Blog.All)
		for _, dec := range []model.Decision{model.DecisionApprove, model.DecisionReject, model.DecisionDeactivate, model.DecisionActivate} {
			adminGroup.PUT("/"+string(dec)+"-resource/:id", d.Resource.Decide(dec))
			adminGroup.PUT("/"+string(dec)+"-blog/:id", d.Blog.Decide(dec))
		}

		adminGroup.GET("/broadcast-messages", d.Broadcast.List)
		adminGroup.POST("/broadcast-messages", d.Broadcast.Create)
		adminGroup.PUT("/broadcast-messages/:id", d.Broadcast.Update)
		adminGroup.DELETE("/broadcast-messages/:id", d.Broadcast.Delete)
	}

	return r
}
