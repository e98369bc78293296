package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/config"
	"stage-planner/internal/api/handler"
	"stage-planner/internal/api/middleware"
	"stage-planner/internal/model"
	"stage-planner/internal/service"
	"stage-planner/pkg/jwt"
)

// Deps 路由依赖
type Deps struct {
	Config   *config.Config
	Handler  *handler.Handler
	JWT      *jwt.Manager
	Checker  middleware.TokenChecker // nil 时不检查黑名单
	Profiles service.ProfileService
	DB       *gorm.DB // 健康检查，可为 nil
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := d.Handler

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(d.Config.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(d.Config.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := d.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	jwtAuth := middleware.JWTAuth(d.JWT, d.Checker, d.Logger)
	profileCtx := middleware.ProfileContext(d.Profiles, d.Logger)
	regisseurOnly := middleware.RoleAuth(model.RoleRegisseur)
	intermittentOnly := middleware.RoleAuth(model.RoleIntermittent)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 通知流：EventSource 无法设置请求头，允许 ?access_token=
		v1.GET("/notifications/stream", middleware.QueryToken(), jwtAuth, h.Notification.Stream)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(jwtAuth)
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/session", h.Auth.Session)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 通知模块（只需 user_id）
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}

		// 需要身份上下文的路由
		actor := v1.Group("")
		actor.Use(jwtAuth, profileCtx)
		{
			// 档案模块
			actor.GET("/profiles/me", h.Profile.GetMe)
			actor.PUT("/profiles/me", h.Profile.UpdateMe)
			actor.GET("/intermittents", regisseurOnly, h.Profile.SearchIntermittents)

			// 活动模块
			events := actor.Group("/events")
			{
				events.GET("", regisseurOnly, h.Event.ListEvents)
				events.POST("", regisseurOnly, h.Event.CreateEvent)
				events.GET("/:id", h.Event.GetEvent)
				events.PUT("/:id", regisseurOnly, h.Event.UpdateEvent)
				events.DELETE("/:id", regisseurOnly, h.Event.DeleteEvent)
				events.POST("/:id/duplicate", regisseurOnly, h.Event.DuplicateEvent)
				events.PUT("/:id/planning", regisseurOnly, h.Event.SavePlanning)
				events.PUT("/:id/information", regisseurOnly, h.Event.SaveInformation)
				events.GET("/:id/feuille-de-route", h.Export.FeuilleDeRoute)

				// 分配与团队确认
				events.POST("/:id/assignments", regisseurOnly, h.Assignment.Assign)
				events.GET("/:id/candidates", h.Assignment.Candidates)
				events.GET("/:id/team", regisseurOnly, h.Assignment.TeamBoard)
				events.GET("/:id/team/export", regisseurOnly, h.Export.Team)
				events.POST("/:id/team/validate", regisseurOnly, h.Assignment.ValidateTeam)
				events.POST("/:id/team/:assignmentId/cycle", regisseurOnly, h.Assignment.CycleSelection)
			}

			assignments := actor.Group("/assignments")
			{
				assignments.DELETE("/:id", regisseurOnly, h.Assignment.Unassign)
				assignments.POST("/:id/respond", intermittentOnly, h.Assignment.Respond)
				assignments.GET("/:id/responses", h.Assignment.History)
			}

			// intermittent 个人视图
			me := actor.Group("/me", intermittentOnly)
			{
				me.GET("/assignments", h.Assignment.MyAssignments)
				me.GET("/calendar.ics", h.Assignment.MyCalendar)
			}

			// 替换申请模块
			replacements := actor.Group("/replacements")
			{
				replacements.GET("", h.Replacement.List)
				replacements.POST("", intermittentOnly, h.Replacement.Submit)
				replacements.GET("/:id", h.Replacement.Get)
				replacements.POST("/:id/review", regisseurOnly, h.Replacement.Review)
				replacements.POST("/:id/cancel", intermittentOnly, h.Replacement.Cancel)
			}
		}
	}

	return r
}
