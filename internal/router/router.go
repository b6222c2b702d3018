package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/config"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/handler"
)

// SetupRouter configures the gin engine and all API routes.
func SetupRouter(cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("selflab_session", store))

	api := handler.NewAPI(db.DB)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", api.Register)
		v1.POST("/auth/login", api.Login)
		v1.POST("/auth/logout", api.Logout)

		auth := v1.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/auth/me", api.Me)

			auth.POST("/experiments", api.CreateExperiment)
			auth.GET("/experiments", api.ListExperiments)
			auth.GET("/experiments/:id", api.GetExperiment)
			auth.PUT("/experiments/:id", api.UpdateExperiment)
			auth.DELETE("/experiments/:id", api.DeleteExperiment)

			auth.POST("/experiments/:id/fields", api.AddField)
			auth.PUT("/experiments/:id/fields/:fieldId", api.UpdateField)
			auth.DELETE("/experiments/:id/fields/:fieldId", api.DeleteField)

			auth.PUT("/experiments/:id/checkins", api.UpsertCheckIn)
			auth.GET("/experiments/:id/checkins", api.ListCheckIns)
			auth.GET("/experiments/:id/checkins/:checkinId", api.GetCheckIn)
			auth.PUT("/experiments/:id/checkins/:checkinId", api.UpdateCheckIn)
			auth.DELETE("/experiments/:id/checkins/:checkinId", api.DeleteCheckIn)

			auth.GET("/experiments/:id/insights/summary", api.GetInsightsSummary)
			auth.GET("/experiments/:id/insights/trends", api.GetInsightsTrends)
			auth.GET("/experiments/:id/review", api.GetReview)
			auth.GET("/experiments/:id/export", api.ExportCheckIns)

			auth.POST("/orgs", api.CreateOrg)
			auth.GET("/orgs/:orgId/overview", api.GetOrgOverview)
			auth.GET("/orgs/:orgId/members", api.ListOrgMembers)
			auth.POST("/orgs/:orgId/members", api.AddOrgMember)
			auth.PUT("/orgs/:orgId/members/:userId/role", api.UpdateOrgMemberRole)
			auth.DELETE("/orgs/:orgId/members/:userId", api.RemoveOrgMember)

			auth.GET("/admin/settings", api.GetSettings)
			auth.PUT("/admin/settings", api.UpdateSettings)
		}
	}

	return r
}
