package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/auth"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/config"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/queue"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/vectorstore"
	"github.com/runwhen-contrib/codecollection-registry-sub002/middleware"
	"github.com/runwhen-contrib/codecollection-registry-sub002/services"
	"github.com/runwhen-contrib/codecollection-registry-sub002/utils"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

type indexRequest struct {
	Collection string `json:"collection" binding:"required"`
	ID         string `json:"id" binding:"required"`
}

// SetupAdminRoutes exposes login plus the token-guarded operational
// endpoints: reindexing, snapshotting, and inventory export.
func SetupAdminRoutes(
	router *gin.Engine,
	cfg *config.Config,
	tokens *auth.Service,
	repo *registry.Repository,
	store *vectorstore.Store,
	tasks *asynq.Client,
) {
	exporter := services.NewInventoryExporter(repo)

	router.POST("/admin/login", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", nil)
			return
		}
		if !utils.CheckPassword(req.Password, cfg.AdminPasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid credentials")
			return
		}

		token, expiresAt, err := tokens.Issue(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt})
	})

	admin := router.Group("/admin")
	admin.Use(middleware.AdminAuth(tokens))

	admin.POST("/logout", func(c *gin.Context) {
		if jti := c.GetString("token_id"); jti != "" {
			if err := tokens.Revoke(c.Request.Context(), jti); err != nil {
				utils.RespondWithInternalError(c, "Failed to revoke token", nil)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})

	admin.POST("/reindex", func(c *gin.Context) {
		info, err := tasks.EnqueueContext(c.Request.Context(), queue.NewReindexTask())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue reindex", nil)
			return
		}
		logger.Info("reindex enqueued", "task_id", info.ID)
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})

	admin.POST("/index", func(c *gin.Context) {
		var req indexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", nil)
			return
		}
		task, err := queue.NewIndexDocumentTask(req.Collection, req.ID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid index request", nil)
			return
		}
		info, err := tasks.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue indexing", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})

	admin.POST("/snapshot", func(c *gin.Context) {
		if err := store.Save(); err != nil {
			utils.RespondWithInternalError(c, "Failed to save snapshot", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"collections": store.Collections(),
			"path":        cfg.SnapshotPath,
		})
	})

	admin.GET("/export", func(c *gin.Context) {
		data, filename, err := exporter.Export(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	})

	admin.POST("/crawl", func(c *gin.Context) {
		info, err := tasks.EnqueueContext(c.Request.Context(), queue.NewCrawlDocsTask())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue crawl", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})
}
