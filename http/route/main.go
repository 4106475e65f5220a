package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/http/controller"
	middlewares "github.com/tnqbao/gau-file-hub/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	router := gin.Default()

	mw := middlewares.NewMiddlewares(ctrl.Config.EnvConfig, ctrl.Infra)
	router.Use(mw.CORS)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(mw.UserID, mw.RateLimit)
	{
		files := api.Group("/files")
		{
			files.POST("", ctrl.UploadFile)
			files.GET("", ctrl.ListFiles)
			files.GET("/types", ctrl.FileTypes)
			files.GET("/search", ctrl.SearchFiles)
			files.POST("/reindex", ctrl.ReindexAll)
			files.GET("/:id", ctrl.GetFile)
			files.GET("/:id/download", ctrl.DownloadFile)
			files.DELETE("/:id", ctrl.DeleteFile)
		}

		stats := api.Group("/stats")
		{
			stats.GET("/storage", ctrl.StorageStats)
			stats.GET("/deduplication", ctrl.DeduplicationStats)
			stats.GET("/index", ctrl.IndexStats)
		}
	}

	return router
}
