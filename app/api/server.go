package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware so a local UI on another port can call the endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	a := r.Group("/a")
	{
		a.GET("/feeds", handler.ListFeeds)
		a.GET("/media/file/:feed_id/:media_id", handler.GetMediaFile)
		a.GET("/media/preview/:feed_id/:media_id", handler.GetMediaPreview)
		a.GET("/zip/:file/*path", handler.GetZipEntry)
		a.GET("/state", handler.GetState)
		a.POST("/scan", handler.StartScan)
		a.POST("/generate_thumbnails", handler.StartGenerateThumbnails)
		a.POST("/clean", handler.Clean)
		a.POST("/set_data_dir", handler.SetDataDir)
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/", handler.GetRoot)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
