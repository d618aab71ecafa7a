package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shouni/vibe-wallpaper/internal/server/middleware"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	cors := middleware.DefaultCORSConfig()
	if len(s.cfg.AllowOrigins) > 0 {
		cors.AllowOrigins = s.cfg.AllowOrigins
	}
	r.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Logging(s.log),
		middleware.Metrics(s.metrics),
		middleware.CORS(cors),
	)

	r.GET("/", s.serveIndex)
	r.GET("/healthz", s.healthz)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.GET("/state", s.getState)
		api.GET("/events", s.streamEvents)
		api.GET("/aspect-ratios", s.listAspectRatios)
		api.GET("/help", s.getHelp)
		api.PUT("/prompt", s.putPrompt)
		api.PUT("/aspect-ratio", s.putAspectRatio)
		api.POST("/generate", s.generate)
		api.POST("/images/:id/select", s.selectImage)
		api.DELETE("/preview", s.closePreview)
		api.POST("/remix", s.remix)
		api.GET("/download", s.download)
	}
	return r
}
