// Package web 看板的 HTTP 接口
package web

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RentalDashboard/src/config"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/storage"
)

// Reloader 从磁盘重新加载数据
type Reloader interface {
	Reload(source string) error
}

// Server 处理看板请求；数据只从 Store 读取
type Server struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	span     dataset.Span
	store    *dataset.Store
	reloader Reloader
	logger   *storage.Logger
}

func NewServer(cfg *config.Config, dcfg *config.DataConfig, store *dataset.Store, reloader Reloader, logger *storage.Logger) (*Server, error) {
	span, err := cfg.Span()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		dcfg:     dcfg,
		span:     span,
		store:    store,
		reloader: reloader,
		logger:   logger,
	}, nil
}

// Router 注册全部路由
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger), CORS())

	r.GET("/health", s.Health)
	r.GET("/logs", s.StreamLogs)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/meta", s.Meta)
		api.GET("/panels/:panel", s.GetPanel)
		api.GET("/dashboard", s.GetDashboard)
		api.GET("/export", s.Export)
		api.POST("/reload", s.Reload)
	}

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, "接口不存在: "+c.Request.URL.Path)
	})
	return r
}
