package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openhrm/escalation-engine/pkg/config"
	"github.com/openhrm/escalation-engine/pkg/system"
	"github.com/openhrm/escalation-engine/pkg/version"
)

// APIController is implemented by anything that wants to mount routes
// under the shared /api group.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin    *gin.Engine
	config config.Config
}

// NewServer builds the HTTP server with logging, recovery and CORS (debug
// only) middleware. The metrics handler serves the Prometheus text
// exposition and is mounted outside the /api group.
func NewServer(log *zap.Logger, cfg config.Config,
	debug bool, metricsHandler http.Handler,
) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		system.RequestLogger(log.Sugar()),
	)

	if len(cfg.Server.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Server.TrustedProxies)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173", "127.0.0.1:8080"},
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	engine.NoRoute(apiNotFound)

	s := &Server{
		gin:    engine,
		config: cfg,
	}

	engine.GET("/healthz", s.getHealth)
	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}
	engine.GET("api/version", s.getVersion)

	return s
}

func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Listen() error {
	if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
		return s.gin.RunTLS(s.config.Server.ListenAddress, s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	}
	return s.gin.Run(s.config.Server.ListenAddress)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}

func apiNotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
			"path":  c.Request.URL.Path,
		})
		return
	}
	c.Status(http.StatusNotFound)
}
