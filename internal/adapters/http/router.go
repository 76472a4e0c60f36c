package http

import (
	"context"

	"github.com/dkeye/Discuss/internal/adapters/metrics"
	"github.com/dkeye/Discuss/internal/adapters/rtc"
	"github.com/dkeye/Discuss/internal/adapters/signal"
	"github.com/dkeye/Discuss/internal/app/orch"
	"github.com/dkeye/Discuss/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const clientTokenKey = "ct"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a per-browser token in the session cookie. It
// only labels logs; connection ids are assigned per socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SignalSettings(cfg *config.Config) signal.Settings {
	return signal.Settings{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
		RateLimit:    rate.Limit(cfg.RateLimit),
		RateBurst:    cfg.RateBurst,
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, reg *prometheus.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("DiscussSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &Handlers{
		Orch: o,
		ICE:  rtc.NewClientConfig(rtc.NewWebRTCConfig(cfg.ICEServers)),
	}
	r.GET("/healthz", h.Health)
	if reg != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
	}

	api := r.Group("/api")
	api.GET("/topic", h.FetchTopic)
	api.GET("/start-discussion", h.StartDiscussion)
	api.POST("/start-discussion", h.StartDiscussion)
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id", h.RoomMembers)
	api.GET("/ice-servers", h.ICEServers)

	ctrl := signal.NewSignalWSController(o, SignalSettings(cfg))
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
