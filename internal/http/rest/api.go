package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/gunaso/config"
	deps "github.com/bwise1/gunaso/internal/debs"
	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/bwise1/gunaso/internal/metrics"
	"github.com/bwise1/gunaso/util/email"
	"github.com/bwise1/gunaso/util/storage"
	"github.com/bwise1/gunaso/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

// TrackingCache caches public tracking views.
type TrackingCache interface {
	SetTracking(ctx context.Context, trackingID string, v interface{}, ttl time.Duration) error
	GetTracking(ctx context.Context, trackingID string, v interface{}) (bool, error)
	InvalidateTracking(ctx context.Context, trackingID string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StatusPublisher pushes status events to live tracking subscribers.
type StatusPublisher interface {
	Publish(trackingID string, data interface{})
}

type API struct {
	Server     *http.Server
	Config     *config.Config
	Deps       *deps.Dependencies
	Mailer     *email.Mailer
	DB         *pgxpool.Pool
	Forwarding *forwarding.Engine
	Storage    storage.FileStore
	Cache      TrackingCache
	Limiter    RateLimiter
	Publisher  StatusPublisher
}

// Init copies the shared dependencies onto the API.
func (api *API) Init() {
	if api.Deps == nil {
		return
	}
	api.DB = api.Deps.Pool()
	api.Forwarding = api.Deps.Forwarding
	api.Storage = api.Deps.Storage
	api.Publisher = api.Deps.WebSocket
	if api.Deps.Cache != nil {
		api.Cache = api.Deps.Cache
		api.Limiter = api.Deps.Cache
	}
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(metrics.Instrument)
	mux.Use(RequestLogger)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	if api.Deps != nil && api.Deps.WebSocket != nil {
		mux.Get("/ws/track", api.Deps.WebSocket.HandleConnections)
	}

	mux.Group(func(r chi.Router) {
		r.Use(RequestTracing)
		r.Mount("/auth", api.AuthRoutes())
		r.Mount("/users", api.UserRoutes())
		r.Mount("/complaints", api.ComplaintRoutes())
		r.Mount("/projects", api.ProjectRoutes())
		r.Mount("/offices", api.OfficeRoutes())
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   api.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", values.HeaderRequestSource, values.HeaderRequestID, values.HeaderAccessKey},
		ExposedHeaders:   []string{values.HeaderRequestID},
		AllowCredentials: false,
	})

	return c.Handler(mux)
}

func (api *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
