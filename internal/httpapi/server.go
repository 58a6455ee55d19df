package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tagwarden/server/internal/logger"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
	"github.com/tagwarden/server/internal/validation"
)

type Decider interface {
	Decide(ctx context.Context, scannerID, rawTokenUID string) (types.Decision, error)
}

type HeartbeatRecorder interface {
	Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error)
}

type Dependencies struct {
	Logger     *logger.Logger
	Addr       string
	Decider    Decider
	Heartbeats HeartbeatRecorder
	Health     store.Pinger
	// Metrics is served on /metrics when non-nil.
	Metrics prometheus.Gatherer
	Now     func() time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	decider    Decider
	heartbeats HeartbeatRecorder
	health     store.Pinger
	now        func() time.Time
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	s := &Server{
		logger:     d.Logger,
		decider:    d.Decider,
		heartbeats: d.Heartbeats,
		health:     d.Health,
		now:        d.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID(d.Logger))
	r.Use(Logging(d.Logger))
	r.Use(Recoverer(d.Logger))

	r.Get("/healthz", s.handleHealth)
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/access/check", s.handleAccessCheck)
		r.Post("/heartbeat", s.handleHeartbeat)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	proto := isProtobuf(r)

	var req types.AccessCheckRequest
	var err error
	if proto {
		var body []byte
		if body, err = readProtoBody(r); err == nil {
			req, err = decodeAccessRequest(body)
		}
	} else {
		err = validation.DecodeJSONBody(r, &req, maxRequestBody, validation.AllowUnknownFields())
	}

	var (
		status int
		resp   types.AccessCheckResponse
	)
	if err == nil {
		var d types.Decision
		d, err = s.decider.Decide(r.Context(), req.Scanner, req.Token)
		if err == nil {
			status, resp = accessResponse(d, s.now())
		}
	}
	if err != nil {
		status, resp = errorResponse(err, s.now())
	}

	if proto {
		writeProto(w, status, encodeAccessReply(resp))
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	proto := isProtobuf(r)

	var req types.HeartbeatRequest
	var err error
	if proto {
		var body []byte
		if body, err = readProtoBody(r); err == nil {
			req, err = decodeHeartbeat(body)
		}
		if err == nil {
			err = validation.Struct(&req)
		}
	} else {
		err = validation.DecodeJSONBody(r, &req, maxRequestBody, validation.AllowUnknownFields())
	}

	var resp types.HeartbeatResponse
	if err == nil {
		resp, err = s.heartbeats.Record(r.Context(), req)
	}
	if err != nil {
		status, body := errorResponse(err, s.now())
		if proto {
			writeProto(w, status, encodeAccessReply(body))
			return
		}
		writeJSON(w, status, body)
		return
	}

	if proto {
		writeProto(w, http.StatusOK, encodeHeartbeatReply(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Error(r.Context(), "health.ping_failed", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
