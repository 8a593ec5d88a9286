package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/accounts"
	"github.com/example/ride-dispatch/internal/lifecycle"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/ws"
)

// Server exposes the realtime channel endpoints and the ride lifecycle
// REST surface on one router.
type Server struct {
	Hub        *ws.Hub
	Matcher    *matcher.Service
	Controller *lifecycle.Controller
	Accounts   accounts.Store

	mux    *mux.Router
	logger *slog.Logger
	ready  func() error
}

// NewServer wires the router. ready is an optional readiness probe
// (backend connectivity); nil means always ready.
func NewServer(hub *ws.Hub, m *matcher.Service, ctl *lifecycle.Controller, acc accounts.Store,
	logger *slog.Logger, ready func() error) *Server {
	s := &Server{
		Hub:        hub,
		Matcher:    m,
		Controller: ctl,
		Accounts:   acc,
		mux:        mux.NewRouter(),
		logger:     logger,
		ready:      ready,
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws/driver/{id}", s.handleWS("driver")).Methods("GET")
	s.mux.HandleFunc("/ws/requester/{id}", s.handleWS("requester")).Methods("GET")

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/offers", s.handleProposeOffer).Methods("POST")
	api.HandleFunc("/offers/{id}/accept", s.handleAcceptOffer).Methods("POST")
	api.HandleFunc("/offers/{id}/decline", s.handleDeclineOffer).Methods("POST")
	api.HandleFunc("/rides/{id}/complete", s.handleCompleteRide).Methods("POST")
	api.HandleFunc("/rides/{id}/cancel", s.handleCancelRide).Methods("POST")
	api.HandleFunc("/rides/{id}/rating", s.handleSubmitRating).Methods("POST")
	api.HandleFunc("/rides/current", s.handleCurrentRide).Methods("GET")
	api.HandleFunc("/rides/history", s.handleRideHistory).Methods("GET")
	api.HandleFunc("/drivers/nearby", s.handleNearbyDrivers).Methods("GET")
	api.HandleFunc("/drivers", s.handleDriverProfiles).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			if err := s.ready(); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("ws upgrade failed", "role", role, "id", id, "error", err)
			return
		}
		sess := s.Hub.Attach(role, id, conn)
		s.Hub.Run(r.Context(), sess)
	}
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
