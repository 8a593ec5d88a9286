package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"

	"sync"
)

// PositionSink receives a copy of every accepted position report, typically
// a Kafka producer. Optional and best-effort.
type PositionSink interface {
	PublishPosition(p models.DriverPosition) error
}

// Hub owns every open realtime session, demultiplexes inbound frames by
// their type/role discriminators and routes them to the registry and the
// matcher. A malformed frame is logged and dropped; it never tears down
// the channel or the process.
type Hub struct {
	Registry     registry.Registry
	Matcher      *matcher.Service
	Sink         PositionSink // optional
	SearchRadius float64      // meters, for requestRide queries
	Logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[sessionKey]*Session
}

// sessionKey separates a driver's channel from a requester's even when the
// two parties share an id.
type sessionKey struct {
	role string
	id   string
}

func NewHub(reg registry.Registry, m *matcher.Service, radius float64, logger *slog.Logger) *Hub {
	return &Hub{
		Registry:     reg,
		Matcher:      m,
		SearchRadius: radius,
		Logger:       logger,
		sessions:     make(map[sessionKey]*Session),
	}
}

// Attach registers a freshly upgraded connection. A second connection for
// the same party replaces the first.
func (h *Hub) Attach(role, id string, conn Conn) *Session {
	s := &Session{Role: role, ID: id, conn: conn}
	key := sessionKey{role: role, id: id}
	h.mu.Lock()
	old := h.sessions[key]
	h.sessions[key] = s
	h.mu.Unlock()
	if old != nil {
		_ = old.conn.Close()
	} else {
		observability.SessionsOpen.WithLabelValues(role).Inc()
	}
	return s
}

// Run reads frames until the connection fails, then detaches the session.
// A closing driver loses its registry entry.
func (h *Hub) Run(ctx context.Context, s *Session) {
	defer h.detach(ctx, s)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			h.Logger.Info("session closed", "role", s.Role, "id", s.ID, "error", err)
			return
		}
		h.handleMessage(ctx, s, data)
	}
}

func (h *Hub) detach(ctx context.Context, s *Session) {
	key := sessionKey{role: s.Role, id: s.ID}
	h.mu.Lock()
	if h.sessions[key] == s {
		delete(h.sessions, key)
		observability.SessionsOpen.WithLabelValues(s.Role).Dec()
	}
	h.mu.Unlock()
	_ = s.conn.Close()
	if s.Role == models.RoleDriver {
		if err := h.Registry.Remove(ctx, s.ID); err != nil {
			h.Logger.Warn("registry remove failed", "driver_id", s.ID, "error", err)
		}
	}
}

// Notify pushes a payload to a connected party. The notifier port
// addresses parties by id alone, so the payload goes to every role the
// party has a channel open for. Returns ErrNoSession when none is open so
// a fallback transport can take over.
func (h *Hub) Notify(_ context.Context, partyID string, payload any) error {
	h.mu.RLock()
	targets := make([]*Session, 0, 2)
	for _, role := range []string{models.RoleDriver, models.RoleRequester} {
		if s, ok := h.sessions[sessionKey{role: role, id: partyID}]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return ErrNoSession
	}
	var lastErr error
	delivered := false
	for _, s := range targets {
		if err := s.Send(payload); err != nil {
			h.Logger.Warn("ws send failed", "role", s.Role, "id", partyID, "error", err)
			lastErr = err
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return lastErr
}

func (h *Hub) handleMessage(ctx context.Context, s *Session, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" || env.Role == "" {
		h.drop(s, "unparseable envelope", err)
		return
	}
	switch env.Type {
	case models.MsgLocationUpdate:
		if env.Role != models.RoleDriver || s.Role != models.RoleDriver {
			h.drop(s, "locationUpdate from non-driver", nil)
			return
		}
		var msg models.LocationUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			h.drop(s, "bad locationUpdate payload", err)
			return
		}
		// the session owns its identity; a mismatched driver field is noise
		if msg.Driver != "" && msg.Driver != s.ID {
			h.drop(s, "driver id mismatch", nil)
			return
		}
		if err := h.Registry.Report(ctx, s.ID, msg.Data); err != nil {
			h.drop(s, "rejected position", err)
			return
		}
		if h.Sink != nil {
			if err := h.Sink.PublishPosition(models.DriverPosition{DriverID: s.ID, Loc: msg.Data}); err != nil {
				h.Logger.Warn("position publish failed", "driver_id", s.ID, "error", err)
			}
		}

	case models.MsgRequestRide:
		if env.Role != models.RoleRequester || s.Role != models.RoleRequester {
			h.drop(s, "requestRide from non-requester", nil)
			return
		}
		var msg models.RideQuery
		if err := json.Unmarshal(data, &msg); err != nil {
			h.drop(s, "bad requestRide payload", err)
			return
		}
		drivers, err := h.Matcher.FindWithin(ctx, models.Coord{Lat: msg.Lat, Lon: msg.Lon}, h.SearchRadius)
		if err != nil {
			h.drop(s, "proximity query failed", err)
			return
		}
		reply := models.NearbyDriversReply{Type: models.MsgNearbyDrivers, Drivers: make([]models.NearbyDriver, 0, len(drivers))}
		for _, d := range drivers {
			reply.Drivers = append(reply.Drivers, models.NearbyDriver{ID: d.DriverID, Lat: d.Loc.Lat, Lon: d.Loc.Lon})
		}
		if err := s.Send(reply); err != nil {
			h.Logger.Warn("reply failed", "id", s.ID, "error", err)
		}

	case models.MsgGetDriverLocation:
		if env.Role != models.RoleRequester || s.Role != models.RoleRequester {
			h.drop(s, "getDriverLocation from non-requester", nil)
			return
		}
		var msg models.DriverLocationQuery
		if err := json.Unmarshal(data, &msg); err != nil || msg.DriverID == "" {
			h.drop(s, "bad getDriverLocation payload", err)
			return
		}
		reply := models.DriverLiveLocationReply{Type: models.MsgDriverLiveLocation, DriverID: msg.DriverID}
		if p, ok, err := h.Registry.Lookup(ctx, msg.DriverID); err == nil && ok {
			loc := p.Loc
			reply.Location = &loc
		}
		if err := s.Send(reply); err != nil {
			h.Logger.Warn("reply failed", "id", s.ID, "error", err)
		}

	default:
		h.drop(s, "unknown message type "+env.Type, nil)
	}
}

func (h *Hub) drop(s *Session, reason string, err error) {
	observability.MessagesDropped.Inc()
	h.Logger.Warn("message dropped", "role", s.Role, "id", s.ID, "reason", reason, "error", err)
}
