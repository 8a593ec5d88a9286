package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/registry"
)

type fakeConn struct {
	in chan []byte

	mu     sync.Mutex
	sent   []any
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{in: make(chan []byte, 16)} }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-f.in
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, b, nil
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.in)
	}
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeConn) lastSent() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func testHub(reg *registry.Memory) *Hub {
	m := &matcher.Service{Registry: reg, DefaultRadius: 1000}
	return NewHub(reg, m, 500, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func runSession(t *testing.T, h *Hub, role, id string, conn *fakeConn) chan struct{} {
	t.Helper()
	s := h.Attach(role, id, conn)
	done := make(chan struct{})
	go func() {
		h.Run(context.Background(), s)
		close(done)
	}()
	return done
}

func frame(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func locationFrame(t *testing.T, driver string, lat, lon float64) []byte {
	return frame(t, map[string]any{
		"type": "locationUpdate", "role": "driver", "driver": driver,
		"data": map[string]float64{"latitude": lat, "longitude": lon},
	})
}

func TestLocationUpdateFlowsToRegistry(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleDriver, "d1", conn)

	conn.in <- locationFrame(t, "d1", 12.900, 77.500)
	waitFor(t, func() bool {
		p, ok, _ := reg.Lookup(context.Background(), "d1")
		return ok && p.Loc.Lat == 12.900
	})

	_ = conn.Close()
	<-done
}

func TestMalformedMessagesAreDroppedNotFatal(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleDriver, "d1", conn)

	conn.in <- []byte("{not json")
	conn.in <- frame(t, map[string]any{"latitude": 1.0}) // missing type/role
	conn.in <- locationFrame(t, "d1", 95.0, 77.5) // out-of-range latitude
	conn.in <- locationFrame(t, "d1", 12.901, 77.499)

	// the channel survived all the garbage and the good report landed
	waitFor(t, func() bool {
		p, ok, _ := reg.Lookup(context.Background(), "d1")
		return ok && p.Loc.Lat == 12.901
	})

	_ = conn.Close()
	<-done
}

func TestRequestRideRepliesNearbyDrivers(t *testing.T) {
	reg := registry.NewMemory()
	_ = reg.Report(context.Background(), "d1", models.Coord{Lat: 12.900, Lon: 77.500})
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleRequester, "u1", conn)

	conn.in <- frame(t, map[string]any{
		"type": "requestRide", "role": "requester",
		"latitude": 12.901, "longitude": 77.499,
	})
	waitFor(t, func() bool { return conn.sentCount() == 1 })

	reply, ok := conn.lastSent().(models.NearbyDriversReply)
	if !ok {
		t.Fatalf("unexpected reply %T", conn.lastSent())
	}
	if reply.Type != models.MsgNearbyDrivers || len(reply.Drivers) != 1 || reply.Drivers[0].ID != "d1" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	// the wire shape carries flat per-driver coordinate keys
	b, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	var wire struct {
		Type    string `json:"type"`
		Drivers []map[string]any
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	d := wire.Drivers[0]
	if d["id"] != "d1" {
		t.Fatalf("wire id = %v", d["id"])
	}
	if _, ok := d["latitude"]; !ok {
		t.Fatalf("wire driver missing flat latitude key: %s", b)
	}
	if _, ok := d["longitude"]; !ok {
		t.Fatalf("wire driver missing flat longitude key: %s", b)
	}
	if _, ok := d["location"]; ok {
		t.Fatalf("wire driver must not nest coordinates: %s", b)
	}

	_ = conn.Close()
	<-done
}

func TestGetDriverLocationAbsentDriver(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleRequester, "u1", conn)

	conn.in <- frame(t, map[string]any{
		"type": "getDriverLocation", "role": "requester", "driverId": "ghost",
	})
	waitFor(t, func() bool { return conn.sentCount() == 1 })

	reply, ok := conn.lastSent().(models.DriverLiveLocationReply)
	if !ok {
		t.Fatalf("unexpected reply %T", conn.lastSent())
	}
	if reply.Location != nil {
		t.Fatalf("expected absent location, got %+v", reply.Location)
	}

	_ = conn.Close()
	<-done
}

func TestDriverDisconnectRemovesRegistryEntry(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleDriver, "d1", conn)

	conn.in <- locationFrame(t, "d1", 12.9, 77.5)
	waitFor(t, func() bool {
		_, ok, _ := reg.Lookup(context.Background(), "d1")
		return ok
	})

	_ = conn.Close()
	<-done
	if _, ok, _ := reg.Lookup(context.Background(), "d1"); ok {
		t.Fatal("registry entry should be gone after disconnect")
	}
}

func TestRoleMismatchDropped(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	conn := newFakeConn()
	done := runSession(t, h, models.RoleRequester, "u1", conn)

	// a requester session claiming the driver role gets dropped
	conn.in <- locationFrame(t, "u1", 12.9, 77.5)
	conn.in <- frame(t, map[string]any{
		"type": "getDriverLocation", "role": "requester", "driverId": "u1",
	})
	waitFor(t, func() bool { return conn.sentCount() == 1 })
	if _, ok, _ := reg.Lookup(context.Background(), "u1"); ok {
		t.Fatal("location update from requester session must not register")
	}

	_ = conn.Close()
	<-done
}

func TestNotifyNoSession(t *testing.T) {
	h := testHub(registry.NewMemory())
	if err := h.Notify(context.Background(), "nobody", "hello"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestDriverAndRequesterMaySharePartyID(t *testing.T) {
	reg := registry.NewMemory()
	h := testHub(reg)
	dconn := newFakeConn()
	rconn := newFakeConn()
	ddone := runSession(t, h, models.RoleDriver, "p1", dconn)
	rdone := runSession(t, h, models.RoleRequester, "p1", rconn)

	// neither attach evicted the other
	if dconn.isClosed() || rconn.isClosed() {
		t.Fatal("sessions with the same id but different roles must coexist")
	}

	dconn.in <- locationFrame(t, "p1", 12.9, 77.5)
	waitFor(t, func() bool {
		_, ok, _ := reg.Lookup(context.Background(), "p1")
		return ok
	})

	// a notify addressed by party id reaches both open channels
	if err := h.Notify(context.Background(), "p1", map[string]string{"type": "rideCreated"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if dconn.sentCount() != 1 || rconn.sentCount() != 1 {
		t.Fatalf("expected delivery on both channels, got driver=%d requester=%d", dconn.sentCount(), rconn.sentCount())
	}

	// requester hanging up must not disturb the driver's registry entry
	_ = rconn.Close()
	<-rdone
	if _, ok, _ := reg.Lookup(context.Background(), "p1"); !ok {
		t.Fatal("requester disconnect removed the driver's position")
	}

	_ = dconn.Close()
	<-ddone
	if _, ok, _ := reg.Lookup(context.Background(), "p1"); ok {
		t.Fatal("driver disconnect should remove the position")
	}
}

func TestNotifyDeliversToSession(t *testing.T) {
	h := testHub(registry.NewMemory())
	conn := newFakeConn()
	done := runSession(t, h, models.RoleRequester, "u1", conn)

	if err := h.Notify(context.Background(), "u1", map[string]string{"type": "matchTimeout"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if conn.sentCount() != 1 {
		t.Fatalf("expected one delivery, got %d", conn.sentCount())
	}

	_ = conn.Close()
	<-done
}
