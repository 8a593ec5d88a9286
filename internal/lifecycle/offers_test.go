package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestOffers(window time.Duration, n *recordingNotifier) *OfferManager {
	return NewOfferManager(window, n, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOfferTakeByOfferedDriver(t *testing.T) {
	n := newRecordingNotifier()
	om := newTestOffers(time.Minute, n)
	om.Propose(context.Background(), Offer{ID: "o1", RequesterID: "r1", DriverID: "d1"})

	if _, ok := om.Take("o1", "d2"); ok {
		t.Fatalf("offer taken by driver it was not proposed to")
	}
	got, ok := om.Take("o1", "d1")
	if !ok {
		t.Fatalf("offered driver could not take offer")
	}
	if got.RequesterID != "r1" {
		t.Fatalf("wrong offer returned: %+v", got)
	}
	if om.Pending("o1") {
		t.Fatalf("taken offer still pending")
	}
	if _, ok := om.Take("o1", "d1"); ok {
		t.Fatalf("offer taken twice")
	}
}

func TestOfferExpiryNotifiesRequester(t *testing.T) {
	n := newRecordingNotifier()
	om := newTestOffers(10*time.Millisecond, n)
	om.Propose(context.Background(), Offer{ID: "o1", RequesterID: "r1", DriverID: "d1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := n.last("r1"); ok && ev.Type == EventMatchTimeout {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	ev, ok := n.last("r1")
	if !ok || ev.Type != EventMatchTimeout {
		t.Fatalf("requester not told about timeout, got %+v ok=%v", ev, ok)
	}
	if om.Pending("o1") {
		t.Fatalf("expired offer still pending")
	}
	if _, ok := om.Take("o1", "d1"); ok {
		t.Fatalf("expired offer still takeable")
	}
}
