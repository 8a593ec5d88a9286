package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/ride-dispatch/internal/lifecycle"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/storage"
)

func (s *Server) handleProposeOffer(w http.ResponseWriter, r *http.Request) {
	var p lifecycle.ProposeParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offer, err := s.Controller.ProposeOffer(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

type actorRequest struct {
	DriverID string `json:"driver_id"`
	PartyID  string `json:"party_id"`
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DriverID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}
	ride, err := s.Controller.AcceptOffer(r.Context(), mux.Vars(r)["id"], body.DriverID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleDeclineOffer(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DriverID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}
	if err := s.Controller.DeclineOffer(r.Context(), mux.Vars(r)["id"], body.DriverID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PartyID == "" {
		http.Error(w, "party_id required", http.StatusBadRequest)
		return
	}
	ride, err := s.Controller.Complete(r.Context(), mux.Vars(r)["id"], body.PartyID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	var body actorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PartyID == "" {
		http.Error(w, "party_id required", http.StatusBadRequest)
		return
	}
	ride, err := s.Controller.Cancel(r.Context(), mux.Vars(r)["id"], body.PartyID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequesterID string  `json:"requester_id"`
		Rating      float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequesterID == "" {
		http.Error(w, "requester_id and rating required", http.StatusBadRequest)
		return
	}
	avg, err := s.Controller.SubmitRating(r.Context(), mux.Vars(r)["id"], body.RequesterID, body.Rating)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"driver_rating": avg})
}

func (s *Server) handleCurrentRide(w http.ResponseWriter, r *http.Request) {
	var (
		ride *models.Ride
		err  error
	)
	switch {
	case r.URL.Query().Get("driver_id") != "":
		ride, err = s.Controller.CurrentForDriver(r.Context(), r.URL.Query().Get("driver_id"))
	case r.URL.Query().Get("requester_id") != "":
		ride, err = s.Controller.CurrentForRequester(r.Context(), r.URL.Query().Get("requester_id"))
	default:
		http.Error(w, "driver_id or requester_id required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRideHistory(w http.ResponseWriter, r *http.Request) {
	var (
		rides []models.Ride
		err   error
	)
	switch {
	case r.URL.Query().Get("driver_id") != "":
		rides, err = s.Controller.HistoryForDriver(r.Context(), r.URL.Query().Get("driver_id"))
	case r.URL.Query().Get("requester_id") != "":
		rides, err = s.Controller.HistoryForRequester(r.Context(), r.URL.Query().Get("requester_id"))
	default:
		http.Error(w, "driver_id or requester_id required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (s *Server) handleNearbyDrivers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "latitude and longitude required", http.StatusBadRequest)
		return
	}
	radius := 0.0
	if v := q.Get("radius"); v != "" {
		radius, err1 = strconv.ParseFloat(v, 64)
		if err1 != nil {
			http.Error(w, "invalid radius", http.StatusBadRequest)
			return
		}
	}
	drivers, err := s.Matcher.FindWithin(r.Context(), models.Coord{Lat: lat, Lon: lon}, radius)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers})
}

func (s *Server) handleDriverProfiles(w http.ResponseWriter, r *http.Request) {
	raw := strings.Split(r.URL.Query().Get("ids"), ",")
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		http.Error(w, "ids required", http.StatusBadRequest)
		return
	}
	profiles, err := s.Accounts.FindDriversByIDs(r.Context(), ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drivers": profiles})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, lifecycle.ErrOfferNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrUnserviceableRoute):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, lifecycle.ErrActiveRideExists),
		errors.Is(err, lifecycle.ErrNotActive),
		errors.Is(err, lifecycle.ErrNotCompleted),
		errors.Is(err, lifecycle.ErrAlreadyRated):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, lifecycle.ErrNotParticipant):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrMissingField),
		errors.Is(err, lifecycle.ErrBadRating),
		errors.Is(err, matcher.ErrBadQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
