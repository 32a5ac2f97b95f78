package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/hub"
)

type createRoomRequest struct {
	GameType string `json:"gameType"`
}

type roomResponse struct {
	Code        string   `json:"code"`
	GameType    string   `json:"gameType"`
	Status      string   `json:"status,omitempty"`
	Round       int      `json:"round"`
	Players     []string `json:"players"`
	Connections int      `json:"connections"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// CreateRoom opens an empty room ahead of any join. The body may name a
// game type; without one the server default is used.
func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		rep, err := h.EnsureRoom(r.Context(), req.GameType, "")
		switch {
		case errors.Is(err, engine.ErrUnknownGame):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			log.Error("create room", zap.Error(err))
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, roomResponse{
			Code:     rep.Room.Code(),
			GameType: rep.Room.GameType(),
			Players:  []string{},
		})
	}
}

// ListRooms reports every open room. Rooms that close while being listed
// are left out.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.Rooms(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}

		out := make([]roomResponse, 0, len(rooms))
		for _, rm := range rooms {
			v, err := rm.View(r.Context())
			if err != nil {
				continue
			}
			players := v.Players
			if players == nil {
				players = []string{}
			}
			out = append(out, roomResponse{
				Code:        v.Code,
				GameType:    v.GameType,
				Status:      string(v.Status),
				Round:       v.Round,
				Players:     players,
				Connections: v.Conns,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
