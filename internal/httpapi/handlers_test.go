package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/engine/enginetest"
	"github.com/DoyleJ11/tabletop/internal/hub"
	"github.com/DoyleJ11/tabletop/internal/room"
	"github.com/DoyleJ11/tabletop/internal/ws"
)

func newRouter(t *testing.T) (*hub.Hub, http.Handler) {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Options{
		Catalog:     engine.NewCatalog(enginetest.NewDuel(2)),
		DefaultGame: enginetest.GameName,
	})
	t.Cleanup(h.Shutdown)
	return h, SetupRoutes(h, ws.Options{}, zap.NewNop())
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	_, router := newRouter(t)
	rec := serve(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRoom(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "default game", body: "", wantStatus: http.StatusCreated},
		{name: "named game", body: `{"gameType":"duel"}`, wantStatus: http.StatusCreated},
		{name: "unknown game", body: `{"gameType":"chess"}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", body: `{"gameType"`, wantStatus: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, router := newRouter(t)
			rec := serve(router, http.MethodPost, "/rooms", tc.body)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantStatus != http.StatusCreated {
				return
			}

			var got roomResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got.Code, 6)
			assert.Equal(t, enginetest.GameName, got.GameType)
		})
	}
}

func TestListRooms(t *testing.T) {
	h, router := newRouter(t)

	rec := serve(router, http.MethodGet, "/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rep, err := h.EnsureRoom(context.Background(), "", "")
	require.NoError(t, err)
	_, err = rep.Room.Join(context.Background(), room.Join{Conn: enginetest.NewConn("a")})
	require.NoError(t, err)

	rec = serve(router, http.MethodGet, "/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []roomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, rep.Room.Code(), got[0].Code)
	assert.Equal(t, "waiting", got[0].Status)
	assert.Len(t, got[0].Players, 1)
	assert.Equal(t, 1, got[0].Connections)
}
