package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository/memory"
	"github.com/iliyamo/room-booking/internal/service"
	"github.com/iliyamo/room-booking/internal/utils"
)

const secret = "router-test-secret"

type api struct {
	t      *testing.T
	e      *echo.Echo
	staff  string
	member string
	other  string
	ids    map[string]uint64
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.New()
	svc := service.New(store, nil)
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}
	a := &api{
		t:   t,
		e:   New(Deps{Cfg: cfg, Store: store, Services: svc, Log: log}),
		ids: map[string]uint64{},
	}
	token := func(name string, staff bool) string {
		u, err := svc.Users.Create(context.Background(), service.UserInput{
			Username: name, FirstName: name, Password: name + "-pw", IsStaff: staff,
		}, bcrypt.MinCost)
		require.NoError(t, err)
		a.ids[name] = u.ID
		tok, err := utils.NewAccessToken(secret, u.ID, policy.RoleOf(*u).Claim(), 5)
		require.NoError(t, err)
		return tok.Token
	}
	a.staff = token("admin", true)
	a.member = token("alice", false)
	a.other = token("bob", false)
	return a
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// create posts body and returns the new record's id.
func (a *api) create(path, token string, body interface{}) uint64 {
	a.t.Helper()
	rec := a.do(http.MethodPost, path, token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID uint64 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func room(name string, capacity int) echo.Map { return echo.Map{"name": name, "capacity": capacity} }

func event(name string, roomID uint64, date string, public bool) echo.Map {
	return echo.Map{"name": name, "room": roomID, "date": date, "is_public": public}
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSecondEventSameRoomAndDay(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))

	rec := a.do(http.MethodPost, "/v1/events", a.staff, event("Clash", rid, "2024-05-17", true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Room has event on that day.", errorOf(t, rec))

	a.create("/v1/events", a.staff, event("Next day", rid, "2024-05-18", true))
}

func TestCapacityExceeded(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Tiny", 2))
	eid := a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))

	a.create("/v1/reservations", a.member, echo.Map{"event": eid})
	a.create("/v1/reservations", a.other, echo.Map{"event": eid})

	rec := a.do(http.MethodPost, "/v1/reservations", a.staff, echo.Map{"event": eid})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Room has no more capacity.", errorOf(t, rec))
}

func TestZeroCapacityRoomAcceptsNoReservation(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Closed", 0))
	eid := a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))

	rec := a.do(http.MethodPost, "/v1/reservations", a.member, echo.Map{"event": eid})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberReservesForThemselfOnce(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	eid := a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))

	rec := a.do(http.MethodPost, "/v1/reservations", a.member, echo.Map{"event": eid, "user": a.ids["alice"]})
	require.Equal(t, http.StatusCreated, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, a.ids["alice"], got["user"])
	assert.EqualValues(t, eid, got["event"])
	assert.Contains(t, got, "created_at")

	rec = a.do(http.MethodPost, "/v1/reservations", a.member, echo.Map{"event": eid})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The fields user, event must make a unique set.", errorOf(t, rec))

	rec = a.do(http.MethodPost, "/v1/reservations", a.member, echo.Map{"event": eid, "user": a.ids["bob"]})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoomDeletion(t *testing.T) {
	a := newAPI(t)
	busy := a.create("/v1/rooms", a.staff, room("Busy", 10))
	a.create("/v1/events", a.staff, event("Launch", busy, "2024-05-17", true))
	idle := a.create("/v1/rooms", a.staff, room("Idle", 10))

	rec := a.do(http.MethodDelete, fmt.Sprintf("/v1/rooms/%d", busy), a.staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Room has events.", errorOf(t, rec))

	path := fmt.Sprintf("/v1/rooms/%d", idle)
	rec = a.do(http.MethodDelete, path, a.staff, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, path, a.staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventDeletionRemovesReservations(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	eid := a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))
	resID := a.create("/v1/reservations", a.member, echo.Map{"event": eid})

	rec := a.do(http.MethodDelete, fmt.Sprintf("/v1/events/%d", eid), a.staff, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/reservations/%d", resID), a.staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/v1/reservations", a.staff, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEventListVisibility(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	a.create("/v1/events", a.staff, event("Open", rid, "2024-05-17", true))
	hidden := a.create("/v1/events", a.staff, event("Closed", rid, "2024-05-18", false))

	names := func(token string) []string {
		rec := a.do(http.MethodGet, "/v1/events", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		var out []string
		for _, e := range list {
			out = append(out, e.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Open"}, names(""))
	assert.Equal(t, []string{"Open"}, names(a.member))
	assert.Equal(t, []string{"Open", "Closed"}, names(a.staff))

	rec := a.do(http.MethodGet, fmt.Sprintf("/v1/events/%d", hidden), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberCannotCreateRoom(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/rooms", a.member, room("Mine", 3))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to perform this action.", errorOf(t, rec))

	rec = a.do(http.MethodPost, "/v1/rooms", "", room("Mine", 3))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoomUpdatePutAndPatch(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	path := fmt.Sprintf("/v1/rooms/%d", rid)

	rec := a.do(http.MethodPut, path, a.staff, echo.Map{"name": "Green"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "capacity: This field is required.", errorOf(t, rec))

	rec = a.do(http.MethodPatch, path, a.staff, echo.Map{"name": "Green"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"capacity":10`)
	assert.Contains(t, rec.Body.String(), `"name":"Green"`)

	rec = a.do(http.MethodPatch, path, a.staff, echo.Map{"capacity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))

	tests := []struct {
		name string
		path string
		body interface{}
		want string
	}{
		{"blank room name", "/v1/rooms", room("  ", 1), "name: This field may not be blank."},
		{"capacity past column", "/v1/rooms", room("Big", 4294967296), "capacity: Ensure this value is less than or equal to 4294967295."},
		{"bad date", "/v1/events", event("E", rid, "17/05/2024", true), "date: Date has wrong format. Use YYYY-MM-DD."},
		{"missing room", "/v1/events", echo.Map{"name": "E", "date": "2024-05-17"}, "room: This field is required."},
		{"unknown room", "/v1/events", event("E", 999, "2024-05-17", true), `room: Invalid pk "999" - object does not exist.`},
		{"missing event", "/v1/reservations", echo.Map{}, "event: This field is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, tt.path, a.staff, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorOf(t, rec))
		})
	}
}

func TestReservationsScopedToOwner(t *testing.T) {
	a := newAPI(t)
	rid := a.create("/v1/rooms", a.staff, room("Blue", 10))
	eid := a.create("/v1/events", a.staff, event("Launch", rid, "2024-05-17", true))
	mine := a.create("/v1/reservations", a.member, echo.Map{"event": eid})
	theirs := a.create("/v1/reservations", a.other, echo.Map{"event": eid})

	rec := a.do(http.MethodGet, "/v1/reservations", a.member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`[%d]`, mine), idsOf(t, rec))

	rec = a.do(http.MethodGet, fmt.Sprintf("/v1/reservations/%d", theirs), a.member, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/v1/reservations", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", mine), a.member, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func idsOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var list []struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	ids := make([]uint64, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	b, err := json.Marshal(ids)
	require.NoError(t, err)
	return string(b)
}

func TestUsersAreReadOnly(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "is_staff")

	rec = a.do(http.MethodPost, "/v1/users", a.staff, echo.Map{"username": "eve"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/rooms", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "Alice", "password": "alice-pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, policy.ClaimMember, login.User.Role)

	rec = a.do(http.MethodGet, "/v1/me", login.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	rec = a.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	// the old refresh token was rotated away
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/logout", login.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
