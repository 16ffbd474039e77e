// Package memory is an in-process repository.Store. It keeps every table in
// maps guarded by one mutex, enforces the same keys and foreign keys as the
// MySQL schema and is used by the tests and by STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/repository"
)

type tables struct {
	nextID       map[string]uint64
	rooms        map[uint64]model.Room
	events       map[uint64]model.Event
	reservations map[uint64]model.Reservation
	users        map[uint64]model.User
	tokens       map[string]model.RefreshToken
}

func newTables() *tables {
	return &tables{
		nextID:       map[string]uint64{},
		rooms:        map[uint64]model.Room{},
		events:       map[uint64]model.Event{},
		reservations: map[uint64]model.Reservation{},
		users:        map[uint64]model.User{},
		tokens:       map[string]model.RefreshToken{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.nextID {
		c.nextID[k] = v
	}
	for k, v := range t.rooms {
		c.rooms[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.reservations {
		c.reservations[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.tokens {
		c.tokens[k] = v
	}
	return c
}

func (t *tables) id(table string) uint64 {
	t.nextID[table]++
	return t.nextID[table]
}

// Store is the in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *tables
	view
}

// New returns an empty store.
func New() *Store {
	s := &Store{data: newTables()}
	s.view = view{s: s}
	return s
}

// InTx runs fn against a private copy of the tables while holding the store
// lock, and publishes the copy only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(&view{s: s, tx: tx}); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) Close() error { return nil }

// view resolves the tables a call works on: the transaction's copy, or the
// committed tables under the store lock.
type view struct {
	s  *Store
	tx *tables
}

func (v *view) begin() (*tables, func()) {
	if v.tx != nil {
		return v.tx, func() {}
	}
	v.s.mu.Lock()
	return v.s.data, v.s.mu.Unlock
}

func (v *view) Rooms() repository.RoomQueries               { return rooms{v} }
func (v *view) Events() repository.EventQueries             { return events{v} }
func (v *view) Reservations() repository.ReservationQueries { return reservations{v} }
func (v *view) Users() repository.UserQueries               { return users{v} }
func (v *view) Tokens() repository.TokenQueries             { return tokens{v} }

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var (
	errConflict   = model.Errorf(model.ErrConflict, "The record conflicts with an existing one.")
	errMissingPK  = model.Errorf(model.ErrValidation, "Invalid pk - object does not exist.")
	errReferenced = model.Errorf(model.ErrHasDependents, "The record is still referenced by other records.")
)

type rooms struct{ v *view }

func (r rooms) List(ctx context.Context) ([]model.Room, error) {
	t, done := r.v.begin()
	defer done()
	out := []model.Room{}
	for _, id := range sortedKeys(t.rooms) {
		out = append(out, t.rooms[id])
	}
	return out, nil
}

func (r rooms) Get(ctx context.Context, id uint64) (*model.Room, error) {
	t, done := r.v.begin()
	defer done()
	room, ok := t.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

// GetForUpdate is Get; transactions already run one at a time.
func (r rooms) GetForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	return r.Get(ctx, id)
}

// GetForShare is Get; transactions already run one at a time.
func (r rooms) GetForShare(ctx context.Context, id uint64) (*model.Room, error) {
	return r.Get(ctx, id)
}

func (r rooms) Create(ctx context.Context, room *model.Room) error {
	t, done := r.v.begin()
	defer done()
	ts := now()
	room.ID = t.id("rooms")
	room.CreatedAt, room.UpdatedAt = ts, ts
	t.rooms[room.ID] = *room
	return nil
}

func (r rooms) Update(ctx context.Context, room *model.Room) error {
	t, done := r.v.begin()
	defer done()
	old, ok := t.rooms[room.ID]
	if !ok {
		return repository.ErrNotFound
	}
	room.CreatedAt = old.CreatedAt
	room.UpdatedAt = now()
	t.rooms[room.ID] = *room
	return nil
}

func (r rooms) Delete(ctx context.Context, id uint64) error {
	t, done := r.v.begin()
	defer done()
	if _, ok := t.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	for _, e := range t.events {
		if e.RoomID == id {
			return errReferenced
		}
	}
	delete(t.rooms, id)
	return nil
}

func (r rooms) CountEvents(ctx context.Context, roomID uint64) (int, error) {
	t, done := r.v.begin()
	defer done()
	n := 0
	for _, e := range t.events {
		if e.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (r rooms) MaxReservations(ctx context.Context, roomID uint64) (int, error) {
	t, done := r.v.begin()
	defer done()
	held := map[uint64]int{}
	most := 0
	for _, res := range t.reservations {
		if t.events[res.EventID].RoomID != roomID {
			continue
		}
		held[res.EventID]++
		if held[res.EventID] > most {
			most = held[res.EventID]
		}
	}
	return most, nil
}

type events struct{ v *view }

func (e events) List(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	t, done := e.v.begin()
	defer done()
	out := []model.Event{}
	for _, id := range sortedKeys(t.events) {
		ev := t.events[id]
		if f.PublicOnly && !ev.IsPublic {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (e events) Get(ctx context.Context, id uint64) (*model.Event, error) {
	t, done := e.v.begin()
	defer done()
	ev, ok := t.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ev, nil
}

// GetForUpdate is Get; transactions already run one at a time.
func (e events) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	return e.Get(ctx, id)
}

func (e events) ListOnDate(ctx context.Context, roomID uint64, date civil.Date) ([]model.Event, error) {
	t, done := e.v.begin()
	defer done()
	out := []model.Event{}
	for _, id := range sortedKeys(t.events) {
		ev := t.events[id]
		if ev.RoomID == roomID && ev.Date == date {
			out = append(out, ev)
		}
	}
	return out, nil
}

// check enforces the foreign key on room_id and UNIQUE (room_id, date).
func (e events) check(t *tables, ev *model.Event) error {
	if _, ok := t.rooms[ev.RoomID]; !ok {
		return errMissingPK
	}
	for id, other := range t.events {
		if id != ev.ID && other.RoomID == ev.RoomID && other.Date == ev.Date {
			return errConflict
		}
	}
	return nil
}

func (e events) Create(ctx context.Context, ev *model.Event) error {
	t, done := e.v.begin()
	defer done()
	ev.ID = 0
	if err := e.check(t, ev); err != nil {
		return err
	}
	ts := now()
	ev.ID = t.id("events")
	ev.CreatedAt, ev.UpdatedAt = ts, ts
	t.events[ev.ID] = *ev
	return nil
}

func (e events) Update(ctx context.Context, ev *model.Event) error {
	t, done := e.v.begin()
	defer done()
	old, ok := t.events[ev.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := e.check(t, ev); err != nil {
		return err
	}
	ev.CreatedAt = old.CreatedAt
	ev.UpdatedAt = now()
	t.events[ev.ID] = *ev
	return nil
}

// Delete removes the event and cascades to its reservations.
func (e events) Delete(ctx context.Context, id uint64) error {
	t, done := e.v.begin()
	defer done()
	if _, ok := t.events[id]; !ok {
		return repository.ErrNotFound
	}
	for rid, r := range t.reservations {
		if r.EventID == id {
			delete(t.reservations, rid)
		}
	}
	delete(t.events, id)
	return nil
}

type reservations struct{ v *view }

func (r reservations) filter(t *tables, keep func(model.Reservation) bool) []model.Reservation {
	out := []model.Reservation{}
	for _, id := range sortedKeys(t.reservations) {
		if res := t.reservations[id]; keep(res) {
			out = append(out, res)
		}
	}
	return out
}

func (r reservations) List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, error) {
	t, done := r.v.begin()
	defer done()
	return r.filter(t, func(res model.Reservation) bool {
		return f.UserID == 0 || res.UserID == f.UserID
	}), nil
}

func (r reservations) ListByEvent(ctx context.Context, eventID uint64) ([]model.Reservation, error) {
	t, done := r.v.begin()
	defer done()
	return r.filter(t, func(res model.Reservation) bool { return res.EventID == eventID }), nil
}

func (r reservations) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	t, done := r.v.begin()
	defer done()
	res, ok := t.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &res, nil
}

// check enforces the foreign keys and UNIQUE (user_id, event_id).
func (r reservations) check(t *tables, res *model.Reservation) error {
	if _, ok := t.users[res.UserID]; !ok {
		return errMissingPK
	}
	if _, ok := t.events[res.EventID]; !ok {
		return errMissingPK
	}
	for id, other := range t.reservations {
		if id != res.ID && other.UserID == res.UserID && other.EventID == res.EventID {
			return errConflict
		}
	}
	return nil
}

func (r reservations) Create(ctx context.Context, res *model.Reservation) error {
	t, done := r.v.begin()
	defer done()
	res.ID = 0
	if err := r.check(t, res); err != nil {
		return err
	}
	ts := now()
	res.ID = t.id("reservations")
	res.CreatedAt, res.UpdatedAt = ts, ts
	t.reservations[res.ID] = *res
	return nil
}

func (r reservations) Update(ctx context.Context, res *model.Reservation) error {
	t, done := r.v.begin()
	defer done()
	old, ok := t.reservations[res.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.check(t, res); err != nil {
		return err
	}
	res.CreatedAt = old.CreatedAt
	res.UpdatedAt = now()
	t.reservations[res.ID] = *res
	return nil
}

func (r reservations) Delete(ctx context.Context, id uint64) error {
	t, done := r.v.begin()
	defer done()
	if _, ok := t.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.reservations, id)
	return nil
}

type users struct{ v *view }

func (u users) List(ctx context.Context) ([]model.User, error) {
	t, done := u.v.begin()
	defer done()
	out := []model.User{}
	for _, id := range sortedKeys(t.users) {
		out = append(out, t.users[id])
	}
	return out, nil
}

func (u users) Get(ctx context.Context, id uint64) (*model.User, error) {
	t, done := u.v.begin()
	defer done()
	usr, ok := t.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &usr, nil
}

func (u users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	t, done := u.v.begin()
	defer done()
	username = strings.ToLower(strings.TrimSpace(username))
	for _, id := range sortedKeys(t.users) {
		if t.users[id].Username == username {
			usr := t.users[id]
			return &usr, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u users) Create(ctx context.Context, usr *model.User) error {
	t, done := u.v.begin()
	defer done()
	usr.Username = strings.ToLower(strings.TrimSpace(usr.Username))
	for _, other := range t.users {
		if other.Username == usr.Username {
			return errConflict
		}
	}
	ts := now()
	usr.ID = t.id("users")
	usr.CreatedAt, usr.UpdatedAt = ts, ts
	t.users[usr.ID] = *usr
	return nil
}

type tokens struct{ v *view }

func (k tokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	t, done := k.v.begin()
	defer done()
	if _, ok := t.users[userID]; !ok {
		return errMissingPK
	}
	if _, ok := t.tokens[tokenHash]; ok {
		return errConflict
	}
	t.tokens[tokenHash] = model.RefreshToken{
		ID:        t.id("refresh_tokens"),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: now(),
	}
	return nil
}

func (k tokens) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	t, done := k.v.begin()
	defer done()
	tok, ok := t.tokens[tokenHash]
	if !ok || tok.RevokedAt != nil || time.Now().UTC().After(tok.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return tok.UserID, nil
}

func (k tokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	t, done := k.v.begin()
	defer done()
	if tok, ok := t.tokens[tokenHash]; ok && tok.RevokedAt == nil {
		ts := now()
		tok.RevokedAt = &ts
		t.tokens[tokenHash] = tok
	}
	return nil
}

func (k tokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	t, done := k.v.begin()
	defer done()
	ts := now()
	for h, tok := range t.tokens {
		if tok.UserID == userID && tok.RevokedAt == nil {
			tok.RevokedAt = &ts
			t.tokens[h] = tok
		}
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
