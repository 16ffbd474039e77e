package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/room-booking/internal/events"
	"github.com/iliyamo/room-booking/internal/model"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/repository/memory"
)

type recorder struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (r *recorder) Notify(_ context.Context, m events.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	svc    *Services
	notes  *recorder
	staff  policy.Principal
	member policy.Principal
	other  policy.Principal
}

var (
	ctx = context.Background()
	day = civil.Date{Year: 2024, Month: 5, Day: 17}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	notes := &recorder{}
	svc := New(memory.New(), notes)
	mk := func(name string, staff bool) policy.Principal {
		u, err := svc.Users.Create(ctx, UserInput{Username: name, Password: "pw", IsStaff: staff}, bcrypt.MinCost)
		require.NoError(t, err)
		return policy.Principal{UserID: u.ID, Role: policy.RoleOf(*u)}
	}
	return &fixture{
		svc:    svc,
		notes:  notes,
		staff:  mk("admin", true),
		member: mk("alice", false),
		other:  mk("bob", false),
	}
}

func (f *fixture) room(t *testing.T, capacity int) *model.Room {
	t.Helper()
	r, err := f.svc.Rooms.Create(ctx, f.staff, RoomInput{Name: "Room", Capacity: capacity})
	require.NoError(t, err)
	return r
}

func (f *fixture) event(t *testing.T, roomID uint64, date civil.Date, public bool) *model.Event {
	t.Helper()
	e, err := f.svc.Events.Create(ctx, f.staff, EventInput{Name: "Event", RoomID: roomID, Date: date, IsPublic: public})
	require.NoError(t, err)
	return e
}

func ptr[T any](v T) *T { return &v }

func TestRooms_WritesAreStaffOnly(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Rooms.Create(ctx, f.member, RoomInput{Name: "Nope", Capacity: 1})
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))
	_, err = f.svc.Rooms.Create(ctx, policy.Guest, RoomInput{Name: "Nope", Capacity: 1})
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))

	r := f.room(t, 3)
	rooms, err := f.svc.Rooms.List(ctx, policy.Guest)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	_, err = f.svc.Rooms.Create(ctx, f.staff, RoomInput{Name: "Bad", Capacity: -1})
	assert.True(t, errors.Is(err, model.ErrValidation))

	updated, err := f.svc.Rooms.Update(ctx, f.staff, r.ID, RoomPatch{Capacity: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, "Room", updated.Name)
	assert.Equal(t, 5, updated.Capacity)
}

func TestRooms_DeleteRequiresNoEvents(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 3)
	e := f.event(t, r.ID, day, true)

	err := f.svc.Rooms.Delete(ctx, f.staff, r.ID)
	assert.True(t, errors.Is(err, model.ErrHasDependents))
	assert.EqualError(t, err, "Room has events.")

	require.NoError(t, f.svc.Events.Delete(ctx, f.staff, e.ID))
	require.NoError(t, f.svc.Rooms.Delete(ctx, f.staff, r.ID))
	_, err = f.svc.Rooms.Get(ctx, f.staff, r.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestEvents_OnePerRoomAndDay(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 3)
	first := f.event(t, r.ID, day, true)

	_, err := f.svc.Events.Create(ctx, f.staff, EventInput{Name: "Second", RoomID: r.ID, Date: day})
	assert.True(t, errors.Is(err, model.ErrConflict))
	assert.EqualError(t, err, "Room has event on that day.")

	// saving the event itself is not a clash
	_, err = f.svc.Events.Update(ctx, f.staff, first.ID, EventPatch{Name: ptr("Renamed")})
	require.NoError(t, err)

	next := f.event(t, r.ID, day.AddDays(1), true)
	_, err = f.svc.Events.Update(ctx, f.staff, next.ID, EventPatch{Date: ptr(day)})
	assert.True(t, errors.Is(err, model.ErrConflict))

	_, err = f.svc.Events.Create(ctx, f.staff, EventInput{Name: "Lost", RoomID: 999, Date: day})
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.EqualError(t, err, `room: Invalid pk "999" - object does not exist.`)
}

func TestEvents_PrivateHiddenFromNonStaff(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 3)
	f.event(t, r.ID, day, true)
	private := f.event(t, r.ID, day.AddDays(1), false)

	for _, p := range []policy.Principal{policy.Guest, f.member} {
		list, err := f.svc.Events.List(ctx, p)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsPublic)

		_, err = f.svc.Events.Get(ctx, p, private.ID)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	}

	list, err := f.svc.Events.List(ctx, f.staff)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReservations_CapacityAndDuplicates(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 2)
	e := f.event(t, r.ID, day, true)

	res, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: e.ID})
	require.NoError(t, err)
	assert.Equal(t, f.member.UserID, res.UserID)

	_, err = f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: e.ID})
	assert.True(t, errors.Is(err, model.ErrConflict))
	assert.True(t, errors.Is(err, model.ErrDuplicate))

	_, err = f.svc.Reservations.Create(ctx, f.other, ReservationInput{EventID: e.ID})
	require.NoError(t, err)

	_, err = f.svc.Reservations.Create(ctx, f.staff, ReservationInput{EventID: e.ID})
	assert.True(t, errors.Is(err, model.ErrCapacityExceeded))
	assert.EqualError(t, err, "Room has no more capacity.")

	assert.Equal(t, []string{events.ReservationCreated, events.ReservationCreated}, f.notes.types())
}

func TestReservations_MembersOnlySeeAndBookTheirOwn(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 5)
	e := f.event(t, r.ID, day, true)

	_, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{UserID: f.other.UserID, EventID: e.ID})
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))

	mine, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: e.ID})
	require.NoError(t, err)
	theirs, err := f.svc.Reservations.Create(ctx, f.staff, ReservationInput{UserID: f.other.UserID, EventID: e.ID})
	require.NoError(t, err)

	list, err := f.svc.Reservations.List(ctx, f.member)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = f.svc.Reservations.Get(ctx, f.member, theirs.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(f.svc.Reservations.Delete(ctx, f.member, theirs.ID), model.ErrNotFound))

	_, err = f.svc.Reservations.Update(ctx, f.member, mine.ID, ReservationPatch{UserID: ptr(f.other.UserID)})
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))

	_, err = f.svc.Reservations.List(ctx, policy.Guest)
	assert.True(t, errors.Is(err, model.ErrPermissionDenied))

	all, err := f.svc.Reservations.List(ctx, f.staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReservations_PrivateEventIsNotBookableByMembers(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 5)
	private := f.event(t, r.ID, day, false)

	_, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: private.ID})
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = f.svc.Reservations.Create(ctx, f.staff, ReservationInput{UserID: f.member.UserID, EventID: private.ID})
	require.NoError(t, err)
}

func TestReservations_UpdateMovesBetweenEvents(t *testing.T) {
	f := newFixture(t)
	small := f.room(t, 1)
	big := f.room(t, 5)
	full := f.event(t, small.ID, day, true)
	open := f.event(t, big.ID, day, true)

	_, err := f.svc.Reservations.Create(ctx, f.other, ReservationInput{EventID: full.ID})
	require.NoError(t, err)
	mine, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: open.ID})
	require.NoError(t, err)

	_, err = f.svc.Reservations.Update(ctx, f.member, mine.ID, ReservationPatch{EventID: ptr(full.ID)})
	assert.True(t, errors.Is(err, model.ErrCapacityExceeded))

	// re-saving a reservation does not count against itself
	same, err := f.svc.Reservations.Update(ctx, f.member, mine.ID, ReservationPatch{EventID: ptr(open.ID)})
	require.NoError(t, err)
	assert.Equal(t, open.ID, same.EventID)
}

func TestEvents_DeleteCascadesAndNotifies(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 5)
	e := f.event(t, r.ID, day, true)
	res, err := f.svc.Reservations.Create(ctx, f.member, ReservationInput{EventID: e.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Events.Delete(ctx, f.staff, e.ID))
	_, err = f.svc.Reservations.Get(ctx, f.staff, res.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.Len(t, f.notes.msgs, 2)
	assert.Equal(t, events.EventDeleted, f.notes.msgs[1].Type)
	assert.Equal(t, 1, f.notes.msgs[1].Reservations)
}

func TestReservations_ConcurrentBookingsRespectCapacity(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 3)
	e := f.event(t, r.ID, day, true)

	var callers []policy.Principal
	for i := 0; i < 10; i++ {
		u, err := f.svc.Users.Create(ctx, UserInput{Username: "user" + string(rune('a'+i)), Password: "pw"}, bcrypt.MinCost)
		require.NoError(t, err)
		callers = append(callers, policy.Principal{UserID: u.ID, Role: policy.Member})
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for _, p := range callers {
		wg.Add(1)
		go func(p policy.Principal) {
			defer wg.Done()
			_, err := f.svc.Reservations.Create(ctx, p, ReservationInput{EventID: e.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrCapacityExceeded):
				full++
			}
		}(p)
	}
	wg.Wait()
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)
}

func TestUsers_CreateAndReadOnlyAccess(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Users.Create(ctx, UserInput{Username: "ALICE", Password: "pw"}, bcrypt.MinCost)
	assert.True(t, errors.Is(err, model.ErrConflict))
	_, err = f.svc.Users.Create(ctx, UserInput{Username: "carol"}, bcrypt.MinCost)
	assert.True(t, errors.Is(err, model.ErrValidation))

	users, err := f.svc.Users.List(ctx, policy.Guest)
	require.NoError(t, err)
	assert.Len(t, users, 3)
	u, err := f.svc.Users.Get(ctx, f.member, f.staff.UserID)
	require.NoError(t, err)
	assert.True(t, u.IsStaff)
}

func TestRooms_CapacityCannotDropBelowHeldReservations(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 2)
	e := f.event(t, r.ID, day, true)
	for _, p := range []policy.Principal{f.member, f.other} {
		_, err := f.svc.Reservations.Create(ctx, p, ReservationInput{EventID: e.ID})
		require.NoError(t, err)
	}

	_, err := f.svc.Rooms.Update(ctx, f.staff, r.ID, RoomPatch{Capacity: ptr(0)})
	assert.True(t, errors.Is(err, model.ErrCapacityExceeded))
	stored, err := f.svc.Rooms.Get(ctx, f.staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Capacity)

	_, err = f.svc.Rooms.Update(ctx, f.staff, r.ID, RoomPatch{Capacity: ptr(2)})
	require.NoError(t, err)
	_, err = f.svc.Rooms.Update(ctx, f.staff, r.ID, RoomPatch{Name: ptr("Renamed")})
	require.NoError(t, err)
}

func TestEvents_MoveNeedsRoomForHeldReservations(t *testing.T) {
	f := newFixture(t)
	r := f.room(t, 2)
	closet := f.room(t, 0)
	e := f.event(t, r.ID, day, true)
	for _, p := range []policy.Principal{f.member, f.other} {
		_, err := f.svc.Reservations.Create(ctx, p, ReservationInput{EventID: e.ID})
		require.NoError(t, err)
	}

	_, err := f.svc.Events.Update(ctx, f.staff, e.ID, EventPatch{RoomID: ptr(closet.ID)})
	assert.True(t, errors.Is(err, model.ErrCapacityExceeded))
	stored, err := f.svc.Events.Get(ctx, f.staff, e.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.RoomID)

	hall := f.room(t, 5)
	moved, err := f.svc.Events.Update(ctx, f.staff, e.ID, EventPatch{RoomID: ptr(hall.ID)})
	require.NoError(t, err)
	assert.Equal(t, hall.ID, moved.RoomID)
	held, err := f.svc.Reservations.List(ctx, f.staff)
	require.NoError(t, err)
	assert.Len(t, held, 2)
}
