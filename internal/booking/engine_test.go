package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabanka/branch-appointments/internal/model"
)

// fakeDirectory serves branches from a map.
type fakeDirectory struct {
	branches map[uint64]model.Branch
}

func (d *fakeDirectory) GetBranch(_ context.Context, id uint64) (model.Branch, error) {
	b, ok := d.branches[id]
	if !ok {
		return model.Branch{}, ErrBranchNotFound
	}
	return b, nil
}

// fakeStore is an in-memory AppointmentStore.  A mutex plus a
// (branch, start) index reproduces the unique-index guarantee the MySQL
// implementation relies on, which lets the race tests run against it.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	appts  map[uint64]model.Appointment
	booked map[string]uint64 // branch|start -> appointment id, BOOKED rows only
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appts:  make(map[uint64]model.Appointment),
		booked: make(map[string]uint64),
	}
}

func slotKey(branchID uint64, start time.Time) string {
	return fmt.Sprintf("%d|%d", branchID, start.UTC().Unix())
}

func (s *fakeStore) InsertBooked(_ context.Context, branchID, userID uint64, start time.Time) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey(branchID, start)
	if _, taken := s.booked[key]; taken {
		return model.Appointment{}, ErrSlotTaken
	}
	s.nextID++
	a := model.Appointment{
		ID:        s.nextID,
		BranchID:  branchID,
		UserID:    userID,
		StartTime: start.UTC(),
		Status:    model.StatusBooked,
	}
	s.appts[a.ID] = a
	s.booked[key] = a.ID
	return a, nil
}

func (s *fakeStore) FindBooked(_ context.Context, branchID uint64, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Appointment
	for _, a := range s.appts {
		if a.BranchID == branchID && a.Status == model.StatusBooked &&
			!a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return a, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uint64, newStatus, expectedCurrent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if a.Status != expectedCurrent {
		return ErrStateConflict
	}
	if a.Status == model.StatusBooked {
		delete(s.booked, slotKey(a.BranchID, a.StartTime))
	}
	a.Status = newStatus
	s.appts[id] = a
	return nil
}

func (s *fakeStore) ListForBranch(_ context.Context, branchID uint64, f Filter) ([]BranchAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BranchAppointment
	for _, a := range s.appts {
		if a.BranchID != branchID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != nil {
			d := f.Date.UTC()
			dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			if a.StartTime.Before(dayStart) || !a.StartTime.Before(dayStart.Add(24*time.Hour)) {
				continue
			}
		}
		out = append(out, BranchAppointment{Appointment: a, UserEmail: "customer@example.com"})
	}
	return out, nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID uint64) ([]CustomerAppointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []CustomerAppointment
	for _, a := range s.appts {
		if a.UserID == userID {
			out = append(out, CustomerAppointment{Appointment: a, BranchName: "Central Branch"})
		}
	}
	return out, nil
}

// ----- fixtures -----

var (
	testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	customer = Actor{UserID: 7, Role: model.RoleCustomer}
	employee = Actor{UserID: 9, Role: model.RoleEmployee, BranchID: 1}
)

func newTestEngine(store AppointmentStore) *Engine {
	dir := &fakeDirectory{branches: map[uint64]model.Branch{
		1: branchOpenOn(testDay, "09:00", "12:00", 30),
	}}
	e := NewEngine(dir, store)
	e.now = func() time.Time { return testNow }
	return e
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

// ----- availability -----

func TestAvailabilityFullCatalogWhenEmpty(t *testing.T) {
	e := newTestEngine(newFakeStore())

	slots, err := e.Availability(context.Background(), 1, testDay)
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, at(9, 0), slots[0].Start)
}

func TestAvailabilityExcludesBookedAndPast(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store)

	_, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)

	e.now = func() time.Time { return at(9, 30) } // 09:00 and 09:30 already gone
	slots, err := e.Availability(context.Background(), 1, testDay)
	require.NoError(t, err)

	starts := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Start)
	}
	assert.Equal(t, []time.Time{at(10, 30), at(11, 0), at(11, 30)}, starts)
}

func TestAvailabilityIsRepeatable(t *testing.T) {
	e := newTestEngine(newFakeStore())

	first, err := e.Availability(context.Background(), 1, testDay)
	require.NoError(t, err)
	second, err := e.Availability(context.Background(), 1, testDay)
	require.NoError(t, err)
	assert.Equal(t, first, second, "viewing availability must not consume slots")
}

func TestAvailabilityUnknownBranch(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Availability(context.Background(), 42, testDay)
	assert.ErrorIs(t, err, ErrBranchNotFound)
}

// ----- booking -----

func TestBookHappyPath(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(9, 30))
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, a.Status)
	assert.Equal(t, customer.UserID, a.UserID)
	assert.Equal(t, at(9, 30), a.StartTime)
}

func TestBookRejectsPastStart(t *testing.T) {
	e := newTestEngine(newFakeStore())
	e.now = func() time.Time { return at(10, 0) }

	_, err := e.Book(context.Background(), customer, 1, at(9, 30))
	assert.True(t, IsValidation(err), "expected validation error, got %v", err)
}

func TestBookRejectsOffGridStart(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Book(context.Background(), customer, 1, at(9, 15))
	assert.True(t, IsValidation(err), "expected validation error, got %v", err)
}

func TestBookRejectsEmployee(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Book(context.Background(), employee, 1, at(9, 30))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBookUnknownBranch(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Book(context.Background(), customer, 42, at(9, 30))
	assert.ErrorIs(t, err, ErrBranchNotFound)
}

func TestBookSameSlotTwice(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Book(context.Background(), customer, 1, at(9, 30))
	require.NoError(t, err)
	_, err = e.Book(context.Background(), Actor{UserID: 8, Role: model.RoleCustomer}, 1, at(9, 30))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookRaceSingleWinner(t *testing.T) {
	e := newTestEngine(newFakeStore())

	const racers = 32
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := Actor{UserID: uint64(100 + i), Role: model.RoleCustomer}
			_, errs[i] = e.Book(context.Background(), actor, 1, at(11, 0))
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case err == ErrSlotTaken:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one racer may win the slot")
	assert.Equal(t, racers-1, losses)
}

// ----- cancellation and completion -----

func TestCancelReleasesSlot(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	require.NoError(t, e.Cancel(context.Background(), customer, a.ID))

	// The slot is bookable again after cancellation.
	_, err = e.Book(context.Background(), Actor{UserID: 8, Role: model.RoleCustomer}, 1, at(10, 0))
	assert.NoError(t, err)
}

func TestCancelIsIdempotent(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	require.NoError(t, e.Cancel(context.Background(), customer, a.ID))
	assert.NoError(t, e.Cancel(context.Background(), customer, a.ID), "second cancel is a no-op")
}

func TestCancelForeignAppointment(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)

	other := Actor{UserID: 8, Role: model.RoleCustomer}
	assert.ErrorIs(t, e.Cancel(context.Background(), other, a.ID), ErrUnauthorized)
}

func TestCancelMissingAppointment(t *testing.T) {
	e := newTestEngine(newFakeStore())
	assert.ErrorIs(t, e.Cancel(context.Background(), customer, 99), ErrAppointmentNotFound)
}

func TestEmployeeCancelsBranchAppointment(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	assert.NoError(t, e.Cancel(context.Background(), employee, a.ID))
}

func TestEmployeeCannotTouchForeignBranch(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)

	foreign := Actor{UserID: 9, Role: model.RoleEmployee, BranchID: 2}
	assert.ErrorIs(t, e.Cancel(context.Background(), foreign, a.ID), ErrUnauthorized)
}

func TestCompleteRequiresStartedAppointment(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)

	err = e.Complete(context.Background(), employee, a.ID)
	assert.True(t, IsValidation(err), "completing before the start must fail, got %v", err)

	e.now = func() time.Time { return at(10, 30) }
	require.NoError(t, e.Complete(context.Background(), employee, a.ID))

	got, err := e.store.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestCompleteRejectsCustomer(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Complete(context.Background(), customer, a.ID), ErrUnauthorized)
}

func TestCancelCompletedConflicts(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	e.now = func() time.Time { return at(10, 30) }
	require.NoError(t, e.Complete(context.Background(), employee, a.ID))

	assert.ErrorIs(t, e.Cancel(context.Background(), customer, a.ID), ErrStateConflict)
}

// ----- listings -----

func TestListForBranchScoping(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)

	items, err := e.ListForBranch(context.Background(), employee, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)
	assert.NotEmpty(t, items[0].UserEmail)

	_, err = e.ListForBranch(context.Background(), employee, 2, Filter{})
	assert.ErrorIs(t, err, ErrUnauthorized, "employees cannot list foreign branches")

	_, err = e.ListForBranch(context.Background(), customer, 1, Filter{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListForBranchStatusFilter(t *testing.T) {
	e := newTestEngine(newFakeStore())

	a, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	b, err := e.Book(context.Background(), customer, 1, at(10, 30))
	require.NoError(t, err)
	require.NoError(t, e.Cancel(context.Background(), customer, b.ID))

	booked, err := e.ListForBranch(context.Background(), employee, 1, Filter{Status: model.StatusBooked})
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, a.ID, booked[0].ID)

	cancelled, err := e.ListForBranch(context.Background(), employee, 1, Filter{Status: model.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, b.ID, cancelled[0].ID)
}

func TestListForCustomer(t *testing.T) {
	e := newTestEngine(newFakeStore())

	_, err := e.Book(context.Background(), customer, 1, at(10, 0))
	require.NoError(t, err)
	_, err = e.Book(context.Background(), Actor{UserID: 8, Role: model.RoleCustomer}, 1, at(10, 30))
	require.NoError(t, err)

	items, err := e.ListForCustomer(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, customer.UserID, items[0].UserID)
	assert.NotEmpty(t, items[0].BranchName)

	_, err = e.ListForCustomer(context.Background(), employee)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
