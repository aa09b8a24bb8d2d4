package scheduling_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/klinik-awan/internal/observability/metrics"
	"github.com/wolfman30/klinik-awan/internal/scheduling"
	"github.com/wolfman30/klinik-awan/internal/scheduling/sqlitestore"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

var fixedToday = time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC)

func newSeededEngine(t *testing.T) (*scheduling.Engine, *sqlitestore.Store) {
	t.Helper()
	store, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := scheduling.NewEngine(store, logging.Discard(),
		scheduling.WithClock(func() time.Time { return fixedToday }),
		scheduling.WithMetrics(metrics.NewBookingMetrics(prometheus.NewRegistry())),
	)
	report, err := engine.SeedIfEmpty(context.Background())
	require.NoError(t, err)
	require.False(t, report.Skipped)
	return engine, store
}

func doctorNamed(t *testing.T, engine *scheduling.Engine, name string) scheduling.Doctor {
	t.Helper()
	doctors, err := engine.ListDoctors(context.Background(), "")
	require.NoError(t, err)
	for _, d := range doctors {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("doctor %q not seeded", name)
	return scheduling.Doctor{}
}

func TestSeedIfEmptyPopulatesCatalogue(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	doctors, err := engine.ListDoctors(ctx, "")
	require.NoError(t, err)
	assert.Len(t, doctors, 5)

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	slots, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-05", false)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00 - 12:00", slots[0].Label())
	assert.Equal(t, "14:00 - 17:00", slots[1].Label())

	beyond, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-06", true)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	ana := doctorNamed(t, engine, "dr. Ana Maria")
	pediatric, err := engine.ListSlotsForDoctorOnDate(ctx, ana.ID, "2024-07-01", false)
	require.NoError(t, err)
	require.Len(t, pediatric, 2)
	assert.Equal(t, "08:30", pediatric[0].StartTime)
}

func TestSeedIfEmptyIsIdempotent(t *testing.T) {
	engine, _ := newSeededEngine(t)

	report, err := engine.SeedIfEmpty(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	doctors, err := engine.ListDoctors(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, doctors, 5)
}

func TestSeedWindowEndDate(t *testing.T) {
	store, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	engine := scheduling.NewEngine(store, logging.Discard(),
		scheduling.WithClock(func() time.Time { return fixedToday }),
		scheduling.WithSeedWindow(scheduling.SeedWindow{EndDate: "2024-07-02"}),
	)
	report, err := engine.SeedIfEmpty(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-01", "2024-07-02"}, report.Days)
	assert.Equal(t, 5*2*2, report.Slots)
}

func TestListDoctorsBySpecialty(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	general, err := engine.ListDoctors(ctx, " Umum ")
	require.NoError(t, err)
	require.Len(t, general, 2)
	for _, d := range general {
		assert.Equal(t, scheduling.SpecialtyGeneral, d.Specialty)
	}

	none, err := engine.ListDoctors(ctx, "Kardiologi")
	require.NoError(t, err)
	assert.Empty(t, none)

	specialties, err := engine.ListSpecialties(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Umum", "Gigi", "Anak"}, specialties)
}

func TestListSlotsRejectsBadDate(t *testing.T) {
	engine, _ := newSeededEngine(t)
	_, err := engine.ListSlotsForDoctorOnDate(context.Background(), 1, "01-07-2024", false)
	require.Error(t, err)
}

func TestCreateBookingClaimsSlot(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	free, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)
	require.Len(t, free, 2)

	conf, err := engine.CreateBooking(ctx, scheduling.BookingRequest{
		SlotID:       free[0].ID,
		DoctorID:     budi.ID,
		PatientName:  " Sari ",
		PatientPhone: "08123456789",
		Date:         "2024-07-01",
		Time:         "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking berhasil ditambahkan!", conf.Message)
	assert.Equal(t, "Sari", conf.Booking.PatientName)
	assert.Equal(t, scheduling.StatusConfirmed, conf.Booking.Status)
	assert.NotZero(t, conf.Booking.ID)

	after, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "14:00", after[0].StartTime)

	bookings, err := engine.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "dr. Budi Santoso", bookings[0].DoctorName)
	assert.Equal(t, "Umum", bookings[0].Specialty)
	assert.Equal(t, "2024-07-01", bookings[0].BookingDate)
	assert.Equal(t, "09:00", bookings[0].BookingTime)
}

func TestCreateBookingOnBookedSlotLeavesStoreUnchanged(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	free, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)

	req := scheduling.BookingRequest{SlotID: free[0].ID, PatientName: "Sari", PatientPhone: "0812"}
	_, err = engine.CreateBooking(ctx, req)
	require.NoError(t, err)

	req.PatientName = "Rina"
	_, err = engine.CreateBooking(ctx, req)
	require.ErrorIs(t, err, scheduling.ErrSlotUnavailable)

	bookings, err := engine.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Sari", bookings[0].PatientName)
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	engine, _ := newSeededEngine(t)
	_, err := engine.CreateBooking(context.Background(), scheduling.BookingRequest{SlotID: 99999, PatientName: "Sari", PatientPhone: "0812"})
	require.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
}

func TestCreateBookingValidation(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	cases := map[string]scheduling.BookingRequest{
		"no slot":   {PatientName: "Sari", PatientPhone: "0812"},
		"no name":   {SlotID: 1, PatientName: "  ", PatientPhone: "0812"},
		"no phone":  {SlotID: 1, PatientName: "Sari"},
		"bad date":  {SlotID: 1, PatientName: "Sari", PatientPhone: "0812", Date: "1/7/2024"},
		"bad clock": {SlotID: 1, PatientName: "Sari", PatientPhone: "0812", Time: "9am"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.CreateBooking(ctx, req)
			require.ErrorIs(t, err, scheduling.ErrInvalidBooking)
		})
	}

	bookings, err := engine.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCreateBookingMismatchFailsAndRollsBack(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	free, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)

	_, err = engine.CreateBooking(ctx, scheduling.BookingRequest{
		SlotID: free[0].ID, PatientName: "Sari", PatientPhone: "0812", Time: "14:00",
	})
	require.ErrorIs(t, err, scheduling.ErrBookingFailed)

	var failed *scheduling.BookingFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, free[0].ID, failed.SlotID)

	still, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)
	assert.Len(t, still, 2)
}

func TestCancelBookingFreesSlot(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	free, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)

	conf, err := engine.CreateBooking(ctx, scheduling.BookingRequest{SlotID: free[0].ID, PatientName: "Sari", PatientPhone: "0812"})
	require.NoError(t, err)

	cancel, err := engine.CancelBooking(ctx, conf.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, free[0].ID, cancel.ScheduleID)
	assert.Contains(t, cancel.Message, "berhasil dihapus")

	again, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-01", false)
	require.NoError(t, err)
	assert.Len(t, again, 2)

	bookings, err := engine.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	_, err = engine.CreateBooking(ctx, scheduling.BookingRequest{SlotID: free[0].ID, PatientName: "Rina", PatientPhone: "0813"})
	require.NoError(t, err)
}

func TestCancelUnknownBooking(t *testing.T) {
	engine, _ := newSeededEngine(t)
	_, err := engine.CancelBooking(context.Background(), 424242)
	require.ErrorIs(t, err, scheduling.ErrBookingNotFound)
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	budi := doctorNamed(t, engine, "dr. Budi Santoso")
	free, err := engine.ListSlotsForDoctorOnDate(ctx, budi.ID, "2024-07-02", false)
	require.NoError(t, err)
	slotID := free[0].ID

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.CreateBooking(ctx, scheduling.BookingRequest{SlotID: slotID, PatientName: "Pasien", PatientPhone: "0812"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	bookings, err := engine.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestAvailabilityOn(t *testing.T) {
	engine, _ := newSeededEngine(t)
	ctx := context.Background()

	dental, err := engine.AvailabilityOn(ctx, "2024-07-03", scheduling.SpecialtyDental)
	require.NoError(t, err)
	require.Len(t, dental, 2)
	for _, a := range dental {
		assert.Equal(t, 2, a.FreeSlots)
		assert.Equal(t, "2024-07-03", a.Date)
	}
}
