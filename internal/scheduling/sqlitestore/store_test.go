package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/klinik-awan/internal/scheduling"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedOneDoctor(t *testing.T, store *Store) (scheduling.Doctor, []scheduling.Slot) {
	t.Helper()
	ctx := context.Background()
	var doctor scheduling.Doctor
	err := store.WithinTx(ctx, func(tx scheduling.Tx) error {
		inserted, err := tx.InsertDoctors(ctx, []scheduling.Doctor{{Name: "dr. Budi Santoso", Specialty: scheduling.SpecialtyGeneral}})
		if err != nil {
			return err
		}
		doctor = inserted[0]
		return tx.InsertSlots(ctx, []scheduling.Slot{
			{DoctorID: doctor.ID, Date: "2024-07-01", StartTime: "14:00", EndTime: "17:00"},
			{DoctorID: doctor.ID, Date: "2024-07-01", StartTime: "09:00", EndTime: "12:00"},
			{DoctorID: doctor.ID, Date: "2024-07-02", StartTime: "09:00", EndTime: "12:00"},
		})
	})
	require.NoError(t, err)

	slots, err := store.ListSlots(ctx, scheduling.SlotFilter{DoctorID: doctor.ID, Date: "2024-07-01"})
	require.NoError(t, err)
	return doctor, slots
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestListSlotsOrdersByStartTime(t *testing.T) {
	store := newTestStore(t)
	_, slots := seedOneDoctor(t, store)

	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "14:00", slots[1].StartTime)
}

func TestListSlotsOnlyFree(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	doctor, slots := seedOneDoctor(t, store)

	require.NoError(t, store.WithinTx(ctx, func(tx scheduling.Tx) error {
		return tx.SetSlotBooked(ctx, slots[0].ID, true)
	}))

	free, err := store.ListSlots(ctx, scheduling.SlotFilter{DoctorID: doctor.ID, Date: "2024-07-01", OnlyFree: true})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, slots[1].ID, free[0].ID)

	all, err := store.ListSlots(ctx, scheduling.SlotFilter{DoctorID: doctor.ID, Date: "2024-07-01"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[0].Booked)
}

func TestListSpecialtiesDistinctSorted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	empty, err := store.ListSpecialties(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.WithinTx(ctx, func(tx scheduling.Tx) error {
		_, err := tx.InsertDoctors(ctx, scheduling.Catalogue())
		return err
	}))

	specialties, err := store.ListSpecialties(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anak", "Gigi", "Umum"}, specialties)

	dental, err := store.ListDoctors(ctx, scheduling.SpecialtyDental)
	require.NoError(t, err)
	require.Len(t, dental, 2)
	assert.Equal(t, "drg. Citra Dewi", dental[0].Name)

	n, err := store.CountDoctors(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestGetSlotMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithinTx(ctx, func(tx scheduling.Tx) error {
		slot, err := tx.GetSlot(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, slot)

		booking, err := tx.GetBooking(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, booking)
		return nil
	})
	require.NoError(t, err)
}

func TestScheduleCanHoldOnlyOneBooking(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	doctor, slots := seedOneDoctor(t, store)

	insert := func(name string) error {
		return store.WithinTx(ctx, func(tx scheduling.Tx) error {
			return tx.InsertBooking(ctx, &scheduling.Booking{
				ScheduleID:   slots[0].ID,
				DoctorID:     doctor.ID,
				PatientName:  name,
				PatientPhone: "0812",
				BookingDate:  slots[0].Date,
				BookingTime:  slots[0].StartTime,
				Status:       scheduling.StatusConfirmed,
			})
		})
	}

	require.NoError(t, insert("Sari"))
	require.Error(t, insert("Rina"))

	bookings, err := store.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Sari", bookings[0].PatientName)
	assert.Equal(t, "dr. Budi Santoso", bookings[0].DoctorName)
	assert.Equal(t, scheduling.StatusConfirmed, bookings[0].Status)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, slots := seedOneDoctor(t, store)

	err := store.WithinTx(ctx, func(tx scheduling.Tx) error {
		if err := tx.SetSlotBooked(ctx, slots[0].ID, true); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	require.NoError(t, store.WithinTx(ctx, func(tx scheduling.Tx) error {
		slot, err := tx.GetSlot(ctx, slots[0].ID)
		require.NoError(t, err)
		assert.False(t, slot.Booked)
		return nil
	}))
}

func TestSetSlotBookedUnknownSlot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.WithinTx(ctx, func(tx scheduling.Tx) error {
		return tx.SetSlotBooked(ctx, 42, true)
	})
	require.Error(t, err)
}

func TestListBookingsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	doctor, _ := seedOneDoctor(t, store)

	all := []scheduling.Slot{}
	for _, date := range []string{"2024-07-01", "2024-07-02"} {
		slots, err := store.ListSlots(ctx, scheduling.SlotFilter{DoctorID: doctor.ID, Date: date})
		require.NoError(t, err)
		all = append(all, slots...)
	}
	require.Len(t, all, 3)

	require.NoError(t, store.WithinTx(ctx, func(tx scheduling.Tx) error {
		for i, slot := range all {
			err := tx.InsertBooking(ctx, &scheduling.Booking{
				ScheduleID:   slot.ID,
				DoctorID:     doctor.ID,
				PatientName:  []string{"A", "B", "C"}[i],
				PatientPhone: "0812",
				BookingDate:  slot.Date,
				BookingTime:  slot.StartTime,
				Status:       scheduling.StatusConfirmed,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	bookings, err := store.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 3)
	assert.Equal(t, "2024-07-02", bookings[0].BookingDate)
	assert.Equal(t, "14:00", bookings[1].BookingTime)
	assert.Equal(t, "09:00", bookings[2].BookingTime)
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on", withForeignKeys(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_foreign_keys=on", withForeignKeys("file:x.db?cache=shared"))
	assert.Equal(t, "x.db?_foreign_keys=off", withForeignKeys("x.db?_foreign_keys=off"))
}
