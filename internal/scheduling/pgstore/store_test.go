package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/klinik-awan/internal/scheduling"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

var slotCols = []string{"id", "doctor_id", "date", "start_time", "end_time", "booked"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func TestListDoctorsFiltersBySpecialty(t *testing.T) {
	mock := newMock(t)
	store := New(mock)

	mock.ExpectQuery("SELECT id, name, specialty FROM doctors WHERE specialty").
		WithArgs("Gigi").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty"}).
			AddRow(int64(2), "drg. Citra Dewi", "Gigi").
			AddRow(int64(5), "drg. Dewi Lestari", "Gigi"))

	doctors, err := store.ListDoctors(context.Background(), "Gigi")
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	if len(doctors) != 2 || doctors[1].Name != "drg. Dewi Lestari" {
		t.Fatalf("unexpected doctors: %+v", doctors)
	}
}

func TestListSlotsOnlyFree(t *testing.T) {
	mock := newMock(t)
	store := New(mock)

	mock.ExpectQuery("FROM schedules\\s+WHERE doctor_id = \\$1 AND date = \\$2 AND booked = FALSE ORDER BY start_time").
		WithArgs(int64(1), "2024-07-01").
		WillReturnRows(pgxmock.NewRows(slotCols).
			AddRow(int64(11), int64(1), "2024-07-01", "14:00", "17:00", false))

	slots, err := store.ListSlots(context.Background(), scheduling.SlotFilter{DoctorID: 1, Date: "2024-07-01", OnlyFree: true})
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 1 || slots[0].Label() != "14:00 - 17:00" {
		t.Fatalf("unexpected slots: %+v", slots)
	}
}

func TestListSpecialtiesEmpty(t *testing.T) {
	mock := newMock(t)
	store := New(mock)

	mock.ExpectQuery("SELECT DISTINCT specialty FROM doctors").
		WillReturnRows(pgxmock.NewRows([]string{"specialty"}))

	specialties, err := store.ListSpecialties(context.Background())
	if err != nil {
		t.Fatalf("list specialties: %v", err)
	}
	if specialties == nil || len(specialties) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", specialties)
	}
}

func TestListBookingsScansJoin(t *testing.T) {
	mock := newMock(t)
	store := New(mock)

	mock.ExpectQuery("FROM bookings b\\s+JOIN doctors d").
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_name", "patient_phone", "name", "specialty", "booking_date", "booking_time", "status"}).
			AddRow(int64(7), "Sari", "0812", "dr. Budi Santoso", "Umum", "2024-07-01", "09:00", "Confirmed"))

	bookings, err := store.ListBookings(context.Background())
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(bookings) != 1 || bookings[0].DoctorName != "dr. Budi Santoso" || bookings[0].Status != scheduling.StatusConfirmed {
		t.Fatalf("unexpected bookings: %+v", bookings)
	}
}

func TestCreateBookingCommits(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM schedules\\s+WHERE id = \\$1\\s+FOR UPDATE").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow(int64(10), int64(1), "2024-07-01", "09:00", "12:00", false))
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(int64(10), int64(1), "Sari", "0812", "2024-07-01", "09:00", "Confirmed").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(77)))
	mock.ExpectExec("UPDATE schedules SET booked").
		WithArgs(int64(10), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	conf, err := engine.CreateBooking(context.Background(), scheduling.BookingRequest{SlotID: 10, PatientName: "Sari", PatientPhone: "0812"})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if conf.Booking.ID != 77 {
		t.Fatalf("expected booking id 77, got %d", conf.Booking.ID)
	}
}

func TestCreateBookingBookedSlotRollsBack(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow(int64(10), int64(1), "2024-07-01", "09:00", "12:00", true))
	mock.ExpectRollback()

	_, err := engine.CreateBooking(context.Background(), scheduling.BookingRequest{SlotID: 10, PatientName: "Sari", PatientPhone: "0812"})
	if !errors.Is(err, scheduling.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateBookingCommitFailure(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow(int64(10), int64(1), "2024-07-01", "09:00", "12:00", false))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE schedules SET booked").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
	mock.ExpectRollback()

	_, err := engine.CreateBooking(context.Background(), scheduling.BookingRequest{SlotID: 10, PatientName: "Sari", PatientPhone: "0812"})
	if !errors.Is(err, scheduling.ErrBookingFailed) {
		t.Fatalf("expected ErrBookingFailed, got %v", err)
	}
}

func TestCancelMissingBooking(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings\\s+WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := engine.CancelBooking(context.Background(), 5)
	if !errors.Is(err, scheduling.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestCancelBookingFreesSlot(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings\\s+WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "schedule_id", "doctor_id", "patient_name", "patient_phone", "booking_date", "booking_time", "status"}).
			AddRow(int64(5), int64(10), int64(1), "Sari", "0812", "2024-07-01", "09:00", "Confirmed"))
	mock.ExpectExec("DELETE FROM bookings").
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE schedules SET booked").
		WithArgs(int64(10), false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	cancel, err := engine.CancelBooking(context.Background(), 5)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancel.ScheduleID != 10 {
		t.Fatalf("expected schedule 10, got %d", cancel.ScheduleID)
	}
}

func TestSeedIfEmptyCopiesSlots(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard(),
		scheduling.WithSeedWindow(scheduling.SeedWindow{Days: 1}),
		scheduling.WithClock(func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }),
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM doctors").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	for i, d := range scheduling.Catalogue() {
		mock.ExpectQuery("INSERT INTO doctors").
			WithArgs(d.Name, d.Specialty).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
	mock.ExpectCopyFrom(pgx.Identifier{"schedules"}, slotColumns).WillReturnResult(10)
	mock.ExpectCommit()

	report, err := engine.SeedIfEmpty(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.Doctors != 5 || report.Slots != 10 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSeedIfEmptySkipsPopulatedStore(t *testing.T) {
	mock := newMock(t)
	engine := scheduling.NewEngine(New(mock), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM doctors").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectCommit()

	report, err := engine.SeedIfEmpty(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !report.Skipped {
		t.Fatalf("expected skipped seed")
	}
}

func TestNewPanicsWithoutPool(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(nil)
}
