package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/klinik-awan/internal/observability/metrics"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

var schedulingTracer = otel.Tracer("klinik.internal.scheduling")

// Engine is the only writer of slot and booking state. Availability is
// always re-read from the store; nothing is cached.
type Engine struct {
	store   Store
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	window  SeedWindow
	now     func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSeedWindow sets the day range covered by SeedIfEmpty.
func WithSeedWindow(w SeedWindow) Option {
	return func(e *Engine) { e.window = w }
}

// WithClock overrides "today" for seeding.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs the booking engine.
func NewEngine(store Store, logger *logging.Logger, opts ...Option) *Engine {
	if store == nil {
		panic("scheduling: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:  store,
		logger: logger,
		window: SeedWindow{Days: 5},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListSpecialties returns the distinct specialties present among doctors.
func (e *Engine) ListSpecialties(ctx context.Context) ([]string, error) {
	specialties, err := e.store.ListSpecialties(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list specialties: %w", err)
	}
	return specialties, nil
}

// ListDoctors lists every doctor, or only those with exactly the given
// specialty when it is non-empty.
func (e *Engine) ListDoctors(ctx context.Context, specialty string) ([]Doctor, error) {
	doctors, err := e.store.ListDoctors(ctx, strings.TrimSpace(specialty))
	if err != nil {
		return nil, fmt.Errorf("scheduling: list doctors: %w", err)
	}
	return doctors, nil
}

// ListSlotsForDoctorOnDate returns the doctor's slots for one day ordered by
// start time. Booked slots are left out unless includeBooked is set.
func (e *Engine) ListSlotsForDoctorOnDate(ctx context.Context, doctorID int64, date string, includeBooked bool) ([]Slot, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	slots, err := e.store.ListSlots(ctx, SlotFilter{DoctorID: doctorID, Date: date, OnlyFree: !includeBooked})
	if err != nil {
		return nil, fmt.Errorf("scheduling: list slots: %w", err)
	}
	e.logger.Debug("slots loaded", "doctor_id", doctorID, "date", date, "count", len(slots), "include_booked", includeBooked)
	return slots, nil
}

// AvailabilityOn counts free slots per doctor for one day, optionally
// restricted to one specialty.
func (e *Engine) AvailabilityOn(ctx context.Context, date, specialty string) ([]DoctorAvailability, error) {
	doctors, err := e.ListDoctors(ctx, specialty)
	if err != nil {
		return nil, err
	}
	out := make([]DoctorAvailability, 0, len(doctors))
	for _, doc := range doctors {
		free, err := e.ListSlotsForDoctorOnDate(ctx, doc.ID, date, false)
		if err != nil {
			return nil, err
		}
		out = append(out, DoctorAvailability{Doctor: doc, Date: date, FreeSlots: len(free)})
	}
	return out, nil
}

// ListBookings returns every booking with its doctor, newest day first.
func (e *Engine) ListBookings(ctx context.Context) ([]BookingView, error) {
	bookings, err := e.store.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list bookings: %w", err)
	}
	return bookings, nil
}

// CreateBooking claims a free slot. The booked flag is re-read inside the
// same transaction that writes the booking, so two attempts on one slot
// cannot both succeed.
func (e *Engine) CreateBooking(ctx context.Context, req BookingRequest) (*Confirmation, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.create_booking")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("klinik.slot_id", req.SlotID),
		attribute.Int64("klinik.doctor_id", req.DoctorID),
	)
	start := time.Now()

	req = req.normalized()
	if err := req.validate(); err != nil {
		e.observe("create_booking", err, start)
		e.logger.Warn("booking rejected", "slot_id", req.SlotID, "error", err)
		return nil, err
	}

	var booking Booking
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		slot, err := tx.GetSlot(ctx, req.SlotID)
		if err != nil {
			return &BookingFailedError{SlotID: req.SlotID, Err: err}
		}
		if slot == nil || slot.Booked {
			return ErrSlotUnavailable
		}
		if err := req.matches(*slot); err != nil {
			return err
		}

		booking = Booking{
			ScheduleID:   slot.ID,
			DoctorID:     slot.DoctorID,
			PatientName:  req.PatientName,
			PatientPhone: req.PatientPhone,
			BookingDate:  slot.Date,
			BookingTime:  slot.StartTime,
			Status:       StatusConfirmed,
		}
		if err := tx.InsertBooking(ctx, &booking); err != nil {
			return &BookingFailedError{SlotID: slot.ID, Err: err}
		}
		if err := tx.SetSlotBooked(ctx, slot.ID, true); err != nil {
			return &BookingFailedError{SlotID: slot.ID, Err: err}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrSlotUnavailable) && !errors.Is(err, ErrBookingFailed) {
			err = &BookingFailedError{SlotID: req.SlotID, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create booking")
		e.observe("create_booking", err, start)
		e.logger.Warn("booking not created", "slot_id", req.SlotID, "error", err)
		return nil, err
	}

	e.observe("create_booking", nil, start)
	e.logger.Info("booking created",
		"booking_id", booking.ID,
		"slot_id", booking.ScheduleID,
		"doctor_id", booking.DoctorID,
		"date", booking.BookingDate,
		"time", booking.BookingTime,
	)
	return &Confirmation{Booking: booking, Message: "Booking berhasil ditambahkan!"}, nil
}

// CancelBooking removes a booking and frees its slot in one transaction.
func (e *Engine) CancelBooking(ctx context.Context, bookingID int64) (*Cancellation, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel_booking")
	defer span.End()
	span.SetAttributes(attribute.Int64("klinik.booking_id", bookingID))
	start := time.Now()

	var scheduleID int64
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		booking, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return &CancellationFailedError{BookingID: bookingID, Err: err}
		}
		if booking == nil {
			return ErrBookingNotFound
		}
		if err := tx.DeleteBooking(ctx, bookingID); err != nil {
			return &CancellationFailedError{BookingID: bookingID, Err: err}
		}
		if err := tx.SetSlotBooked(ctx, booking.ScheduleID, false); err != nil {
			return &CancellationFailedError{BookingID: bookingID, Err: err}
		}
		scheduleID = booking.ScheduleID
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrBookingNotFound) && !errors.Is(err, ErrCancellationFailed) {
			err = &CancellationFailedError{BookingID: bookingID, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel booking")
		e.observe("cancel_booking", err, start)
		e.logger.Warn("booking not cancelled", "booking_id", bookingID, "error", err)
		return nil, err
	}

	e.observe("cancel_booking", nil, start)
	e.logger.Info("booking cancelled", "booking_id", bookingID, "slot_id", scheduleID)
	return &Cancellation{
		BookingID:  bookingID,
		ScheduleID: scheduleID,
		Message:    fmt.Sprintf("Booking ID %d berhasil dihapus.", bookingID),
	}, nil
}

// SeedIfEmpty inserts the doctor catalogue and its shift slots when the
// store holds no doctors. Running it again is a no-op.
func (e *Engine) SeedIfEmpty(ctx context.Context) (SeedReport, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.seed")
	defer span.End()
	start := time.Now()

	days, err := e.window.Dates(e.now())
	if err != nil {
		return SeedReport{}, err
	}

	var report SeedReport
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		count, err := tx.CountDoctors(ctx)
		if err != nil {
			return fmt.Errorf("count doctors: %w", err)
		}
		if count > 0 {
			report.Skipped = true
			return nil
		}

		doctors, err := tx.InsertDoctors(ctx, Catalogue())
		if err != nil {
			return fmt.Errorf("insert doctors: %w", err)
		}
		slots := BuildSlots(doctors, days)
		if len(slots) > 0 {
			if err := tx.InsertSlots(ctx, slots); err != nil {
				return fmt.Errorf("insert slots: %w", err)
			}
		}
		report = SeedReport{Doctors: len(doctors), Slots: len(slots), Days: days}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		e.observe("seed", err, start)
		e.logger.Error("seeding failed", "error", err)
		return SeedReport{}, fmt.Errorf("scheduling: seed: %w", err)
	}

	if report.Skipped {
		e.logger.Info("doctors already present, skipping seed")
		return report, nil
	}
	e.observe("seed", nil, start)
	e.metrics.ObserveSeeded(report.Slots)
	e.logger.Info("initial data seeded", "doctors", report.Doctors, "slots", report.Slots, "days", len(report.Days))
	return report, nil
}

func (e *Engine) observe(operation string, err error, start time.Time) {
	e.metrics.ObserveOperation(operation, outcomeLabel(err), time.Since(start).Seconds())
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidBooking):
		return "invalid"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, ErrBookingFailed):
		return "booking_failed"
	case errors.Is(err, ErrCancellationFailed):
		return "cancellation_failed"
	default:
		return "error"
	}
}

func (r BookingRequest) normalized() BookingRequest {
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.PatientPhone = strings.TrimSpace(r.PatientPhone)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	return r
}

func (r BookingRequest) validate() error {
	switch {
	case r.SlotID <= 0:
		return &invalidBookingError{field: "slot", reason: "is required"}
	case r.PatientName == "":
		return &invalidBookingError{field: "patient name", reason: "is required"}
	case r.PatientPhone == "":
		return &invalidBookingError{field: "patient phone", reason: "is required"}
	}
	if r.Date != "" {
		if _, err := ParseDate(r.Date); err != nil {
			return &invalidBookingError{field: "date", reason: "must be YYYY-MM-DD"}
		}
	}
	if r.Time != "" {
		if _, err := ParseClock(r.Time); err != nil {
			return &invalidBookingError{field: "time", reason: "must be HH:MM"}
		}
	}
	return nil
}

// matches checks the caller's view of the slot against the stored row. The
// booking's doctor, date and time are copied from the slot, so a mismatch
// means the caller booked something other than what it displayed.
func (r BookingRequest) matches(slot Slot) error {
	switch {
	case r.DoctorID != 0 && r.DoctorID != slot.DoctorID:
		return &BookingFailedError{SlotID: slot.ID, Reason: "slot belongs to another doctor"}
	case r.Date != "" && r.Date != slot.Date:
		return &BookingFailedError{SlotID: slot.ID, Reason: fmt.Sprintf("slot is on %s, not %s", slot.Date, r.Date)}
	case r.Time != "" && r.Time != slot.StartTime:
		return &BookingFailedError{SlotID: slot.ID, Reason: fmt.Sprintf("slot starts at %s, not %s", slot.StartTime, r.Time)}
	}
	return nil
}
