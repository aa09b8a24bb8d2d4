// Package pgstore persists doctors, slots and bookings in Postgres. The
// schema lives in the top-level migrations package.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/klinik-awan/internal/scheduling"
)

// PgxPool is the subset of *pgxpool.Pool the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements scheduling.Store.
type Store struct {
	pool PgxPool
}

var _ scheduling.Store = (*Store)(nil)

func New(pool PgxPool) *Store {
	if pool == nil {
		panic("pgstore: pool required")
	}
	return &Store{pool: pool}
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count doctors: %w", err)
	}
	return n, nil
}

func (s *Store) ListDoctors(ctx context.Context, specialty string) ([]scheduling.Doctor, error) {
	query := `SELECT id, name, specialty FROM doctors`
	args := []any{}
	if specialty != "" {
		query += ` WHERE specialty = $1`
		args = append(args, specialty)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list doctors: %w", err)
	}
	defer rows.Close()

	doctors := []scheduling.Doctor{}
	for rows.Next() {
		var d scheduling.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty); err != nil {
			return nil, fmt.Errorf("pgstore: scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Store) ListSpecialties(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT specialty FROM doctors ORDER BY specialty`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list specialties: %w", err)
	}
	defer rows.Close()

	specialties := []string{}
	for rows.Next() {
		var sp string
		if err := rows.Scan(&sp); err != nil {
			return nil, fmt.Errorf("pgstore: scan specialty: %w", err)
		}
		specialties = append(specialties, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list specialties: %w", err)
	}
	return specialties, nil
}

func (s *Store) ListSlots(ctx context.Context, filter scheduling.SlotFilter) ([]scheduling.Slot, error) {
	query := `
		SELECT id, doctor_id, date, start_time, end_time, booked
		FROM schedules
		WHERE doctor_id = $1 AND date = $2`
	if filter.OnlyFree {
		query += ` AND booked = FALSE`
	}
	query += ` ORDER BY start_time`

	rows, err := s.pool.Query(ctx, query, filter.DoctorID, filter.Date)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list slots: %w", err)
	}
	defer rows.Close()

	slots := []scheduling.Slot{}
	for rows.Next() {
		var sl scheduling.Slot
		if err := rows.Scan(&sl.ID, &sl.DoctorID, &sl.Date, &sl.StartTime, &sl.EndTime, &sl.Booked); err != nil {
			return nil, fmt.Errorf("pgstore: scan slot: %w", err)
		}
		slots = append(slots, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list slots: %w", err)
	}
	return slots, nil
}

func (s *Store) ListBookings(ctx context.Context) ([]scheduling.BookingView, error) {
	query := `
		SELECT b.id, b.patient_name, b.patient_phone, d.name, d.specialty,
			b.booking_date, b.booking_time, b.status
		FROM bookings b
		JOIN doctors d ON d.id = b.doctor_id
		ORDER BY b.booking_date DESC, b.booking_time DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []scheduling.BookingView{}
	for rows.Next() {
		var (
			b      scheduling.BookingView
			status string
		)
		if err := rows.Scan(&b.ID, &b.PatientName, &b.PatientPhone, &b.DoctorName, &b.Specialty, &b.BookingDate, &b.BookingTime, &status); err != nil {
			return nil, fmt.Errorf("pgstore: scan booking: %w", err)
		}
		b.Status = scheduling.BookingStatus(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list bookings: %w", err)
	}
	return bookings, nil
}

// WithinTx commits when fn returns nil. Any error, or a panic unwinding
// through fn, rolls the transaction back.
func (s *Store) WithinTx(ctx context.Context, fn func(tx scheduling.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	committed = true
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) CountDoctors(ctx context.Context) (int64, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count doctors: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertDoctors(ctx context.Context, doctors []scheduling.Doctor) ([]scheduling.Doctor, error) {
	out := make([]scheduling.Doctor, 0, len(doctors))
	for _, d := range doctors {
		err := t.tx.QueryRow(ctx,
			`INSERT INTO doctors (name, specialty) VALUES ($1, $2) RETURNING id`,
			d.Name, d.Specialty,
		).Scan(&d.ID)
		if err != nil {
			return nil, fmt.Errorf("pgstore: insert doctor %q: %w", d.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

var slotColumns = []string{"doctor_id", "date", "start_time", "end_time", "booked"}

func (t *pgTx) InsertSlots(ctx context.Context, slots []scheduling.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []any{s.DoctorID, s.Date, s.StartTime, s.EndTime, s.Booked})
	}
	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{"schedules"}, slotColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("pgstore: insert slots: %w", err)
	}
	if n != int64(len(slots)) {
		return fmt.Errorf("pgstore: insert slots: copied %d of %d", n, len(slots))
	}
	return nil
}

// GetSlot locks the row so a concurrent booking of the same slot waits for
// this transaction to finish.
func (t *pgTx) GetSlot(ctx context.Context, id int64) (*scheduling.Slot, error) {
	var sl scheduling.Slot
	err := t.tx.QueryRow(ctx, `
		SELECT id, doctor_id, date, start_time, end_time, booked
		FROM schedules
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&sl.ID, &sl.DoctorID, &sl.Date, &sl.StartTime, &sl.EndTime, &sl.Booked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get slot: %w", err)
	}
	return &sl, nil
}

func (t *pgTx) SetSlotBooked(ctx context.Context, id int64, booked bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE schedules SET booked = $2 WHERE id = $1`, id, booked)
	if err != nil {
		return fmt.Errorf("pgstore: update slot: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("pgstore: update slot: %d rows affected for id %d", tag.RowsAffected(), id)
	}
	return nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *scheduling.Booking) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings (schedule_id, doctor_id, patient_name, patient_phone, booking_date, booking_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		b.ScheduleID, b.DoctorID, b.PatientName, b.PatientPhone, b.BookingDate, b.BookingTime, string(b.Status),
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("pgstore: insert booking: %w", err)
	}
	return nil
}

func (t *pgTx) GetBooking(ctx context.Context, id int64) (*scheduling.Booking, error) {
	var (
		b      scheduling.Booking
		status string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, schedule_id, doctor_id, patient_name, patient_phone, booking_date, booking_time, status
		FROM bookings
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&b.ID, &b.ScheduleID, &b.DoctorID, &b.PatientName, &b.PatientPhone, &b.BookingDate, &b.BookingTime, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get booking: %w", err)
	}
	b.Status = scheduling.BookingStatus(status)
	return &b, nil
}

func (t *pgTx) DeleteBooking(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgstore: delete booking: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("pgstore: delete booking: %d rows affected for id %d", tag.RowsAffected(), id)
	}
	return nil
}
