// Package sqlitestore is the single-file local store, backed by gorm and SQLite.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wolfman30/klinik-awan/internal/scheduling"
)

// Store implements scheduling.Store on SQLite.
type Store struct {
	db *gorm.DB
}

var _ scheduling.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlitestore: path is required")
	}

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	db, err := gorm.Open(sqlite.Open(withForeignKeys(path)), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: db handle: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database only exists on the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&doctorRow{}, &scheduleRow{}, &bookingRow{}); err != nil {
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle whose schema is already migrated.
func New(db *gorm.DB) *Store {
	if db == nil {
		panic("sqlitestore: gorm db required")
	}
	return &Store{db: db}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CountDoctors(ctx context.Context) (int64, error) {
	return countDoctors(s.db.WithContext(ctx))
}

func (s *Store) ListDoctors(ctx context.Context, specialty string) ([]scheduling.Doctor, error) {
	q := s.db.WithContext(ctx).Model(&doctorRow{})
	if specialty != "" {
		q = q.Where("specialty = ?", specialty)
	}
	var rows []doctorRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: list doctors: %w", err)
	}
	out := make([]scheduling.Doctor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListSpecialties(ctx context.Context) ([]string, error) {
	var specialties []string
	err := s.db.WithContext(ctx).
		Model(&doctorRow{}).
		Distinct("specialty").
		Order("specialty ASC").
		Pluck("specialty", &specialties).
		Error
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list specialties: %w", err)
	}
	if specialties == nil {
		specialties = []string{}
	}
	return specialties, nil
}

func (s *Store) ListSlots(ctx context.Context, filter scheduling.SlotFilter) ([]scheduling.Slot, error) {
	q := s.db.WithContext(ctx).
		Model(&scheduleRow{}).
		Where("doctor_id = ?", filter.DoctorID).
		Where("date = ?", filter.Date)
	if filter.OnlyFree {
		q = q.Where("booked = ?", false)
	}

	var rows []scheduleRow
	if err := q.Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: list slots: %w", err)
	}
	out := make([]scheduling.Slot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListBookings(ctx context.Context) ([]scheduling.BookingView, error) {
	var rows []bookingViewRow
	err := s.db.WithContext(ctx).
		Table("bookings AS b").
		Select("b.id, b.patient_name, b.patient_phone, d.name AS doctor_name, d.specialty, b.booking_date, b.booking_time, b.status").
		Joins("JOIN doctors d ON d.id = b.doctor_id").
		Order("b.booking_date DESC, b.booking_time DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list bookings: %w", err)
	}
	out := make([]scheduling.BookingView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// WithinTx runs fn in a gorm transaction; gorm rolls back on error and on
// panic before re-raising it.
func (s *Store) WithinTx(ctx context.Context, fn func(tx scheduling.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&txStore{db: db})
	})
}

type txStore struct {
	db *gorm.DB
}

func (t *txStore) CountDoctors(ctx context.Context) (int64, error) {
	return countDoctors(t.db.WithContext(ctx))
}

func (t *txStore) InsertDoctors(ctx context.Context, doctors []scheduling.Doctor) ([]scheduling.Doctor, error) {
	if len(doctors) == 0 {
		return nil, nil
	}
	rows := make([]doctorRow, 0, len(doctors))
	for _, d := range doctors {
		rows = append(rows, doctorRow{Name: d.Name, Specialty: d.Specialty})
	}
	if err := t.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: insert doctors: %w", err)
	}
	out := make([]scheduling.Doctor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *txStore) InsertSlots(ctx context.Context, slots []scheduling.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	rows := make([]scheduleRow, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, scheduleRow{
			DoctorID:  s.DoctorID,
			Date:      s.Date,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Booked:    s.Booked,
		})
	}
	if err := t.db.WithContext(ctx).CreateInBatches(&rows, 200).Error; err != nil {
		return fmt.Errorf("sqlitestore: insert slots: %w", err)
	}
	return nil
}

func (t *txStore) GetSlot(ctx context.Context, id int64) (*scheduling.Slot, error) {
	var rows []scheduleRow
	if err := t.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: get slot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	slot := rows[0].toDomain()
	return &slot, nil
}

func (t *txStore) SetSlotBooked(ctx context.Context, id int64, booked bool) error {
	res := t.db.WithContext(ctx).
		Model(&scheduleRow{}).
		Where("id = ?", id).
		Update("booked", booked)
	if res.Error != nil {
		return fmt.Errorf("sqlitestore: update slot: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("sqlitestore: update slot: %d rows affected for id %d", res.RowsAffected, id)
	}
	return nil
}

func (t *txStore) InsertBooking(ctx context.Context, booking *scheduling.Booking) error {
	row := bookingRow{
		ScheduleID:   booking.ScheduleID,
		DoctorID:     booking.DoctorID,
		PatientName:  booking.PatientName,
		PatientPhone: booking.PatientPhone,
		BookingDate:  booking.BookingDate,
		BookingTime:  booking.BookingTime,
		Status:       string(booking.Status),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("sqlitestore: insert booking: %w", err)
	}
	booking.ID = row.ID
	return nil
}

func (t *txStore) GetBooking(ctx context.Context, id int64) (*scheduling.Booking, error) {
	var rows []bookingRow
	if err := t.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlitestore: get booking: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	booking := rows[0].toDomain()
	return &booking, nil
}

func (t *txStore) DeleteBooking(ctx context.Context, id int64) error {
	res := t.db.WithContext(ctx).Delete(&bookingRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("sqlitestore: delete booking: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("sqlitestore: delete booking: %d rows affected for id %d", res.RowsAffected, id)
	}
	return nil
}

func countDoctors(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&doctorRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("sqlitestore: count doctors: %w", err)
	}
	return n, nil
}

func withForeignKeys(path string) string {
	if strings.Contains(path, "_foreign_keys=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}
