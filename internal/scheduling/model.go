package scheduling

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the textual calendar day used everywhere in the store.
	DateLayout = "2006-01-02"
	// TimeLayout is a wall-clock hour:minute with no timezone.
	TimeLayout = "15:04"
)

// Specialties used by the seed catalogue and the assistant's symptom mapping.
const (
	SpecialtyGeneral   = "Umum"
	SpecialtyDental    = "Gigi"
	SpecialtyPediatric = "Anak"
)

// BookingStatus is the lifecycle marker stored on a booking row.
type BookingStatus string

// StatusConfirmed is the only status a stored booking carries; cancellation
// removes the row.
const StatusConfirmed BookingStatus = "Confirmed"

// Doctor is immutable once seeded.
type Doctor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Slot is one fixed time window on one day for one doctor.
type Slot struct {
	ID        int64  `json:"id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Booked    bool   `json:"booked"`
}

// Label renders the slot the way pickers show it, e.g. "09:00 - 12:00".
func (s Slot) Label() string {
	return fmt.Sprintf("%s - %s", s.StartTime, s.EndTime)
}

// Booking is a patient's claim on one slot.
type Booking struct {
	ID           int64         `json:"id"`
	ScheduleID   int64         `json:"schedule_id"`
	DoctorID     int64         `json:"doctor_id"`
	PatientName  string        `json:"patient_name"`
	PatientPhone string        `json:"patient_phone"`
	BookingDate  string        `json:"booking_date"`
	BookingTime  string        `json:"booking_time"`
	Status       BookingStatus `json:"status"`
}

// BookingView is a booking joined with its doctor for the bookings table.
type BookingView struct {
	ID           int64         `json:"id"`
	PatientName  string        `json:"patient_name"`
	PatientPhone string        `json:"patient_phone"`
	DoctorName   string        `json:"doctor_name"`
	Specialty    string        `json:"specialty"`
	BookingDate  string        `json:"booking_date"`
	BookingTime  string        `json:"booking_time"`
	Status       BookingStatus `json:"status"`
}

// DoctorAvailability is the number of free slots a doctor has on one day.
type DoctorAvailability struct {
	Doctor    Doctor `json:"doctor"`
	Date      string `json:"date"`
	FreeSlots int    `json:"free_slots"`
}

// SlotFilter selects the slots of one doctor on one day.
type SlotFilter struct {
	DoctorID int64
	Date     string
	OnlyFree bool
}

// BookingRequest carries what the booking dialog collects.
type BookingRequest struct {
	SlotID       int64  `json:"slot_id"`
	DoctorID     int64  `json:"doctor_id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Confirmation is returned once a booking has committed.
type Confirmation struct {
	Booking Booking `json:"booking"`
	Message string  `json:"message"`
}

// Cancellation is returned once a booking has been removed.
type Cancellation struct {
	BookingID  int64  `json:"booking_id"`
	ScheduleID int64  `json:"schedule_id"`
	Message    string `json:"message"`
}

// SeedReport summarises what SeedIfEmpty did.
type SeedReport struct {
	Skipped bool     `json:"skipped"`
	Doctors int      `json:"doctors"`
	Slots   int      `json:"slots"`
	Days    []string `json:"days,omitempty"`
}

// ParseDate validates a YYYY-MM-DD day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: invalid date %q: %w", value, err)
	}
	return t, nil
}

// ParseClock validates an HH:MM wall-clock time.
func ParseClock(value string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: invalid time %q: %w", value, err)
	}
	return t, nil
}
