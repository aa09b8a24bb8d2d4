package sqlitestore

import "github.com/wolfman30/klinik-awan/internal/scheduling"

// doctors
type doctorRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Specialty string `gorm:"not null;index"`
}

func (doctorRow) TableName() string { return "doctors" }

// schedules
type scheduleRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	DoctorID  int64  `gorm:"not null;index:idx_schedules_doctor_date,priority:1"`
	Date      string `gorm:"not null;index:idx_schedules_doctor_date,priority:2"`
	StartTime string `gorm:"not null"`
	EndTime   string `gorm:"not null"`
	Booked    bool   `gorm:"not null;default:false"`

	Doctor *doctorRow `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (scheduleRow) TableName() string { return "schedules" }

// bookings; one row per schedule at most.
type bookingRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ScheduleID   int64  `gorm:"not null;uniqueIndex"`
	DoctorID     int64  `gorm:"not null;index"`
	PatientName  string `gorm:"not null"`
	PatientPhone string
	BookingDate  string `gorm:"not null"`
	BookingTime  string `gorm:"not null"`
	Status       string `gorm:"not null;default:Confirmed"`

	Schedule *scheduleRow `gorm:"foreignKey:ScheduleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Doctor   *doctorRow   `gorm:"foreignKey:DoctorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (bookingRow) TableName() string { return "bookings" }

// bookingViewRow is the scan target of the bookings/doctors join.
type bookingViewRow struct {
	ID           int64
	PatientName  string
	PatientPhone string
	DoctorName   string
	Specialty    string
	BookingDate  string
	BookingTime  string
	Status       string
}

func (r doctorRow) toDomain() scheduling.Doctor {
	return scheduling.Doctor{ID: r.ID, Name: r.Name, Specialty: r.Specialty}
}

func (r scheduleRow) toDomain() scheduling.Slot {
	return scheduling.Slot{
		ID:        r.ID,
		DoctorID:  r.DoctorID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Booked:    r.Booked,
	}
}

func (r bookingRow) toDomain() scheduling.Booking {
	return scheduling.Booking{
		ID:           r.ID,
		ScheduleID:   r.ScheduleID,
		DoctorID:     r.DoctorID,
		PatientName:  r.PatientName,
		PatientPhone: r.PatientPhone,
		BookingDate:  r.BookingDate,
		BookingTime:  r.BookingTime,
		Status:       scheduling.BookingStatus(r.Status),
	}
}

func (r bookingViewRow) toDomain() scheduling.BookingView {
	return scheduling.BookingView{
		ID:           r.ID,
		PatientName:  r.PatientName,
		PatientPhone: r.PatientPhone,
		DoctorName:   r.DoctorName,
		Specialty:    r.Specialty,
		BookingDate:  r.BookingDate,
		BookingTime:  r.BookingTime,
		Status:       scheduling.BookingStatus(r.Status),
	}
}
