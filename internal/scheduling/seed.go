package scheduling

import "time"

// Shift is one fixed daily block.
type Shift struct {
	Start string
	End   string
}

var seedDoctors = []Doctor{
	{Name: "dr. Budi Santoso", Specialty: SpecialtyGeneral},
	{Name: "drg. Citra Dewi", Specialty: SpecialtyDental},
	{Name: "dr. Ana Maria", Specialty: SpecialtyPediatric},
	{Name: "dr. Surya Perkasa", Specialty: SpecialtyGeneral},
	{Name: "drg. Dewi Lestari", Specialty: SpecialtyDental},
}

var shiftPatterns = map[string][]Shift{
	SpecialtyGeneral:   {{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "17:00"}},
	SpecialtyDental:    {{Start: "10:00", End: "13:00"}, {Start: "15:00", End: "18:00"}},
	SpecialtyPediatric: {{Start: "08:30", End: "11:30"}, {Start: "13:30", End: "16:30"}},
}

// Catalogue returns a copy of the doctors inserted by seeding.
func Catalogue() []Doctor {
	out := make([]Doctor, len(seedDoctors))
	copy(out, seedDoctors)
	return out
}

// ShiftsFor returns the daily shift blocks of a specialty; unknown
// specialties get none.
func ShiftsFor(specialty string) []Shift {
	return shiftPatterns[specialty]
}

// SeedWindow decides which days seeding covers. EndDate, when set, wins
// over Days.
type SeedWindow struct {
	Days    int
	EndDate string
}

// Dates lists the calendar days from today through the window end,
// inclusive. An end before today yields no days.
func (w SeedWindow) Dates(today time.Time) ([]string, error) {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var end time.Time
	if w.EndDate != "" {
		parsed, err := ParseDate(w.EndDate)
		if err != nil {
			return nil, err
		}
		end = parsed
	} else {
		if w.Days <= 0 {
			return nil, nil
		}
		end = start.AddDate(0, 0, w.Days-1)
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days, nil
}

// BuildSlots expands the shift table over doctors and days.
func BuildSlots(doctors []Doctor, days []string) []Slot {
	var slots []Slot
	for _, doc := range doctors {
		shifts := ShiftsFor(doc.Specialty)
		for _, day := range days {
			for _, shift := range shifts {
				slots = append(slots, Slot{
					DoctorID:  doc.ID,
					Date:      day,
					StartTime: shift.Start,
					EndTime:   shift.End,
				})
			}
		}
	}
	return slots
}
