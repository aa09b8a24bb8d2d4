package scheduling

import "context"

// Store is the persistence contract the engine writes through. It carries
// no business rules: list queries return empty slices when nothing matches
// and single-row lookups return nil, nil.
type Store interface {
	CountDoctors(ctx context.Context) (int64, error)
	ListDoctors(ctx context.Context, specialty string) ([]Doctor, error)
	ListSpecialties(ctx context.Context) ([]string, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]Slot, error)
	ListBookings(ctx context.Context) ([]BookingView, error)

	// WithinTx runs fn inside one transaction. It commits when fn returns
	// nil and rolls back on error or panic. The Tx must not escape fn.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write surface available inside Store.WithinTx.
type Tx interface {
	CountDoctors(ctx context.Context) (int64, error)
	InsertDoctors(ctx context.Context, doctors []Doctor) ([]Doctor, error)
	InsertSlots(ctx context.Context, slots []Slot) error
	GetSlot(ctx context.Context, id int64) (*Slot, error)
	SetSlotBooked(ctx context.Context, id int64, booked bool) error
	InsertBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}
