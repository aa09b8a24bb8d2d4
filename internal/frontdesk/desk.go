// Package frontdesk is the command surface the presentation layer drives.
// Every command returns a Result carrying a success flag and a message the
// view can show as-is.
package frontdesk

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/klinik-awan/internal/assistant"
	"github.com/wolfman30/klinik-awan/internal/scheduling"
	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// CommandKind enumerates everything the view can ask for.
type CommandKind string

const (
	CmdListSpecialties CommandKind = "list_specialties"
	CmdListDoctors     CommandKind = "list_doctors"
	CmdListSlots       CommandKind = "list_slots"
	CmdAvailability    CommandKind = "availability"
	CmdCreateBooking   CommandKind = "create_booking"
	CmdCancelBooking   CommandKind = "cancel_booking"
	CmdListBookings    CommandKind = "list_bookings"
	CmdSeedIfEmpty     CommandKind = "seed_if_empty"
	CmdSubmitChat      CommandKind = "submit_chat"
	CmdChatStatus      CommandKind = "chat_status"
	CmdChatTranscript  CommandKind = "chat_transcript"
	CmdResetChat       CommandKind = "reset_chat"
)

// Command is one request from the view. Only the fields its Kind needs are
// read.
type Command struct {
	Kind          CommandKind               `json:"kind"`
	Specialty     string                    `json:"specialty,omitempty"`
	DoctorID      int64                     `json:"doctor_id,omitempty"`
	Date          string                    `json:"date,omitempty"`
	IncludeBooked bool                      `json:"include_booked,omitempty"`
	Booking       scheduling.BookingRequest `json:"booking"`
	BookingID     int64                     `json:"booking_id,omitempty"`
	Message       string                    `json:"message,omitempty"`
	TurnID        string                    `json:"turn_id,omitempty"`
}

// Result codes.
const (
	CodeOK                 = "ok"
	CodeAccepted           = "accepted"
	CodeInvalidRequest     = "invalid_request"
	CodeSlotUnavailable    = "slot_unavailable"
	CodeBookingFailed      = "booking_failed"
	CodeBookingNotFound    = "booking_not_found"
	CodeCancellationFailed = "cancellation_failed"
	CodeTurnInFlight       = "turn_in_flight"
	CodeEmptyMessage       = "empty_message"
	CodeTurnNotFound       = "turn_not_found"
	CodeUnknownCommand     = "unknown_command"
	CodeInternal           = "internal_error"
)

// Result is what the view renders.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Scheduler is the booking engine surface the desk uses.
type Scheduler interface {
	ListSpecialties(ctx context.Context) ([]string, error)
	ListDoctors(ctx context.Context, specialty string) ([]scheduling.Doctor, error)
	ListSlotsForDoctorOnDate(ctx context.Context, doctorID int64, date string, includeBooked bool) ([]scheduling.Slot, error)
	AvailabilityOn(ctx context.Context, date, specialty string) ([]scheduling.DoctorAvailability, error)
	CreateBooking(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Confirmation, error)
	CancelBooking(ctx context.Context, bookingID int64) (*scheduling.Cancellation, error)
	ListBookings(ctx context.Context) ([]scheduling.BookingView, error)
	SeedIfEmpty(ctx context.Context) (scheduling.SeedReport, error)
}

// Assistant is the chat session surface the desk uses.
type Assistant interface {
	Submit(ctx context.Context, message string) (*assistant.Turn, error)
	Turn(id string) (*assistant.Turn, error)
	Transcript() []assistant.Message
	State() assistant.State
	Reset(ctx context.Context) error
}

// TurnAccepted is the data of an accepted chat submission.
type TurnAccepted struct {
	TurnID string               `json:"turn_id"`
	Status assistant.TurnStatus `json:"status"`
}

// ChatTranscript is the data of CmdChatTranscript.
type ChatTranscript struct {
	Greeting string              `json:"greeting"`
	State    assistant.State     `json:"state"`
	Messages []assistant.Message `json:"messages"`
}

// Desk dispatches commands to the engine and the assistant.
type Desk struct {
	scheduler Scheduler
	assistant Assistant
	logger    *logging.Logger
}

// New builds a Desk. The assistant may be nil when chat is not configured;
// chat commands then fail with an internal error result.
func New(scheduler Scheduler, chat Assistant, logger *logging.Logger) *Desk {
	if scheduler == nil {
		panic("frontdesk: scheduler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Desk{scheduler: scheduler, assistant: chat, logger: logger}
}

// Dispatch runs one command.
func (d *Desk) Dispatch(ctx context.Context, cmd Command) Result {
	switch cmd.Kind {
	case CmdListSpecialties:
		specialties, err := d.scheduler.ListSpecialties(ctx)
		return d.data(cmd, specialties, err)

	case CmdListDoctors:
		doctors, err := d.scheduler.ListDoctors(ctx, cmd.Specialty)
		return d.data(cmd, doctors, err)

	case CmdListSlots:
		if res, ok := invalidDate(cmd.Date); !ok {
			return res
		}
		slots, err := d.scheduler.ListSlotsForDoctorOnDate(ctx, cmd.DoctorID, cmd.Date, cmd.IncludeBooked)
		return d.data(cmd, slots, err)

	case CmdAvailability:
		if res, ok := invalidDate(cmd.Date); !ok {
			return res
		}
		availability, err := d.scheduler.AvailabilityOn(ctx, cmd.Date, cmd.Specialty)
		return d.data(cmd, availability, err)

	case CmdListBookings:
		bookings, err := d.scheduler.ListBookings(ctx)
		return d.data(cmd, bookings, err)

	case CmdCreateBooking:
		conf, err := d.scheduler.CreateBooking(ctx, cmd.Booking)
		if err != nil {
			return d.failure(cmd, err)
		}
		return Result{Success: true, Code: CodeOK, Message: conf.Message, Data: conf.Booking}

	case CmdCancelBooking:
		cancel, err := d.scheduler.CancelBooking(ctx, cmd.BookingID)
		if err != nil {
			return d.failure(cmd, err)
		}
		return Result{Success: true, Code: CodeOK, Message: cancel.Message, Data: cancel}

	case CmdSeedIfEmpty:
		report, err := d.scheduler.SeedIfEmpty(ctx)
		if err != nil {
			return d.failure(cmd, err)
		}
		msg := fmt.Sprintf("Data awal ditambahkan: %d dokter, %d jadwal.", report.Doctors, report.Slots)
		if report.Skipped {
			msg = "Data dokter sudah ada."
		}
		return Result{Success: true, Code: CodeOK, Message: msg, Data: report}
	}

	if isChatCommand(cmd.Kind) {
		return d.dispatchChat(ctx, cmd)
	}
	return Result{Code: CodeUnknownCommand, Message: fmt.Sprintf("Perintah tidak dikenal: %q", cmd.Kind)}
}

func (d *Desk) dispatchChat(ctx context.Context, cmd Command) Result {
	if d.assistant == nil {
		return Result{Code: CodeInternal, Message: "Asisten belum dikonfigurasi."}
	}

	switch cmd.Kind {
	case CmdSubmitChat:
		turn, err := d.assistant.Submit(ctx, cmd.Message)
		if err != nil {
			return d.failure(cmd, err)
		}
		return Result{
			Success: true,
			Code:    CodeAccepted,
			Message: "Mengetik...",
			Data:    TurnAccepted{TurnID: turn.ID, Status: assistant.TurnSending},
		}

	case CmdChatStatus:
		turn, err := d.assistant.Turn(cmd.TurnID)
		if err != nil {
			return d.failure(cmd, err)
		}
		outcome := turn.Outcome()
		res := Result{Success: true, Code: string(outcome.Status), Data: outcome}
		switch outcome.Status {
		case assistant.TurnSucceeded:
			res.Message = outcome.Reply
		case assistant.TurnFailed:
			res.Message = outcome.Message
		default:
			res.Message = "Mengetik..."
		}
		return res

	case CmdChatTranscript:
		return Result{Success: true, Code: CodeOK, Data: ChatTranscript{
			Greeting: assistant.Greeting,
			State:    d.assistant.State(),
			Messages: d.assistant.Transcript(),
		}}

	case CmdResetChat:
		if err := d.assistant.Reset(ctx); err != nil {
			return d.failure(cmd, err)
		}
		return Result{Success: true, Code: CodeOK, Message: assistant.Greeting}
	}
	return Result{Code: CodeUnknownCommand, Message: fmt.Sprintf("Perintah tidak dikenal: %q", cmd.Kind)}
}

func (d *Desk) data(cmd Command, data any, err error) Result {
	if err != nil {
		return d.failure(cmd, err)
	}
	return Result{Success: true, Code: CodeOK, Data: data}
}

func (d *Desk) failure(cmd Command, err error) Result {
	res := Describe(err)
	if res.Code == CodeInternal {
		d.logger.Error("command failed", "command", string(cmd.Kind), "error", err)
	} else {
		d.logger.Info("command rejected", "command", string(cmd.Kind), "code", res.Code, "error", err)
	}
	return res
}

// Describe maps an engine or assistant error to the result shown to staff.
func Describe(err error) Result {
	switch {
	case err == nil:
		return Result{Success: true, Code: CodeOK}
	case errors.Is(err, scheduling.ErrInvalidBooking):
		return Result{Code: CodeInvalidRequest, Message: "Data booking belum lengkap atau tidak valid. Detail: " + err.Error()}
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		return Result{Code: CodeSlotUnavailable, Message: "Jadwal ini sudah terisi. Mohon pilih jadwal lain."}
	case errors.Is(err, scheduling.ErrBookingFailed):
		return Result{Code: CodeBookingFailed, Message: "Gagal menambahkan booking: " + err.Error()}
	case errors.Is(err, scheduling.ErrBookingNotFound):
		return Result{Code: CodeBookingNotFound, Message: "Booking tidak ditemukan."}
	case errors.Is(err, scheduling.ErrCancellationFailed):
		return Result{Code: CodeCancellationFailed, Message: "Gagal menghapus booking: " + err.Error()}
	case errors.Is(err, assistant.ErrTurnInFlight):
		return Result{Code: CodeTurnInFlight, Message: "Asisten masih memproses pesan sebelumnya. Mohon tunggu."}
	case errors.Is(err, assistant.ErrEmptyMessage):
		return Result{Code: CodeEmptyMessage, Message: "Pesan tidak boleh kosong."}
	case errors.Is(err, assistant.ErrUnknownTurn):
		return Result{Code: CodeTurnNotFound, Message: "Pesan tidak ditemukan."}
	}
	return Result{Code: CodeInternal, Message: "Terjadi kesalahan: " + err.Error()}
}

func isChatCommand(kind CommandKind) bool {
	switch kind {
	case CmdSubmitChat, CmdChatStatus, CmdChatTranscript, CmdResetChat:
		return true
	}
	return false
}

func invalidDate(date string) (Result, bool) {
	if _, err := scheduling.ParseDate(date); err != nil {
		return Result{Code: CodeInvalidRequest, Message: "Format tanggal harus YYYY-MM-DD."}, false
	}
	return Result{}, true
}
