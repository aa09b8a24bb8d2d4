package frontdesk

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/klinik-awan/pkg/logging"
)

// Handler exposes the desk over JSON HTTP.
type Handler struct {
	desk   *Desk
	logger *logging.Logger
}

// NewHandler creates the HTTP surface for a desk.
func NewHandler(desk *Desk, logger *logging.Logger) *Handler {
	if desk == nil {
		panic("frontdesk: desk required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{desk: desk, logger: logger}
}

// Register mounts the desk routes. submit wraps only POST /chat/messages.
func (h *Handler) Register(r chi.Router, submit ...func(http.Handler) http.Handler) {
	r.Get("/specialties", h.ListSpecialties)
	r.Get("/doctors", h.ListDoctors)
	r.Get("/doctors/{doctorID}/slots", h.ListSlots)
	r.Get("/availability", h.Availability)
	r.Get("/bookings", h.ListBookings)
	r.Post("/bookings", h.CreateBooking)
	r.Delete("/bookings/{bookingID}", h.CancelBooking)
	r.Post("/seed", h.Seed)

	r.Get("/chat", h.ChatTranscript)
	r.Delete("/chat", h.ResetChat)
	r.With(submit...).Post("/chat/messages", h.SubmitChat)
	r.Get("/chat/turns/{turnID}", h.ChatStatus)
}

func (h *Handler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdListSpecialties})
}

func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdListDoctors, Specialty: r.URL.Query().Get("specialty")})
}

// ListSlots serves GET /doctors/{doctorID}/slots?date=YYYY-MM-DD&include_booked=true.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctorID")
	if !ok {
		return
	}
	includeBooked, _ := strconv.ParseBool(r.URL.Query().Get("include_booked"))
	h.respond(w, r, Command{
		Kind:          CmdListSlots,
		DoctorID:      doctorID,
		Date:          r.URL.Query().Get("date"),
		IncludeBooked: includeBooked,
	})
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.respond(w, r, Command{Kind: CmdAvailability, Date: q.Get("date"), Specialty: q.Get("specialty")})
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdListBookings})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	cmd := Command{Kind: CmdCreateBooking}
	if err := json.NewDecoder(r.Body).Decode(&cmd.Booking); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	h.respond(w, r, cmd)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	h.respond(w, r, Command{Kind: CmdCancelBooking, BookingID: bookingID})
}

func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdSeedIfEmpty})
}

func (h *Handler) ChatTranscript(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdChatTranscript})
}

func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdResetChat})
}

// SubmitChat accepts a message and answers 202 with the turn id to poll.
func (h *Handler) SubmitChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	h.respond(w, r, Command{Kind: CmdSubmitChat, Message: req.Message})
}

func (h *Handler) ChatStatus(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, Command{Kind: CmdChatStatus, TurnID: chi.URLParam(r, "turnID")})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, cmd Command) {
	res := h.desk.Dispatch(r.Context(), cmd)
	status := StatusFor(res)
	if cmd.Kind == CmdCreateBooking && res.Success {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// StatusFor maps a result code to the HTTP status it is served with.
func StatusFor(res Result) int {
	switch res.Code {
	case CodeAccepted:
		return http.StatusAccepted
	case CodeInvalidRequest, CodeEmptyMessage, CodeUnknownCommand:
		return http.StatusBadRequest
	case CodeSlotUnavailable, CodeTurnInFlight:
		return http.StatusConflict
	case CodeBookingNotFound, CodeTurnNotFound:
		return http.StatusNotFound
	case CodeBookingFailed, CodeCancellationFailed, CodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Result{Code: CodeInvalidRequest, Message: "invalid " + param})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
