package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"venuebook/entity"
)

type bookingRequest struct {
	EventDate     string  `json:"event_date"`
	CustomerName  string  `json:"customer_name"`
	Phone1        string  `json:"phone1"`
	Phone2        string  `json:"phone2"`
	GroomName     string  `json:"groom_name"`
	BrideName     string  `json:"bride_name"`
	Address       string  `json:"address"`
	OccasionType  string  `json:"occasion_type"`
	Notes         string  `json:"notes"`
	SlotIDs       []int64 `json:"slot_ids"`
	PaymentType   string  `json:"payment_type"`
	PaymentMode   string  `json:"payment_mode"`
	AdvanceAmount int64   `json:"advance_amount"`
}

func (r bookingRequest) toIntent() (entity.BookingIntent, error) {
	var eventDate time.Time
	if r.EventDate != "" {
		var err error
		eventDate, err = time.Parse(entity.DateFormat, r.EventDate)
		if err != nil {
			return entity.BookingIntent{}, entity.ValidationErrors{{
				Field: "event_date", Rule: entity.RuleFormat,
				Message: fmt.Sprintf("event date must be formatted as %s", entity.DateFormat),
			}}
		}
	}

	return entity.BookingIntent{
		EventDate:     eventDate,
		CustomerName:  r.CustomerName,
		Phone1:        r.Phone1,
		Phone2:        r.Phone2,
		GroomName:     r.GroomName,
		BrideName:     r.BrideName,
		Address:       r.Address,
		OccasionType:  r.OccasionType,
		Notes:         r.Notes,
		SlotIDs:       r.SlotIDs,
		PaymentType:   r.PaymentType,
		PaymentMode:   r.PaymentMode,
		AdvanceAmount: entity.Money(r.AdvanceAmount),
	}, nil
}

type bookingResponse struct {
	BookingID     string  `json:"booking_id"`
	EventDate     string  `json:"event_date"`
	CustomerName  string  `json:"customer_name"`
	Phone1        string  `json:"phone1"`
	Phone2        string  `json:"phone2,omitempty"`
	GroomName     string  `json:"groom_name,omitempty"`
	BrideName     string  `json:"bride_name,omitempty"`
	Address       string  `json:"address"`
	OccasionType  string  `json:"occasion_type"`
	Notes         string  `json:"notes,omitempty"`
	SlotIDs       []int64 `json:"slot_ids"`
	PaymentType   string  `json:"payment_type"`
	PaymentMode   string  `json:"payment_mode"`
	AdvanceAmount int64   `json:"advance_amount"`
	TotalAmount   int64   `json:"total_amount"`
	BalanceAmount int64   `json:"balance_amount"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toBookingResponse(b entity.Booking) bookingResponse {
	return bookingResponse{
		BookingID:     b.BookingID,
		EventDate:     b.EventDate.Format(entity.DateFormat),
		CustomerName:  b.CustomerName,
		Phone1:        b.Phone1,
		Phone2:        b.Phone2,
		GroomName:     b.GroomName,
		BrideName:     b.BrideName,
		Address:       b.Address,
		OccasionType:  b.OccasionType,
		Notes:         b.Notes,
		SlotIDs:       b.SlotIDs,
		PaymentType:   string(b.PaymentType),
		PaymentMode:   string(b.PaymentMode),
		AdvanceAmount: int64(b.AdvanceAmount),
		TotalAmount:   int64(b.TotalAmount),
		BalanceAmount: int64(b.BalanceAmount),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

type archivedBookingResponse struct {
	DeletedBookingID  string  `json:"deleted_booking_id"`
	OriginalBookingID string  `json:"original_booking_id"`
	EventDate         string  `json:"event_date"`
	CustomerName      string  `json:"customer_name"`
	Phone1            string  `json:"phone1"`
	Phone2            string  `json:"phone2,omitempty"`
	GroomName         string  `json:"groom_name,omitempty"`
	BrideName         string  `json:"bride_name,omitempty"`
	Address           string  `json:"address"`
	OccasionType      string  `json:"occasion_type"`
	Notes             string  `json:"notes,omitempty"`
	SlotIDs           []int64 `json:"slot_ids"`
	PaymentType       string  `json:"payment_type"`
	PaymentMode       string  `json:"payment_mode"`
	AdvanceAmount     int64   `json:"advance_amount"`
	TotalAmount       int64   `json:"total_amount"`
	BalanceAmount     int64   `json:"balance_amount"`
	CreatedAt         string  `json:"created_at"`
	DeletedAt         string  `json:"deleted_at"`
}

func toArchivedBookingResponse(d entity.DeletedBooking) archivedBookingResponse {
	return archivedBookingResponse{
		DeletedBookingID:  d.DeletedBookingID,
		OriginalBookingID: d.OriginalBookingID,
		EventDate:         d.EventDate.Format(entity.DateFormat),
		CustomerName:      d.CustomerName,
		Phone1:            d.Phone1,
		Phone2:            d.Phone2,
		GroomName:         d.GroomName,
		BrideName:         d.BrideName,
		Address:           d.Address,
		OccasionType:      d.OccasionType,
		Notes:             d.Notes,
		SlotIDs:           d.SlotIDs,
		PaymentType:       string(d.PaymentType),
		PaymentMode:       string(d.PaymentMode),
		AdvanceAmount:     int64(d.AdvanceAmount),
		TotalAmount:       int64(d.TotalAmount),
		BalanceAmount:     int64(d.BalanceAmount),
		CreatedAt:         d.CreatedAt.Format(time.RFC3339),
		DeletedAt:         d.DeletedAt.Format(time.RFC3339),
	}
}

func (s *Server) PostBooking(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	intent, err := req.toIntent()
	if err != nil {
		return err
	}

	booking, err := s.bookings.CreateBooking(c.Request().Context(), intent)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (s *Server) PutBooking(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	intent, err := req.toIntent()
	if err != nil {
		return err
	}

	booking, err := s.bookings.UpdateBooking(c.Request().Context(), c.Param("booking_id"), intent)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (s *Server) DeleteBooking(c echo.Context) error {
	archived, err := s.bookings.ArchiveBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toArchivedBookingResponse(archived))
}

func (s *Server) GetBooking(c echo.Context) error {
	booking, err := s.bookings.GetBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookingResponse(booking))
}

// GetBookings lists bookings either for a single date (?date=) or for a range
// (?from=&to=), optionally filtered by ?occasion=.
func (s *Server) GetBookings(c echo.Context) error {
	ctx := c.Request().Context()

	if date := c.QueryParam("date"); date != "" {
		day, err := time.Parse(entity.DateFormat, date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted as "+entity.DateFormat)
		}
		bookings, err := s.bookings.BookingsForDate(ctx, day)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"bookings": lo.Map(bookings, func(b entity.Booking, _ int) bookingResponse {
				return toBookingResponse(b)
			}),
		})
	}

	from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	bookings, err := s.bookings.ListBookings(ctx, from, to, entity.BookingFilter{
		OccasionType: c.QueryParam("occasion"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"bookings": lo.Map(bookings, func(b entity.Booking, _ int) bookingResponse {
			return toBookingResponse(b)
		}),
	})
}

func (s *Server) GetArchivedBookings(c echo.Context) error {
	from, to, err := parseRange(c)
	if err != nil {
		return err
	}

	archived, err := s.bookings.ListArchivedBookings(c.Request().Context(), from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"bookings": lo.Map(archived, func(d entity.DeletedBooking, _ int) archivedBookingResponse {
			return toArchivedBookingResponse(d)
		}),
	})
}

func parseRange(c echo.Context) (time.Time, time.Time, error) {
	from, err := time.Parse(entity.DateFormat, c.QueryParam("from"))
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "from must be formatted as "+entity.DateFormat)
	}
	to, err := time.Parse(entity.DateFormat, c.QueryParam("to"))
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "to must be formatted as "+entity.DateFormat)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "to must not be before from")
	}
	return from, to, nil
}
