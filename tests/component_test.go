package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"venuebook/config"
	"venuebook/entity"
	"venuebook/service"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var httpAddress = "http://localhost:8080"

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	cfg := config.Config{
		HTTPAddr:       ":8080",
		PostgresURL:    postgresURL,
		RedisAddr:      redisAddr,
		MinimumAdvance: 10000,
		VenueTimezone:  "UTC",
	}

	done := make(chan struct{})
	go func() {
		<-done
		e := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		require.NoError(t, e)
	}()

	finished := make(chan struct{})
	go func() {
		svc := service.New(cfg, dbconn, redisClient, time.UTC)
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		close(done)
		<-finished
	}()

	waitForHttpServer(t)

	eventDate := time.Now().UTC().AddDate(0, 2, 0).Format(entity.DateFormat)

	// a booking over two slots locks in the sum of both base prices
	created := createBooking(t, bookingPayload(eventDate, []int64{1, 2}))
	assert.Equal(t, int64(90000), created["total_amount"])
	assert.Equal(t, int64(25000), created["advance_amount"])
	assert.Equal(t, int64(65000), created["balance_amount"])
	bookingID := created["booking_id"].(string)

	// double-booking any of the held slots is rejected
	resp := postBooking(t, bookingPayload(eventDate, []int64{2, 3}))
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// slot 3 stayed free: the conflicting request reserved nothing
	availability := getJSON(t, fmt.Sprintf("%s/availability/%s", httpAddress, eventDate))
	assert.ElementsMatch(t, []any{float64(1), float64(2)}, availability["booked_slot_ids"])
	assert.ElementsMatch(t, []any{float64(3)}, availability["available_slot_ids"])
	assert.Equal(t, true, availability["open_for_new_bookings"])

	// validation failures report every violated field at once
	invalid := bookingPayload(eventDate, []int64{3})
	invalid["phone1"] = "123"
	invalid["customer_name"] = ""
	resp = postBooking(t, invalid)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody struct {
		Errors []fieldError `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	fields := lo.Map(errBody.Errors, func(e fieldError, _ int) string {
		return e.Field
	})
	assert.Contains(t, fields, "phone1")
	assert.Contains(t, fields, "customer_name")

	// scheduled prices apply by event date, not by wall clock
	futureFrom := time.Now().UTC().AddDate(0, 1, 0).Format(entity.DateFormat)
	putJSON(t, httpAddress+"/pricing/Night", map[string]any{
		"current_price":  45000,
		"future_price":   52000,
		"effective_from": futureFrom,
	}, http.StatusOK)

	// the price change travels through the outbox into the data lake
	assertEventInDataLake(t, dbconn, "entity.PricingScheduleUpdated")

	nightBooking := createBooking(t, bookingPayload(eventDate, []int64{3}))
	assert.Equal(t, int64(52000), nightBooking["total_amount"])

	// the occupancy projection catches up through the outbox and event handlers
	assertOccupancyEventually(t, eventDate, bookingID)

	// archive frees the slots but keeps the record
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/bookings/%s", httpAddress, bookingID), nil)
	require.NoError(t, err)
	req.Header.Set("Correlation-ID", shortuuid.New())
	deleteResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer deleteResp.Body.Close()
	require.Equal(t, http.StatusOK, deleteResp.StatusCode)

	var archived map[string]any
	require.NoError(t, json.NewDecoder(deleteResp.Body).Decode(&archived))
	assert.Equal(t, bookingID, archived["original_booking_id"])

	getResp, err := http.Get(fmt.Sprintf("%s/bookings/%s", httpAddress, bookingID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)

	availability = getJSON(t, fmt.Sprintf("%s/availability/%s", httpAddress, eventDate))
	assert.ElementsMatch(t, []any{float64(3)}, availability["booked_slot_ids"])

	archiveList := getJSON(t, fmt.Sprintf("%s/bookings/archive?from=%s&to=%s", httpAddress, eventDate, eventDate))
	archivedBookings := archiveList["bookings"].([]any)
	require.Len(t, archivedBookings, 1)
}

func bookingPayload(eventDate string, slotIDs []int64) map[string]any {
	return map[string]any{
		"event_date":     eventDate,
		"customer_name":  "Asha Verma",
		"phone1":         "9876543210",
		"address":        "12 MG Road, Pune",
		"occasion_type":  "wedding",
		"slot_ids":       slotIDs,
		"payment_type":   "advance",
		"payment_mode":   "upi",
		"advance_amount": 25000,
	}
}

func postBooking(t *testing.T, payload map[string]any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, httpAddress+"/bookings", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Correlation-ID", shortuuid.New())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func createBooking(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()

	resp := postBooking(t, payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// JSON numbers decode as float64
	for _, key := range []string{"total_amount", "advance_amount", "balance_amount"} {
		created[key] = int64(created[key].(float64))
	}
	return created
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func putJSON(t *testing.T, url string, payload map[string]any, expectedStatus int) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)
}

func assertOccupancyEventually(t *testing.T, date string, bookingID string) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(fmt.Sprintf("%s/ops/occupancy/%s", httpAddress, date))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var occupancy struct {
				Bookings map[string]any `json:"bookings"`
			}
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&occupancy)) {
				return
			}
			assert.Contains(t, occupancy.Bookings, bookingID)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func assertEventInDataLake(t *testing.T, dbconn *sqlx.DB, eventName string) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			var count int
			err := dbconn.Get(&count, `SELECT count(*) FROM events WHERE event_name = $1`, eventName)
			if !assert.NoError(t, err) {
				return
			}
			assert.GreaterOrEqual(t, count, 1)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(httpAddress + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
