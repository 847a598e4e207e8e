package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/booking"
	"venuebook/entity"
)

type fakeAvailability struct {
	booked map[string][]int64
}

func (f fakeAvailability) BookedSlotIDs(_ context.Context, date time.Time, _ string) ([]int64, error) {
	return f.booked[date.Format(entity.DateFormat)], nil
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 10, 15, 30, 0, 0, time.UTC)
}

func newTestValidator(booked map[string][]int64) *booking.Validator {
	catalog := testCatalog()
	return booking.NewValidator(
		catalog,
		fakeAvailability{booked: booked},
		booking.NewPriceResolver(catalog, &fakeSchedules{}),
		10000,
		time.UTC,
		fixedNow,
	)
}

func validIntent() entity.BookingIntent {
	return entity.BookingIntent{
		EventDate:     time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		CustomerName:  "Asha Verma",
		Phone1:        "9876543210",
		Address:       "12 MG Road, Pune",
		OccasionType:  "wedding",
		SlotIDs:       []int64{1, 2},
		PaymentType:   "advance",
		PaymentMode:   "upi",
		AdvanceAmount: 25000,
	}
}

func fieldsWithRule(verrs entity.ValidationErrors, rule string) []string {
	var fields []string
	for _, v := range verrs {
		if v.Rule == rule {
			fields = append(fields, v.Field)
		}
	}
	return fields
}

func TestValidator_ValidIntent(t *testing.T) {
	v := newTestValidator(nil)

	total, verrs, err := v.Validate(context.Background(), validIntent(), "")
	require.NoError(t, err)
	assert.Empty(t, verrs)
	assert.Equal(t, entity.Money(90000), total)
}

func TestValidator_MissingFields(t *testing.T) {
	v := newTestValidator(nil)

	total, verrs, err := v.Validate(context.Background(), entity.BookingIntent{}, "")
	require.NoError(t, err)
	assert.Equal(t, entity.Money(0), total)

	required := fieldsWithRule(verrs, entity.RuleRequired)
	assert.Contains(t, required, "event_date")
	assert.Contains(t, required, "customer_name")
	assert.Contains(t, required, "phone1")
	assert.Contains(t, required, "address")
	assert.Contains(t, required, "occasion_type")
	assert.Contains(t, required, "slot_ids")
}

func TestValidator_CollectsAllViolations(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.Phone1 = "12345"
	intent.CustomerName = ""
	intent.SlotIDs = []int64{99}

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)

	assert.Contains(t, fieldsWithRule(verrs, entity.RuleFormat), "phone1")
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleRequired), "customer_name")
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleUnknownSlot), "slot_ids")
}

func TestValidator_PhoneLength(t *testing.T) {
	v := newTestValidator(nil)

	for _, phone := range []string{"123456789", "12345678901", "98765abc10"} {
		intent := validIntent()
		intent.Phone1 = phone

		_, verrs, err := v.Validate(context.Background(), intent, "")
		require.NoError(t, err)
		assert.Contains(t, fieldsWithRule(verrs, entity.RuleFormat), "phone1", "phone %q", phone)
	}
}

func TestValidator_OptionalPhone2(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.Phone2 = ""
	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Empty(t, verrs)

	intent.Phone2 = "123"
	_, verrs, err = v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleFormat), "phone2")
}

func TestValidator_PastDate(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.EventDate = time.Date(2025, 8, 9, 0, 0, 0, 0, time.UTC)

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RulePastDate), "event_date")
}

func TestValidator_TodayIsBookable(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.EventDate = time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Empty(t, verrs)
}

func TestValidator_PastDateAllowedOnEdit(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.EventDate = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	_, verrs, err := v.Validate(context.Background(), intent, "existing-booking-id")
	require.NoError(t, err)
	assert.Empty(t, verrs)
}

func TestValidator_SlotTaken(t *testing.T) {
	v := newTestValidator(map[string][]int64{
		"2025-09-20": {2},
	})

	_, verrs, err := v.Validate(context.Background(), validIntent(), "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleSlotTaken), "slot_ids")
}

func TestValidator_DuplicateSlotSelection(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.SlotIDs = []int64{1, 1}

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleInvalidValue), "slot_ids")
}

func TestValidator_AddressTooLong(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	for len(intent.Address) <= 140 {
		intent.Address += " and more"
	}

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleTooLong), "address")
}

func TestValidator_AdvanceRules(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.AdvanceAmount = 5000
	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleBelowMinimum), "advance_amount")

	intent.AdvanceAmount = 100000
	_, verrs, err = v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleExceedsTotal), "advance_amount")

	intent.AdvanceAmount = 0
	_, verrs, err = v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleRequired), "advance_amount")
}

func TestValidator_FullPaymentNeedsNoAdvance(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.PaymentType = "full"
	intent.AdvanceAmount = 0

	total, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Empty(t, verrs)
	assert.Equal(t, entity.Money(90000), total)
}

func TestValidator_InvalidPaymentEnums(t *testing.T) {
	v := newTestValidator(nil)

	intent := validIntent()
	intent.PaymentType = "installments"
	intent.PaymentMode = "cheque"

	_, verrs, err := v.Validate(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleInvalidValue), "payment_type")
	assert.Contains(t, fieldsWithRule(verrs, entity.RuleInvalidValue), "payment_mode")
}
