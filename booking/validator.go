package booking

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"venuebook/entity"
)

// The legacy booking forms disagreed on phone length (10 digits in one flow,
// 11 in another); 10 is the canonical rule, applied uniformly.
var phoneDigits = regexp.MustCompile(`^[0-9]{10}$`)

const maxAddressLen = 140

// AvailabilityReader answers which slots are already held on a date.
type AvailabilityReader interface {
	BookedSlotIDs(ctx context.Context, date time.Time, excludeBookingID string) ([]int64, error)
}

// Validator enforces every business rule on a booking intent and reports all
// violations together, field by field. The storage layer re-checks the slot
// conflict inside the commit transaction; the check here exists to give the
// caller a precise error before any commit is attempted.
type Validator struct {
	catalog        SlotCatalog
	availability   AvailabilityReader
	resolver       *PriceResolver
	minimumAdvance entity.Money
	location       *time.Location
	now            func() time.Time
}

func NewValidator(
	catalog SlotCatalog,
	availability AvailabilityReader,
	resolver *PriceResolver,
	minimumAdvance entity.Money,
	location *time.Location,
	now func() time.Time,
) *Validator {
	return &Validator{
		catalog:        catalog,
		availability:   availability,
		resolver:       resolver,
		minimumAdvance: minimumAdvance,
		location:       location,
		now:            now,
	}
}

// Validate checks the intent and returns the locked-in total for its slot
// selection. A non-empty excludeBookingID marks an edit: the booking's own
// slots don't conflict with themselves and historical dates stay editable.
// The returned total is 0 whenever the slot selection itself is invalid.
func (v *Validator) Validate(ctx context.Context, intent entity.BookingIntent, excludeBookingID string) (entity.Money, entity.ValidationErrors, error) {
	var verrs entity.ValidationErrors
	isEdit := excludeBookingID != ""

	if intent.EventDate.IsZero() {
		verrs = append(verrs, entity.FieldError{
			Field: "event_date", Rule: entity.RuleRequired, Message: "event date is required",
		})
	} else if !isEdit && entity.Day(intent.EventDate).Before(v.today()) {
		verrs = append(verrs, entity.FieldError{
			Field: "event_date", Rule: entity.RulePastDate, Message: "event date is in the past",
		})
	}

	if intent.OccasionType == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "occasion_type", Rule: entity.RuleRequired, Message: "occasion type is required",
		})
	}

	slotsOk := true
	if len(intent.SlotIDs) == 0 {
		slotsOk = false
		verrs = append(verrs, entity.FieldError{
			Field: "slot_ids", Rule: entity.RuleRequired, Message: "at least one slot must be selected",
		})
	}

	seen := map[int64]bool{}
	var defs []entity.SlotDefinition
	for _, slotID := range intent.SlotIDs {
		if seen[slotID] {
			slotsOk = false
			verrs = append(verrs, entity.FieldError{
				Field: "slot_ids", Rule: entity.RuleInvalidValue,
				Message: fmt.Sprintf("slot %d selected more than once", slotID),
			})
			continue
		}
		seen[slotID] = true

		def, err := v.catalog.Get(ctx, slotID)
		if err != nil {
			if err == entity.ErrUnknownSlot {
				slotsOk = false
				verrs = append(verrs, entity.FieldError{
					Field: "slot_ids", Rule: entity.RuleUnknownSlot,
					Message: fmt.Sprintf("slot %d does not exist", slotID),
				})
				continue
			}
			return 0, nil, err
		}
		defs = append(defs, def)
	}

	if slotsOk && !intent.EventDate.IsZero() {
		booked, err := v.availability.BookedSlotIDs(ctx, intent.EventDate, excludeBookingID)
		if err != nil {
			return 0, nil, err
		}
		bookedSet := map[int64]bool{}
		for _, id := range booked {
			bookedSet[id] = true
		}
		for _, slotID := range intent.SlotIDs {
			if bookedSet[slotID] {
				verrs = append(verrs, entity.FieldError{
					Field: "slot_ids", Rule: entity.RuleSlotTaken,
					Message: fmt.Sprintf("slot %d is already booked on %s", slotID, intent.EventDate.Format(entity.DateFormat)),
				})
			}
		}
	}

	if intent.CustomerName == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "customer_name", Rule: entity.RuleRequired, Message: "customer name is required",
		})
	}
	if intent.Phone1 == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "phone1", Rule: entity.RuleRequired, Message: "phone number is required",
		})
	} else if !phoneDigits.MatchString(intent.Phone1) {
		verrs = append(verrs, entity.FieldError{
			Field: "phone1", Rule: entity.RuleFormat, Message: "phone number must be exactly 10 digits",
		})
	}
	if intent.Phone2 != "" && !phoneDigits.MatchString(intent.Phone2) {
		verrs = append(verrs, entity.FieldError{
			Field: "phone2", Rule: entity.RuleFormat, Message: "phone number must be exactly 10 digits",
		})
	}
	if intent.Address == "" {
		verrs = append(verrs, entity.FieldError{
			Field: "address", Rule: entity.RuleRequired, Message: "address is required",
		})
	} else if len([]rune(intent.Address)) > maxAddressLen {
		verrs = append(verrs, entity.FieldError{
			Field: "address", Rule: entity.RuleTooLong,
			Message: fmt.Sprintf("address must be at most %d characters", maxAddressLen),
		})
	}

	var total entity.Money
	if slotsOk {
		var err error
		total, err = v.resolver.Quote(ctx, defs, intent.EventDate)
		if err != nil {
			return 0, nil, err
		}
	}

	switch entity.PaymentType(intent.PaymentType) {
	case entity.PaymentTypeAdvance:
		if intent.AdvanceAmount <= 0 {
			verrs = append(verrs, entity.FieldError{
				Field: "advance_amount", Rule: entity.RuleRequired, Message: "advance amount is required",
			})
		} else {
			if intent.AdvanceAmount < v.minimumAdvance {
				verrs = append(verrs, entity.FieldError{
					Field: "advance_amount", Rule: entity.RuleBelowMinimum,
					Message: fmt.Sprintf("advance must be at least %d", v.minimumAdvance),
				})
			}
			if slotsOk && intent.AdvanceAmount > total {
				verrs = append(verrs, entity.FieldError{
					Field: "advance_amount", Rule: entity.RuleExceedsTotal,
					Message: fmt.Sprintf("advance exceeds total amount %d", total),
				})
			}
		}
	case entity.PaymentTypeFull:
		// nothing more to check, the full total is due
	default:
		verrs = append(verrs, entity.FieldError{
			Field: "payment_type", Rule: entity.RuleInvalidValue, Message: "payment type must be advance or full",
		})
	}

	switch entity.PaymentMode(intent.PaymentMode) {
	case entity.PaymentModeBank, entity.PaymentModeCash, entity.PaymentModeUPI:
	default:
		verrs = append(verrs, entity.FieldError{
			Field: "payment_mode", Rule: entity.RuleInvalidValue, Message: "payment mode must be bank, cash or upi",
		})
	}

	return total, verrs, nil
}

// today is the venue-local calendar day, expressed as a UTC day for
// comparison with event dates.
func (v *Validator) today() time.Time {
	local := v.now().In(v.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
