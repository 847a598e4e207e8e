package db

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/db/pricing"
	"venuebook/entity"
)

func TestPricingRepository_SetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := pricing.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	future := entity.Money(45000)
	effectiveFrom := entity.Day(time.Now().UTC().AddDate(0, 1, 0))

	require.NoError(t, repo.Set(ctx, entity.PricingSchedule{
		SlotName:      entity.SlotNameLunch,
		CurrentPrice:  40000,
		FuturePrice:   &future,
		EffectiveFrom: &effectiveFrom,
	}))

	stored, err := repo.GetBySlotName(ctx, entity.SlotNameLunch)
	require.NoError(t, err)
	assert.Equal(t, entity.Money(40000), stored.CurrentPrice)
	require.NotNil(t, stored.FuturePrice)
	assert.Equal(t, entity.Money(45000), *stored.FuturePrice)
	require.NotNil(t, stored.EffectiveFrom)
	assert.Equal(t, effectiveFrom, entity.Day(*stored.EffectiveFrom))

	// the future price already applies to event dates past the effective date
	assert.Equal(t, entity.Money(45000), stored.PriceOn(effectiveFrom.AddDate(0, 0, 5)))
	assert.Equal(t, entity.Money(40000), stored.PriceOn(effectiveFrom.AddDate(0, 0, -5)))
}

func TestPricingRepository_GetBySlotName_notFound(t *testing.T) {
	ctx := context.Background()
	repo := pricing.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	_, err := repo.GetBySlotName(ctx, "Brunch")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPricingRepository_PromotesDueSchedules(t *testing.T) {
	ctx := context.Background()
	repo := pricing.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	future := entity.Money(60000)
	effectiveFrom := entity.Day(time.Now().UTC().AddDate(0, 0, -1))

	require.NoError(t, repo.Set(ctx, entity.PricingSchedule{
		SlotName:      entity.SlotNameReception,
		CurrentPrice:  50000,
		FuturePrice:   &future,
		EffectiveFrom: &effectiveFrom,
	}))

	// reading rolls the schedule over: the due future price is now current
	stored, err := repo.GetBySlotName(ctx, entity.SlotNameReception)
	require.NoError(t, err)
	assert.Equal(t, entity.Money(60000), stored.CurrentPrice)
	assert.Nil(t, stored.FuturePrice)
	assert.Nil(t, stored.EffectiveFrom)
}

func TestPricingRepository_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := pricing.NewPostgresRepository(GetDb(t), watermill.NopLogger{})

	future := entity.Money(50000)
	effectiveFrom := entity.Day(time.Now().UTC().AddDate(0, 2, 0))

	require.NoError(t, repo.Set(ctx, entity.PricingSchedule{
		SlotName:      entity.SlotNameNight,
		CurrentPrice:  45000,
		FuturePrice:   &future,
		EffectiveFrom: &effectiveFrom,
	}))

	// clearing the future fields cancels the scheduled change
	require.NoError(t, repo.Set(ctx, entity.PricingSchedule{
		SlotName:     entity.SlotNameNight,
		CurrentPrice: 47000,
	}))

	stored, err := repo.GetBySlotName(ctx, entity.SlotNameNight)
	require.NoError(t, err)
	assert.Equal(t, entity.Money(47000), stored.CurrentPrice)
	assert.Nil(t, stored.FuturePrice)
	assert.Nil(t, stored.EffectiveFrom)
}

func TestPricingRepository_SetWritesOutboxEvent(t *testing.T) {
	ctx := context.Background()
	database := GetDb(t)
	repo := pricing.NewPostgresRepository(database, watermill.NopLogger{})

	var before int
	require.NoError(t, database.GetContext(ctx, &before, `SELECT count(*) FROM watermill_events_to_forward`))

	require.NoError(t, repo.Set(ctx, entity.PricingSchedule{
		SlotName:     entity.SlotNameLunch,
		CurrentPrice: 41000,
	}))

	// the event is committed together with the schedule, not after it
	var after int
	require.NoError(t, database.GetContext(ctx, &after, `SELECT count(*) FROM watermill_events_to_forward`))
	assert.Equal(t, before+1, after)
}
