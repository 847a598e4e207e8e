package db

import (
	"context"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuebook/db/slots"
	"venuebook/entity"
)

func TestSlotsRepository_SeededCatalog(t *testing.T) {
	ctx := context.Background()
	repo := slots.NewPostgresRepository(GetDb(t))

	defs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	lunch, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.SlotNameLunch, lunch.Name)
	assert.Equal(t, entity.Money(40000), lunch.BasePrice)

	_, err = repo.Get(ctx, 42)
	assert.ErrorIs(t, err, entity.ErrUnknownSlot)
}

func TestSlotsRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := slots.NewPostgresRepository(GetDb(t))

	updated := entity.SlotDefinition{
		SlotID:    3,
		Name:      entity.SlotNameNight,
		Label:     "Late Night",
		TimeRange: "10pm - 7am",
		BasePrice: 48000,
	}
	require.NoError(t, repo.Upsert(ctx, updated))

	stored, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Late Night", stored.Label)
	assert.Equal(t, entity.Money(48000), stored.BasePrice)
}
