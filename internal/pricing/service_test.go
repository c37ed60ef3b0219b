package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCreateDefaultsCurrencyAndChecksDiscount(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), "EUR", nil)
	ctx := context.Background()

	e, err := svc.Create(ctx, CreateRequest{Name: " Consult ", Type: TypeConsultation, BasePriceCents: 5000, DiscountedPriceCents: int64Ptr(4000)})
	require.NoError(t, err)
	assert.Equal(t, "eur", e.Currency)
	assert.Equal(t, "Consult", e.Name)
	assert.EqualValues(t, 4000, e.EffectivePriceCents())
	assert.True(t, e.IsActive)

	_, err = svc.Create(ctx, CreateRequest{Name: "Bad", Type: TypeConsultation, BasePriceCents: 100, DiscountedPriceCents: int64Ptr(200)})
	assert.ErrorIs(t, err, ErrDiscountExceedsBase)

	_, err = svc.Create(ctx, CreateRequest{Name: "Bad", Type: "subscription", BasePriceCents: 100})
	assert.Error(t, err)
}

func TestUpdateIsPartial(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), "usd", nil)
	ctx := context.Background()
	e, err := svc.Create(ctx, CreateRequest{Name: "Follow up", Type: TypeFollowUp, BasePriceCents: 3000, DiscountedPriceCents: int64Ptr(2500), DurationMinutes: 15})
	require.NoError(t, err)

	lower := int64(2000)
	_, err = svc.Update(ctx, e.ID, UpdateRequest{BasePriceCents: &lower})
	assert.ErrorIs(t, err, ErrDiscountExceedsBase, "lowering the base under the discount is rejected")

	updated, err := svc.Update(ctx, e.ID, UpdateRequest{BasePriceCents: &lower, ClearDiscount: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DiscountedPriceCents)
	assert.Equal(t, "Follow up", updated.Name)
	assert.Equal(t, 15, updated.DurationMinutes)

	_, err = svc.Update(ctx, "missing", UpdateRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftAndHardDelete(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), "usd", nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateRequest{Name: "A", Type: TypePackage, BasePriceCents: 10000})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateRequest{Name: "B", Type: TypeCoins, BasePriceCents: 100})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, a.ID))
	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}
