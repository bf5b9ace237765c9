package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceVariant(t *testing.T) {
	for _, s := range []string{"ebook", "printed", "combo"} {
		v, err := ParsePriceVariant(s)
		require.NoError(t, err)
		assert.Equal(t, PriceVariant(s), v)
	}

	_, err := ParsePriceVariant("hardcover")
	require.Error(t, err)

	_, err = ParsePriceVariant("")
	require.Error(t, err)
}

func TestPriceFor(t *testing.T) {
	p := &Product{
		ID: "prod-1",
		Prices: []Price{
			{Variant: VariantEbook, Amount: decimal.RequireFromString("19.90")},
			{Variant: VariantCombo, Amount: decimal.RequireFromString("59.90")},
		},
	}

	amount, ok := p.PriceFor(VariantCombo)
	require.True(t, ok)
	assert.Equal(t, "59.90", amount.StringFixed(2))

	_, ok = p.PriceFor(VariantPrinted)
	assert.False(t, ok)
}

func TestUserHasRole(t *testing.T) {
	u := &User{Email: "admin@bookshop.dev", Roles: []string{RoleAdmin, RoleUser}}

	assert.True(t, u.HasRole(RoleAdmin))
	assert.True(t, u.HasRole(RoleUser))
	assert.False(t, (&User{}).HasRole(RoleAdmin))
}
