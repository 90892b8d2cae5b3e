package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-program-api/internal/models"
)

func TestCatalogGetUnknownProgram(t *testing.T) {
	catalog := NewProgramCatalog()
	_, err := catalog.Get("masterclass")
	require.Error(t, err)
}

func TestCatalogListSorted(t *testing.T) {
	catalog := NewProgramCatalog()
	programs := catalog.List()
	require.Len(t, programs, 3)
	assert.Equal(t, "essentials", programs[0].ID)
	assert.Equal(t, "foundations", programs[1].ID)
	assert.Equal(t, "intensive", programs[2].ID)
}

func TestCatalogTotalFees(t *testing.T) {
	catalog := NewProgramCatalog()

	fees, err := catalog.TotalFees("essentials", models.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(3500*24), fees)

	fees, err = catalog.TotalFees("essentials", models.PlanAnnual)
	require.NoError(t, err)
	assert.Equal(t, int64(37500*2), fees)

	fees, err = catalog.TotalFees("foundations", models.PlanOneTime)
	require.NoError(t, err)
	assert.Equal(t, int64(48000), fees)
}

func TestCatalogTotalFeesPlanMismatch(t *testing.T) {
	catalog := NewProgramCatalog()

	_, err := catalog.TotalFees("foundations", models.PlanMonthly)
	require.Error(t, err)

	_, err = catalog.TotalFees("intensive", models.PlanOneTime)
	require.Error(t, err)
}

func TestCatalogPaymentAmount(t *testing.T) {
	catalog := NewProgramCatalog()

	amount, err := catalog.PaymentAmount("intensive", models.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), amount)

	amount, err = catalog.PaymentAmount("intensive", models.PlanAnnual)
	require.NoError(t, err)
	assert.Equal(t, int64(59000), amount)

	amount, err = catalog.PaymentAmount("foundations", models.PlanOneTime)
	require.NoError(t, err)
	assert.Equal(t, int64(48000), amount)
}

func TestCatalogProgramShape(t *testing.T) {
	catalog := NewProgramCatalog()
	program, err := catalog.Get("essentials")
	require.NoError(t, err)
	assert.Equal(t, 104, program.TotalWeeks())
	assert.Equal(t, 24, program.DurationMonths())
}
