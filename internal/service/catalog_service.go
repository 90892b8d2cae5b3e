package service

import (
	"sort"

	"github.com/noah-isme/academy-program-api/internal/models"
	appErrors "github.com/noah-isme/academy-program-api/pkg/errors"
)

// DefaultPrograms returns the seeded catalog. Programs are immutable at
// runtime; price or duration changes ship as a new deployment.
func DefaultPrograms() []models.Program {
	return []models.Program{
		{
			ID:              "essentials",
			Name:            "Essentials",
			PricingMode:     models.PricingSubscription,
			MonthlyFeeCents: 3500,
			AnnualFeeCents:  37500,
			Years:           2,
			WeeksPerYear:    52,
		},
		{
			ID:              "foundations",
			Name:            "Foundations",
			PricingMode:     models.PricingOneTime,
			OneTimeFeeCents: 48000,
			Years:           1,
			WeeksPerYear:    24,
		},
		{
			ID:              "intensive",
			Name:            "Intensive",
			PricingMode:     models.PricingSubscription,
			MonthlyFeeCents: 5500,
			AnnualFeeCents:  59000,
			Years:           1,
			WeeksPerYear:    52,
		},
	}
}

// ProgramCatalog is the in-memory program registry. Every service that
// needs pricing or duration facts resolves them here, so fee math has a
// single source.
type ProgramCatalog struct {
	programs map[string]models.Program
	ordered  []models.Program
}

// NewProgramCatalog builds a catalog from the given programs, falling
// back to the seeded defaults when none are provided.
func NewProgramCatalog(programs ...models.Program) *ProgramCatalog {
	if len(programs) == 0 {
		programs = DefaultPrograms()
	}
	byID := make(map[string]models.Program, len(programs))
	for _, p := range programs {
		byID[p.ID] = p
	}
	ordered := make([]models.Program, 0, len(byID))
	for _, p := range byID {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &ProgramCatalog{programs: byID, ordered: ordered}
}

// List returns all programs sorted by ID.
func (c *ProgramCatalog) List() []models.Program {
	out := make([]models.Program, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Get returns the program for the given ID.
func (c *ProgramCatalog) Get(id string) (models.Program, error) {
	p, ok := c.programs[id]
	if !ok {
		return models.Program{}, appErrors.Clone(appErrors.ErrInvalidProgram, "unknown program: "+id)
	}
	return p, nil
}

// TotalFees returns the full contractual cost of a program under the
// given plan, in cents.
func (c *ProgramCatalog) TotalFees(programID string, plan models.PlanType) (int64, error) {
	p, err := c.Get(programID)
	if err != nil {
		return 0, err
	}
	if p.PricingMode == models.PricingOneTime {
		if plan != models.PlanOneTime {
			return 0, appErrors.Clone(appErrors.ErrValidation, "program is one-time priced")
		}
		return p.OneTimeFeeCents, nil
	}
	switch plan {
	case models.PlanMonthly:
		return p.MonthlyFeeCents * int64(p.DurationMonths()), nil
	case models.PlanAnnual:
		return p.AnnualFeeCents * int64(p.Years), nil
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "plan not offered for subscription program")
	}
}

// PaymentAmount returns the size of one installment under the given
// plan, in cents. For one-time programs this equals the total fee.
func (c *ProgramCatalog) PaymentAmount(programID string, plan models.PlanType) (int64, error) {
	p, err := c.Get(programID)
	if err != nil {
		return 0, err
	}
	if p.PricingMode == models.PricingOneTime {
		if plan != models.PlanOneTime {
			return 0, appErrors.Clone(appErrors.ErrValidation, "program is one-time priced")
		}
		return p.OneTimeFeeCents, nil
	}
	switch plan {
	case models.PlanMonthly:
		return p.MonthlyFeeCents, nil
	case models.PlanAnnual:
		return p.AnnualFeeCents, nil
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "plan not offered for subscription program")
	}
}
