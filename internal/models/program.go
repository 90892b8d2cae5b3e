package models

// PricingMode distinguishes flat-fee programs from recurring ones.
type PricingMode string

// Supported pricing modes.
const (
	PricingOneTime      PricingMode = "ONE_TIME"
	PricingSubscription PricingMode = "SUBSCRIPTION"
)

// PlanType selects how a subscription program is billed.
type PlanType string

// Supported plan types.
const (
	PlanOneTime PlanType = "ONE_TIME"
	PlanMonthly PlanType = "MONTHLY"
	PlanAnnual  PlanType = "ANNUAL"
)

// Program describes one offering in the catalog. Programs are immutable
// and seeded at startup; all amounts are integer cents.
type Program struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	PricingMode     PricingMode `json:"pricing_mode"`
	OneTimeFeeCents int64       `json:"one_time_fee_cents,omitempty"`
	MonthlyFeeCents int64       `json:"monthly_fee_cents,omitempty"`
	AnnualFeeCents  int64       `json:"annual_fee_cents,omitempty"`
	Years           int         `json:"years"`
	WeeksPerYear    int         `json:"weeks_per_year"`
}

// DurationMonths returns the billing horizon for monthly plans.
func (p Program) DurationMonths() int {
	return p.Years * 12
}

// TotalWeeks returns the full span of the schedule grid.
func (p Program) TotalWeeks() int {
	return p.Years * p.WeeksPerYear
}
