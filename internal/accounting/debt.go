package accounting

import (
	"math"
	"time"
)

// Loan is an amortizing infrastructure loan with monthly payments.
type Loan struct {
	Name       string    `json:"name" toml:"name"`
	Principal  float64   `json:"principal" toml:"principal"`
	AnnualRate float64   `json:"annual_rate" toml:"annual_rate"`
	TermMonths int       `json:"term_months" toml:"term_months"`
	Start      time.Time `json:"start" toml:"start"`
}

// MonthlyPayment is the level payment that retires the loan over its term.
func (l Loan) MonthlyPayment() float64 {
	if l.Principal <= 0 || l.TermMonths <= 0 {
		return 0
	}
	r := l.AnnualRate / 12
	if r == 0 {
		return l.Principal / float64(l.TermMonths)
	}
	return l.Principal * r / (1 - math.Pow(1+r, -float64(l.TermMonths)))
}

// DebtSchedule tracks how many payments each loan has made. Payments fall
// due on the first day of each month once the loan has started.
type DebtSchedule struct {
	Loans []Loan `json:"loans"`
	Paid  []int  `json:"paid"`
}

// NewDebtSchedule creates a schedule with no payments made.
func NewDebtSchedule(loans []Loan) DebtSchedule {
	return DebtSchedule{Loans: append([]Loan(nil), loans...), Paid: make([]int, len(loans))}
}

// Clone copies the payment pointers.
func (d DebtSchedule) Clone() DebtSchedule {
	return DebtSchedule{Loans: d.Loans, Paid: append([]int(nil), d.Paid...)}
}

// BeginDay advances the payment pointers and returns the amount due today.
func (d *DebtSchedule) BeginDay(date time.Time) float64 {
	if date.Day() != 1 {
		return 0
	}
	due := 0.0
	for i, l := range d.Loans {
		if date.Before(l.Start) || d.Paid[i] >= l.TermMonths {
			continue
		}
		due += l.MonthlyPayment()
		d.Paid[i]++
	}
	return due
}

// Outstanding is the remaining principal across all loans.
func (d DebtSchedule) Outstanding() float64 {
	total := 0.0
	for i, l := range d.Loans {
		n := d.Paid[i]
		if n >= l.TermMonths {
			continue
		}
		r := l.AnnualRate / 12
		if r == 0 {
			total += l.Principal * float64(l.TermMonths-n) / float64(l.TermMonths)
			continue
		}
		growth := math.Pow(1+r, float64(n))
		total += l.Principal*growth - l.MonthlyPayment()*(growth-1)/r
	}
	return total
}

// SharedCosts are the community's annual operating costs.
type SharedCosts struct {
	InfrastructureOM   float64 `json:"infrastructure_om" toml:"infrastructure_om"`
	ManagementLabor    float64 `json:"management_labor" toml:"management_labor"`
	MaintenanceLabor   float64 `json:"maintenance_labor" toml:"maintenance_labor"`
	ReplacementReserve float64 `json:"replacement_reserve" toml:"replacement_reserve"`
}

// Daily spreads the annual total evenly over 365 days.
func (s SharedCosts) Daily() float64 {
	return (s.InfrastructureOM + s.ManagementLabor + s.MaintenanceLabor + s.ReplacementReserve) / 365
}
