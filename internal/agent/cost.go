package agent

import "time"

// Compute is billed as a flat yearly amount spread over every second of the year.
const (
	DefaultYearlyComputeCostCents = 1500
	hoursInYear                   = 365 * 24
)

// CostPerSecondCents is the compute cost of one second of generation in cents.
func CostPerSecondCents(yearlyCents float64) float64 {
	return yearlyCents / hoursInYear / 3600
}

// ComputeCostCents prices a generation that ran for d.
func ComputeCostCents(yearlyCents float64, d time.Duration) float64 {
	return CostPerSecondCents(yearlyCents) * d.Seconds()
}
