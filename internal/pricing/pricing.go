package pricing

import (
	"math"
)

// errOutOfRange is reported when inputs are valid but too large to price.
const errOutOfRange = "value out of range"

const (
	hoursPerYear = 365 * 24
	gramsPerKg   = 1000.0
	wattsPerKw   = 1000.0
)

// FilamentInput is one material consumed by a print job.
type FilamentInput struct {
	MaterialID int64   `json:"materialId,omitempty"`
	Material   string  `json:"material"`
	CostPerKg  float64 `json:"costPerKg"`
	Weight     float64 `json:"weight"`
}

// EstimateRequest holds every parameter of a single pricing computation.
type EstimateRequest struct {
	Filaments     []FilamentInput `json:"filaments"`
	PrintHours    float64         `json:"printHours"`
	PrintMins     float64         `json:"printMins"`
	LaborMins     float64         `json:"laborMins"`
	HardwareCost  float64         `json:"hardwareCost"`
	PackagingCost float64         `json:"packagingCost"`
	VatRate       float64         `json:"vatRate"`
	LaborRate     float64         `json:"laborRate"`
	Efficiency    float64         `json:"efficiency"`
	PrinterCost   float64         `json:"printerCost"`
	UpfrontCost   float64         `json:"upfrontCost"`
	Maintenance   float64         `json:"maintenance"`
	PrinterLife   float64         `json:"printerLife"`
	Uptime        float64         `json:"uptime"`
	PowerW        float64         `json:"powerW"`
	EnergyRate    float64         `json:"energyRate"`
	BufferFactor  float64         `json:"bufferFactor"`
	CustomMargin  float64         `json:"customMargin"`
}

// CostBreakdown contains the line items of the landed cost, rounded to cents.
type CostBreakdown struct {
	MaterialCost  float64 `json:"materialCost"`
	LaborCost     float64 `json:"laborCost"`
	MachineCost   float64 `json:"machineCost"`
	HardwareCost  float64 `json:"hardwareCost"`
	PackagingCost float64 `json:"packagingCost"`
	BaseLanded    float64 `json:"baseLanded"`
	BufferedCost  float64 `json:"bufferedCost"`
}

// PrinterMetrics contains the derived hourly machine figures.
type PrinterMetrics struct {
	ProductiveHours  float64 `json:"productiveHours"`
	PrinterCostPerHr float64 `json:"printerCostPerHr"`
	EnergyCostPerHr  float64 `json:"energyCostPerHr"`
	HourlyRate       float64 `json:"hourlyRate"`
	TotalPrintHours  float64 `json:"totalPrintHours"`
}

// TierPrice is the suggested price for one margin tier.
type TierPrice struct {
	Margin   float64 `json:"margin"`
	Price    float64 `json:"price"`
	PriceVat float64 `json:"priceVat"`
}

// SuggestedPrices maps a tier name to its price.
type SuggestedPrices map[string]TierPrice

// Estimate groups the full output of CalculateFullPrice.
type Estimate struct {
	Breakdown       CostBreakdown   `json:"breakdown"`
	PrinterMetrics  PrinterMetrics  `json:"printerMetrics"`
	SuggestedPrices SuggestedPrices `json:"suggestedPrices"`
}

// Estimator computes estimates against a fixed set of margin tiers.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	tiers Tiers
}

// NewEstimator returns an Estimator for the given tiers.
func NewEstimator(tiers Tiers) (*Estimator, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{tiers: tiers.Normalize()}, nil
}

// Tiers returns a copy of the configured tiers.
func (e *Estimator) Tiers() Tiers {
	return e.tiers.clone()
}

var defaultEstimator = &Estimator{tiers: DefaultTiers()}

// CalculateFullPrice runs the estimate with DefaultTiers.
func CalculateFullPrice(req EstimateRequest) (Estimate, error) {
	return defaultEstimator.CalculateFullPrice(req)
}

// CalculateFinalPrice applies margin and then tax on top of base, rounded to cents.
// Margin and tax are not range-checked; a negative margin models a discount.
func CalculateFinalPrice(base, margin, taxPercent float64) (float64, error) {
	if base < 0 {
		return 0, invalidInput("invalid base price")
	}
	withMargin := base * (1 + margin/100)
	price := round2(withMargin * (1 + taxPercent/100))
	if !finite(price) {
		return 0, invalidInput(errOutOfRange)
	}
	return price, nil
}

// CalculateFullPrice computes the cost breakdown, printer metrics and the suggested
// price of every tier plus the request's custom margin.
func (e *Estimator) CalculateFullPrice(req EstimateRequest) (Estimate, error) {
	if err := validate(req); err != nil {
		return Estimate{}, err
	}

	var filamentCost float64
	for _, f := range req.Filaments {
		filamentCost += (f.CostPerKg / gramsPerKg) * f.Weight
	}
	materialCost := round2(filamentCost * req.Efficiency)

	laborCost := round2((req.LaborMins / 60) * req.LaborRate)

	productiveHours := req.PrinterLife * hoursPerYear * (req.Uptime / 100)
	var printerCostPerHr float64
	if productiveHours > 0 {
		printerCostPerHr = (req.PrinterCost + req.UpfrontCost + req.Maintenance) / productiveHours
	}
	energyCostPerHr := (req.PowerW / wattsPerKw) * req.EnergyRate
	hourlyRate := printerCostPerHr + energyCostPerHr

	totalPrintHours := req.PrintHours + req.PrintMins/60
	machineCost := round2(totalPrintHours * hourlyRate)

	baseLanded := round2(materialCost + laborCost + machineCost + req.HardwareCost + req.PackagingCost)
	bufferedCost := baseLanded * req.BufferFactor

	prices := make(SuggestedPrices, len(e.tiers)+1)
	for _, t := range e.tiers {
		prices[t.Name] = tierPrice(bufferedCost, t.Margin, req.VatRate)
	}
	prices[CustomTier] = tierPrice(bufferedCost, req.CustomMargin, req.VatRate)

	est := Estimate{
		Breakdown: CostBreakdown{
			MaterialCost:  materialCost,
			LaborCost:     laborCost,
			MachineCost:   machineCost,
			HardwareCost:  round2(req.HardwareCost),
			PackagingCost: round2(req.PackagingCost),
			BaseLanded:    baseLanded,
			BufferedCost:  round2(bufferedCost),
		},
		PrinterMetrics: PrinterMetrics{
			ProductiveHours:  round2(productiveHours),
			PrinterCostPerHr: round4(printerCostPerHr),
			EnergyCostPerHr:  round4(energyCostPerHr),
			HourlyRate:       round4(hourlyRate),
			TotalPrintHours:  round4(totalPrintHours),
		},
		SuggestedPrices: prices,
	}
	if !est.finite() {
		return Estimate{}, invalidInput(errOutOfRange)
	}
	return est, nil
}

// finite reports whether every figure can be encoded as a JSON number.
func (e Estimate) finite() bool {
	b, m := e.Breakdown, e.PrinterMetrics
	if !finite(b.MaterialCost, b.LaborCost, b.MachineCost, b.HardwareCost, b.PackagingCost,
		b.BaseLanded, b.BufferedCost, m.ProductiveHours, m.PrinterCostPerHr,
		m.EnergyCostPerHr, m.HourlyRate, m.TotalPrintHours) {
		return false
	}
	for _, p := range e.SuggestedPrices {
		if !finite(p.Margin, p.Price, p.PriceVat) {
			return false
		}
	}
	return true
}

// tierPrice derives priceVat from the already rounded price so the two figures
// shown to a customer always agree.
func tierPrice(bufferedCost, margin, vatRate float64) TierPrice {
	price := math.Max(0, round2(bufferedCost*(1+margin/100)))
	return TierPrice{
		Margin:   margin,
		Price:    price,
		PriceVat: round2(price * (1 + vatRate/100)),
	}
}

func validate(req EstimateRequest) error {
	if len(req.Filaments) == 0 {
		return invalidInput("at least one filament is required")
	}
	if !(req.Uptime >= 1 && req.Uptime <= 100) {
		return invalidInput("invalid uptime (1–100)")
	}
	if !(req.PrinterLife > 0) {
		return invalidInput("invalid printer lifetime")
	}
	if !(req.BufferFactor >= 1) {
		return invalidInput("buffer factor must be >= 1")
	}

	for _, f := range req.Filaments {
		if err := nonNegative("costPerKg", f.CostPerKg); err != nil {
			return err
		}
		if err := nonNegative("weight", f.Weight); err != nil {
			return err
		}
	}

	checks := []struct {
		field string
		value float64
	}{
		{"printHours", req.PrintHours},
		{"printMins", req.PrintMins},
		{"laborMins", req.LaborMins},
		{"hardwareCost", req.HardwareCost},
		{"packagingCost", req.PackagingCost},
		{"vatRate", req.VatRate},
		{"laborRate", req.LaborRate},
		{"efficiency", req.Efficiency},
		{"printerCost", req.PrinterCost},
		{"upfrontCost", req.UpfrontCost},
		{"maintenance", req.Maintenance},
		{"powerW", req.PowerW},
		{"energyRate", req.EnergyRate},
	}
	for _, c := range checks {
		if err := nonNegative(c.field, c.value); err != nil {
			return err
		}
	}
	return nil
}

func nonNegative(field string, value float64) error {
	if value < 0 || math.IsNaN(value) {
		return invalidInput(field + " must be >= 0")
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
