// Package fuel derives vehicle fuel efficiency from free-text expense notes
// such as "Petrol 12.5L 45230KM @104.2".
package fuel

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
)

// Efficiency thresholds in km per liter.
const (
	ExcellentMileage = 18.0
	AverageMileage   = 12.0
)

// Efficiency summaries keyed by tier.
const (
	SummaryExcellent = "Excellent efficiency! Keep maintaining your vehicle."
	SummaryAverage   = "Average efficiency. Your driving style is standard."
	SummaryLow       = "Low efficiency. Consider an engine check-up or checking tire pressure."
)

var (
	litersRe   = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*l`)
	odometerRe = regexp.MustCompile(`(?i)(\d+)\s*km`)
	priceRe    = regexp.MustCompile(`@\s*(\d+\.?\d*)`)
)

// Reading is the structured data pulled from one fuel purchase note.
type Reading struct {
	Date          time.Time
	Amount        float64
	Liters        float64
	Odometer      int64
	PricePerLiter float64
}

// Result aggregates the fuel log over all qualifying transactions.
type Result struct {
	AvgMileage        float64               `json:"avgMileage"`
	AvgCostPerKm      float64               `json:"avgCostPerKm"`
	TotalKmTracked    float64               `json:"totalKmTracked"`
	EfficiencySummary string                `json:"efficiencySummary"`
	LogPoints         []domain.FuelLogPoint `json:"logPoints"`
}

// ExtractReading parses a single transaction. It reports false when the
// transaction is not an expense or the note carries no usable liter and
// odometer markers.
func ExtractReading(tx domain.Transaction) (Reading, bool) {
	if domain.NormalizeType(tx.Type) != domain.TypeExpense {
		return Reading{}, false
	}

	lm := litersRe.FindStringSubmatch(tx.Note)
	om := odometerRe.FindStringSubmatch(tx.Note)
	if lm == nil || om == nil {
		return Reading{}, false
	}

	odometer, err := strconv.ParseInt(om[1], 10, 64)
	if err != nil || odometer <= 0 {
		return Reading{}, false
	}
	liters, err := strconv.ParseFloat(lm[1], 64)
	if err != nil {
		return Reading{}, false
	}

	r := Reading{
		Date:     tx.Date,
		Amount:   tx.Amount,
		Liters:   liters,
		Odometer: odometer,
	}

	if pm := priceRe.FindStringSubmatch(tx.Note); pm != nil {
		if p, err := strconv.ParseFloat(pm[1], 64); err == nil {
			r.PricePerLiter = p
		}
	} else if liters != 0 {
		r.PricePerLiter = tx.Amount / liters
	}

	return r, true
}

// Analyze computes mileage statistics. Readings are paired in date order, not
// odometer order; a pair whose odometer does not increase is skipped. It
// returns nil when fewer than two transactions qualify.
func Analyze(txs []domain.Transaction) *Result {
	readings := make([]Reading, 0, len(txs))
	for _, tx := range txs {
		if r, ok := ExtractReading(tx); ok {
			readings = append(readings, r)
		}
	}
	if len(readings) < 2 {
		return nil
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Date.Before(readings[j].Date)
	})

	res := &Result{LogPoints: []domain.FuelLogPoint{}}
	var totalLiters, totalCost float64

	for i := 1; i < len(readings); i++ {
		prev, curr := readings[i-1], readings[i]

		delta := curr.Odometer - prev.Odometer
		if delta <= 0 {
			continue
		}

		mileage := float64(delta) / curr.Liters
		if math.IsInf(mileage, 0) || math.IsNaN(mileage) {
			mileage = 0
		}

		res.LogPoints = append(res.LogPoints, domain.FuelLogPoint{
			Date:          curr.Date,
			Mileage:       mileage,
			Liters:        curr.Liters,
			PricePerLiter: curr.PricePerLiter,
			Odometer:      curr.Odometer,
		})

		res.TotalKmTracked += float64(delta)
		totalLiters += curr.Liters
		totalCost += curr.Amount
	}

	if totalLiters > 0 {
		res.AvgMileage = res.TotalKmTracked / totalLiters
	}
	if res.TotalKmTracked > 0 {
		res.AvgCostPerKm = totalCost / res.TotalKmTracked
	}
	res.EfficiencySummary = Summarize(res.AvgMileage)

	return res
}

// Summarize maps an average mileage to its efficiency tier text.
func Summarize(avgMileage float64) string {
	switch {
	case avgMileage > ExcellentMileage:
		return SummaryExcellent
	case avgMileage > AverageMileage:
		return SummaryAverage
	default:
		return SummaryLow
	}
}
