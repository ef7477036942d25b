package forecast

import (
	"fmt"

	"SalesCast/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// Policy holds the exogenous values assumed for future dates, conditioned on
// whether the date is an event day. It is derived once from the training
// partition; evaluation or future rows must never reach ResolvePolicy.
type Policy struct {
	EventPrice       float64 `json:"event_price"`
	NonEventPrice    float64 `json:"non_event_price"`
	EventDiscount    float64 `json:"event_discount"`
	NonEventDiscount float64 `json:"non_event_discount"`
}

// Price returns the assumed price for an event or non-event day.
func (p Policy) Price(event bool) float64 {
	if event {
		return p.EventPrice
	}
	return p.NonEventPrice
}

// Discount returns the assumed discount rate for an event or non-event day.
func (p Policy) Discount(event bool) float64 {
	if event {
		return p.EventDiscount
	}
	return p.NonEventDiscount
}

// ResolvePolicy partitions the training rows by the event flag and takes the
// mean price and discount within each partition. A partition with no members
// (short windows may have no event days) falls back to the overall mean.
func ResolvePolicy(training []models.ObservationRow) (Policy, error) {
	if len(training) == 0 {
		return Policy{}, fmt.Errorf("resolve policy: empty training partition: %w", models.ErrData)
	}

	var evPrice, nonPrice, evDisc, nonDisc []float64
	allPrice := make([]float64, 0, len(training))
	allDisc := make([]float64, 0, len(training))
	for _, r := range training {
		allPrice = append(allPrice, r.PaidPrice)
		allDisc = append(allDisc, r.DiscountRate)
		if r.Event() {
			evPrice = append(evPrice, r.PaidPrice)
			evDisc = append(evDisc, r.DiscountRate)
		} else {
			nonPrice = append(nonPrice, r.PaidPrice)
			nonDisc = append(nonDisc, r.DiscountRate)
		}
	}

	priceAll := stat.Mean(allPrice, nil)
	discAll := stat.Mean(allDisc, nil)

	return Policy{
		EventPrice:       meanOr(evPrice, priceAll),
		NonEventPrice:    meanOr(nonPrice, priceAll),
		EventDiscount:    meanOr(evDisc, discAll),
		NonEventDiscount: meanOr(nonDisc, discAll),
	}, nil
}

func meanOr(xs []float64, fallback float64) float64 {
	if len(xs) == 0 {
		return fallback
	}
	return stat.Mean(xs, nil)
}
