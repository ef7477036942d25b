package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"SalesCast/internal/domain/models"
)

func policyRows() []models.ObservationRow {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.ObservationRow, 0, 6)
	for i := 0; i < 6; i++ {
		r := models.ObservationRow{
			Date:         start.AddDate(0, 0, i),
			Platform:     "shopee",
			PaidPrice:    100,
			DiscountRate: 0.10,
		}
		if i%3 == 0 {
			r.Payday = true
			r.PaidPrice = 200
			r.DiscountRate = 0.40
		}
		rows = append(rows, r)
	}
	return rows
}

func TestResolvePolicyPartitionsByEvent(t *testing.T) {
	pol, err := ResolvePolicy(policyRows())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pol.EventPrice != 200 || pol.NonEventPrice != 100 {
		t.Fatalf("prices = %v/%v, want 200/100", pol.EventPrice, pol.NonEventPrice)
	}
	if math.Abs(pol.EventDiscount-0.40) > 1e-9 || math.Abs(pol.NonEventDiscount-0.10) > 1e-9 {
		t.Fatalf("discounts = %v/%v, want 0.40/0.10", pol.EventDiscount, pol.NonEventDiscount)
	}
	if pol.Price(true) != 200 || pol.Price(false) != 100 {
		t.Fatalf("Price accessor inconsistent")
	}
}

func TestResolvePolicyFallsBackToOverallMean(t *testing.T) {
	rows := policyRows()
	for i := range rows {
		rows[i].Payday = false
		rows[i].MegaSale = false
	}
	pol, err := ResolvePolicy(rows)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	overall := (200.0 + 100 + 100 + 200 + 100 + 100) / 6
	if math.Abs(pol.EventPrice-overall) > 1e-9 {
		t.Fatalf("event price = %v, want overall mean %v", pol.EventPrice, overall)
	}
	if pol.NonEventPrice != pol.EventPrice {
		t.Fatalf("with no event days both partitions should match the overall mean")
	}
}

func TestResolvePolicyEmptyTraining(t *testing.T) {
	if _, err := ResolvePolicy(nil); !errors.Is(err, models.ErrData) {
		t.Fatalf("got %v, want data error", err)
	}
}
