package pdf

import (
	"strings"
	"testing"
	"time"

	"preventivo/internal/models"
	"preventivo/internal/pricing"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0,00"},
		{90, "90,00"},
		{207.4, "207,40"},
		{1234.567, "1234,57"},
		{-0.005, "-0,01"},
		{-12.34, "-12,34"},
		{-90, "-90,00"},
	}
	for _, tt := range tests {
		if got := money(tt.in); got != tt.want {
			t.Errorf("money(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderContractHTML(t *testing.T) {
	breakdown := pricing.ComputeFinalPrices([]pricing.Product{
		{Name: "Engine Unit", Price: 100, Discount: 10, Components: []pricing.Component{
			{Name: "Mount Kit", Price: 50, Quantity: 2},
		}},
	}, 20)

	html, err := RenderContractHTML(ContractData{
		Title:     "Quote n. 12",
		Company:   "Alpha S.r.l.",
		Document:  &models.Document{Discount: 20},
		Client:    ClientInfo{CompanyName: "ACME & Co", VATNumber: "IT0001"},
		Breakdown: breakdown,
		Note:      "Delivery in 4 weeks",
		Date:      time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RenderContractHTML: %v", err)
	}

	for _, want := range []string{
		"Quote n. 12",
		"ACME &amp; Co", // html-escaped
		"Engine Unit",
		"Mount Kit",
		"207,40",
		"Delivery in 4 weeks",
		"__paginationDone",
		"02/03/2025",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
}
