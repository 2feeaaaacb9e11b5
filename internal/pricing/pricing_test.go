package pricing

import (
	"errors"
	"testing"
)

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 0.001 && diff > -0.001
}

func boolPtr(b bool) *bool { return &b }

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		discount float64
		want     float64
	}{
		{"10% off 100", 100, 10, 90},
		{"zero discount is identity", 49.99, 0, 49.99},
		{"full discount", 250, 100, 0},
		{"rounding to two decimals", 99.99, 33, 66.99},
		{"third of ten", 10, 33.3333, 6.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountedPrice(tt.price, tt.discount); !almostEqual(got, tt.want) {
				t.Errorf("DiscountedPrice(%v, %v) = %v, want %v", tt.price, tt.discount, got, tt.want)
			}
		})
	}
}

func TestComputeFinalPrices_Empty(t *testing.T) {
	b := ComputeFinalPrices(nil, 0)
	if b.TotalAll != 0 {
		t.Errorf("TOTAL_ALL = %v, want 0", b.TotalAll)
	}
	if b.TotalAllWithTaxes != 0 {
		t.Errorf("TOTAL_ALL_WITH_TAXES = %v, want 0", b.TotalAllWithTaxes)
	}
	if len(b.Records) != 0 {
		t.Errorf("records = %d, want 0", len(b.Records))
	}
}

// The worked example from the pricing contract: one product at 100 with a 10%
// discount plus one included component at 50, quantity 2, no discount, and a
// root discount of 20 currency units.
func TestComputeFinalPrices_WorkedExample(t *testing.T) {
	products := []Product{
		{
			Name:     "Engine Unit",
			Price:    100,
			Discount: 10,
			Components: []Component{
				{Name: "Mount Kit", Price: 50, Quantity: 2},
			},
		},
	}

	b := ComputeFinalPrices(products, 20)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"TOTAL_BASE_PRICE", b.TotalBasePrice, 100},
		{"TOTAL_BASE_PRICE_DISCOUNTED", b.TotalBasePriceDiscounted, 90},
		{"TOTAL_ACCESSORIES", b.TotalAccessories, 100},
		{"TOTAL_ACCESSORIES_DISCOUNTED", b.TotalAccessoriesDiscounted, 100},
		{"TOTAL_ALL", b.TotalAll, 200},
		{"TOTAL_ALL_DISCOUNTED", b.TotalAllDiscounted, 190},
		{"TOTAL_WITH_DISCOUNT", b.TotalWithDiscount, 170},
		{"TOTAL_ALL_WITH_TAXES", b.TotalAllWithTaxes, 207.40},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	// One record for the product, one for the included component.
	if len(b.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(b.Records))
	}
	if b.Records[0].Name != "Engine Unit" || b.Records[1].Name != "Mount Kit" {
		t.Errorf("record order = %q, %q", b.Records[0].Name, b.Records[1].Name)
	}
	if b.Records[1].Quantity != 2 {
		t.Errorf("component record quantity = %v, want 2", b.Records[1].Quantity)
	}
}

func TestComputeFinalPrices_ExcludedComponents(t *testing.T) {
	products := []Product{
		{
			Name:  "Base",
			Price: 100,
			Components: []Component{
				{Name: "Excluded", Price: 500, Included: boolPtr(false)},
				{Name: "Explicitly included", Price: 10, Included: boolPtr(true)},
				{Name: "Implicitly included", Price: 5},
			},
		},
	}

	b := ComputeFinalPrices(products, 0)
	if !almostEqual(b.TotalAccessories, 15) {
		t.Errorf("TOTAL_ACCESSORIES = %v, want 15", b.TotalAccessories)
	}
	if !almostEqual(b.TotalAccessoriesDiscounted, 15) {
		t.Errorf("TOTAL_ACCESSORIES_DISCOUNTED = %v, want 15", b.TotalAccessoriesDiscounted)
	}
	for _, r := range b.Records {
		if r.Name == "Excluded" {
			t.Error("excluded component must not appear in ALL_PRICE_RECORDS")
		}
	}
	// The excluded component still carries a discounted price for display.
	if len(b.Products[0].Components) != 3 {
		t.Errorf("priced components = %d, want 3", len(b.Products[0].Components))
	}
}

func TestComputeFinalPrices_RootDiscountFloor(t *testing.T) {
	products := []Product{{Name: "Cheap", Price: 30, Components: []Component{}}}
	b := ComputeFinalPrices(products, 1000)
	if b.TotalWithDiscount != 0 {
		t.Errorf("TOTAL_WITH_DISCOUNT = %v, want floor at 0", b.TotalWithDiscount)
	}
	if b.TotalAllWithTaxes != 0 {
		t.Errorf("TOTAL_ALL_WITH_TAXES = %v, want 0", b.TotalAllWithTaxes)
	}
}

func TestComputeFinalPrices_DoesNotMutateInput(t *testing.T) {
	comp := Component{Name: "C", Price: 10, Discount: 50}
	products := []Product{{Name: "P", Price: 100, Discount: 25, Components: []Component{comp}}}

	_ = ComputeFinalPrices(products, 0)

	if products[0].Price != 100 || products[0].Discount != 25 {
		t.Error("product input mutated")
	}
	if products[0].Components[0] != comp {
		t.Error("component input mutated")
	}
}

func TestParseAddedProducts(t *testing.T) {
	raw := []byte(`[
		{"name":"A","price":"19.90","discount":null,"components":[
			{"id":"x","name":"C1","price":5,"quantity":"2","included":false,"discount":"bogus"}
		]},
		{"name":"B","price":7,"components":[]}
	]`)

	products, err := ParseAddedProducts(raw)
	if err != nil {
		t.Fatalf("ParseAddedProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].Price != 19.90 {
		t.Errorf("string price coerced to %v, want 19.90", products[0].Price)
	}
	if products[0].Discount != 0 {
		t.Errorf("null discount coerced to %v, want 0", products[0].Discount)
	}
	c := products[0].Components[0]
	if c.Quantity != 2 {
		t.Errorf("string quantity coerced to %v, want 2", c.Quantity)
	}
	if c.Discount != 0 {
		t.Errorf("non-numeric discount coerced to %v, want 0", c.Discount)
	}
	if c.IsIncluded() {
		t.Error("explicit included:false must exclude")
	}
}

func TestParseAddedProducts_ComponentsNotAnArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object components", `[{"name":"ok","components":[]},{"name":"bad","components":{}}]`},
		{"missing components", `[{"name":"ok","components":[]},{"name":"bad"}]`},
		{"null components", `[{"name":"ok","components":[]},{"name":"bad","components":null}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddedProducts([]byte(tt.raw))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.ProductIndex != 1 {
				t.Errorf("ProductIndex = %d, want 1", verr.ProductIndex)
			}
		})
	}
}

func TestParseAddedProducts_Empty(t *testing.T) {
	for _, raw := range []string{"", "null"} {
		products, err := ParseAddedProducts([]byte(raw))
		if err != nil || products != nil {
			t.Errorf("ParseAddedProducts(%q) = %v, %v", raw, products, err)
		}
	}
}
