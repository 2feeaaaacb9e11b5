// Package pricing computes the subtotal, discount and tax figures for a
// document's product lines. All figures are derived per request and never
// persisted.
package pricing

import "math"

// VATRate is the fixed 22% VAT applied to the discounted grand total.
const VATRate = 0.22

// Component is one accessory line under a product.
type Component struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	// Included is tri-state: only an explicit false excludes the component
	// from the accessory totals.
	Included *bool   `json:"included"`
	Discount float64 `json:"discount"`
}

// IsIncluded reports whether the component counts toward accessory totals.
func (c Component) IsIncluded() bool {
	return c.Included == nil || *c.Included
}

// EffectiveQuantity defaults to 1 when the quantity is absent or zero.
func (c Component) EffectiveQuantity() float64 {
	if c.Quantity == 0 {
		return 1
	}
	return c.Quantity
}

// Product is one line of a document's added products.
type Product struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       float64     `json:"price"`
	Discount    float64     `json:"discount"`
	Components  []Component `json:"components"`
}

// PricedComponent is a component annotated with its discounted unit price.
type PricedComponent struct {
	Component
	DiscountedPrice float64 `json:"discountedPrice"`
}

// PricedProduct is a product annotated with its discounted price and priced
// components. Inputs are never mutated; callers read discounted figures from
// this structure.
type PricedProduct struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Price           float64           `json:"price"`
	Discount        float64           `json:"discount"`
	DiscountedPrice float64           `json:"discountedPrice"`
	Components      []PricedComponent `json:"components"`
}

// Record is one row of the flat price audit list.
type Record struct {
	Name            string  `json:"name"`
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountedPrice float64 `json:"discountedPrice"`
	Discount        float64 `json:"discount"`
	Quantity        float64 `json:"quantity"`
}

// Breakdown carries every figure the UI summary and the PDF need.
type Breakdown struct {
	TotalBasePrice             float64 `json:"TOTAL_BASE_PRICE"`
	TotalBasePriceDiscounted   float64 `json:"TOTAL_BASE_PRICE_DISCOUNTED"`
	TotalAccessories           float64 `json:"TOTAL_ACCESSORIES"`
	TotalAccessoriesDiscounted float64 `json:"TOTAL_ACCESSORIES_DISCOUNTED"`
	TotalAll                   float64 `json:"TOTAL_ALL"`
	TotalAllDiscounted         float64 `json:"TOTAL_ALL_DISCOUNTED"`
	TotalWithDiscount          float64 `json:"TOTAL_WITH_DISCOUNT"`
	TotalAllWithTaxes          float64 `json:"TOTAL_ALL_WITH_TAXES"`

	Records  []Record        `json:"ALL_PRICE_RECORDS"`
	Products []PricedProduct `json:"products"`
}

// DiscountedPrice applies a percentage discount to a price, rounded to two
// decimals at the point of application. Sums over these values deliberately
// carry more precision; rounding only here keeps the figures identical to
// what the summary and the PDF display per line.
func DiscountedPrice(price, discount float64) float64 {
	return round2(price * (1 - discount/100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeFinalPrices prices the given products against the root discount.
// The root discount is an absolute currency amount subtracted after all
// per-line percentage discounts, floored at zero. It is not a percentage;
// the asymmetry with line discounts is inherited business behavior.
func ComputeFinalPrices(products []Product, rootDiscount float64) *Breakdown {
	b := &Breakdown{
		Records:  []Record{},
		Products: make([]PricedProduct, 0, len(products)),
	}

	for _, p := range products {
		pp := PricedProduct{
			Name:            p.Name,
			Description:     p.Description,
			Price:           p.Price,
			Discount:        p.Discount,
			DiscountedPrice: DiscountedPrice(p.Price, p.Discount),
			Components:      make([]PricedComponent, 0, len(p.Components)),
		}

		b.TotalBasePrice += p.Price
		b.TotalBasePriceDiscounted += pp.DiscountedPrice
		b.Records = append(b.Records, Record{
			Name:            p.Name,
			OriginalPrice:   p.Price,
			DiscountedPrice: pp.DiscountedPrice,
			Discount:        p.Discount,
			Quantity:        1,
		})

		for _, c := range p.Components {
			pc := PricedComponent{
				Component:       c,
				DiscountedPrice: DiscountedPrice(c.Price, c.Discount),
			}
			pp.Components = append(pp.Components, pc)

			if !c.IsIncluded() {
				continue
			}
			qty := c.EffectiveQuantity()
			b.TotalAccessories += c.Price * qty
			b.TotalAccessoriesDiscounted += pc.DiscountedPrice * qty
			b.Records = append(b.Records, Record{
				Name:            c.Name,
				OriginalPrice:   c.Price,
				DiscountedPrice: pc.DiscountedPrice,
				Discount:        c.Discount,
				Quantity:        qty,
			})
		}

		b.Products = append(b.Products, pp)
	}

	b.TotalAll = b.TotalBasePrice + b.TotalAccessories
	b.TotalAllDiscounted = b.TotalBasePriceDiscounted + b.TotalAccessoriesDiscounted
	b.TotalWithDiscount = math.Max(b.TotalAllDiscounted-rootDiscount, 0)
	b.TotalAllWithTaxes = b.TotalWithDiscount * (1 + VATRate)
	return b
}
