package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError names the product line that made the added-products blob
// unusable. Index is -1 when the blob itself is malformed.
type ValidationError struct {
	ProductIndex int
	Field        string
	Reason       string
}

func (e *ValidationError) Error() string {
	if e.ProductIndex < 0 {
		return fmt.Sprintf("addedProducts: %s", e.Reason)
	}
	return fmt.Sprintf("addedProducts[%d].%s: %s", e.ProductIndex, e.Field, e.Reason)
}

// Number decodes JSON numbers leniently, the way the document data blob needs:
// plain numbers and numeric strings parse, while null, missing and
// non-numeric values coerce to 0. NaN and infinities never propagate.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = Number(v)
	return nil
}

type rawComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Number `json:"price"`
	Quantity    Number `json:"quantity"`
	Included    *bool  `json:"included"`
	Discount    Number `json:"discount"`
}

type rawProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       Number          `json:"price"`
	Discount    Number          `json:"discount"`
	Components  json.RawMessage `json:"components"`
}

// ParseAddedProducts decodes the addedProducts array from a document's data
// blob. Numeric fields coerce through Number; a components value that is not
// an array fails with a *ValidationError naming the offending product index.
func ParseAddedProducts(raw []byte) ([]Product, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rawProducts []rawProduct
	if err := json.Unmarshal(raw, &rawProducts); err != nil {
		return nil, &ValidationError{ProductIndex: -1, Reason: "not an array of products"}
	}

	products := make([]Product, 0, len(rawProducts))
	for i, rp := range rawProducts {
		comps := bytes.TrimSpace(rp.Components)
		if len(comps) == 0 || bytes.Equal(comps, []byte("null")) || comps[0] != '[' {
			return nil, &ValidationError{ProductIndex: i, Field: "components", Reason: "not an array"}
		}
		var rawComps []rawComponent
		if err := json.Unmarshal(comps, &rawComps); err != nil {
			return nil, &ValidationError{ProductIndex: i, Field: "components", Reason: "not an array"}
		}

		p := Product{
			Name:        rp.Name,
			Description: rp.Description,
			Price:       float64(rp.Price),
			Discount:    float64(rp.Discount),
			Components:  make([]Component, 0, len(rawComps)),
		}
		for _, rc := range rawComps {
			p.Components = append(p.Components, Component{
				ID:          rc.ID,
				Name:        rc.Name,
				Description: rc.Description,
				Price:       float64(rc.Price),
				Quantity:    float64(rc.Quantity),
				Included:    rc.Included,
				Discount:    float64(rc.Discount),
			})
		}
		products = append(products, p)
	}
	return products, nil
}
