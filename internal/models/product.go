package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Component is an accessory line belonging to a catalog product. Components
// live inside the product row as a JSON column; their prices and discounts
// are independent of the product-level discount.
type Component struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	Included    bool    `json:"included"`
	Discount    float64 `json:"discount"`
}

// Product is a catalog entry maintained by admins.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	Category    string  `gorm:"size:100" json:"category"`
	Company     string  `gorm:"size:100" json:"company"`
	ImageURL    string  `gorm:"size:500" json:"imageUrl"`
	Discount    float64 `json:"discount"`

	Components datatypes.JSONSlice[Component] `json:"components"`
}

// NormalizeComponents assigns generated ids to components that lack one and
// defaults missing quantities to 1.
func (p *Product) NormalizeComponents() {
	for i := range p.Components {
		if p.Components[i].ID == "" {
			p.Components[i].ID = uuid.NewString()
		}
		if p.Components[i].Quantity == 0 {
			p.Components[i].Quantity = 1
		}
	}
}
