package models

import (
	"strings"
	"time"
)

// Client is a customer company a document can be addressed to.
// Uniqueness is soft-checked by the handler on fiscal code / VAT number /
// company name / email before creation, not enforced by the schema.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FiscalCode   string `gorm:"size:32;index" json:"fiscalCode"`
	VATNumber    string `gorm:"size:32;index" json:"vatNumber"`
	CompanyName  string `gorm:"size:255;index" json:"companyName"`
	Email        string `gorm:"size:255;index" json:"email"`
	MobileNumber string `gorm:"size:50" json:"mobileNumber"`

	Street  string `gorm:"size:255" json:"street"`
	City    string `gorm:"size:100" json:"city"`
	ZipCode string `gorm:"size:20" json:"zipCode"`
	Country string `gorm:"size:100" json:"country"`
}

// FullAddress joins the address parts that are present, one per line.
func (c *Client) FullAddress() string {
	var lines []string
	if c.Street != "" {
		lines = append(lines, c.Street)
	}
	cityLine := strings.TrimSpace(c.ZipCode + " " + c.City)
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if c.Country != "" {
		lines = append(lines, c.Country)
	}
	return strings.Join(lines, "\n")
}
