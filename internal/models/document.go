package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"preventivo/internal/status"
)

// Document is one quote / order confirmation. The flexible content lives in
// the Data JSON column (quoteHeadDetails, selectedClient, addedProducts,
// paymentTerms); revisions and generated PDFs are normalized into child
// tables instead of stringified-JSON columns.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientEmail string         `gorm:"size:255;index" json:"clientEmail"`
	Company     string         `gorm:"size:100" json:"company"`
	Data        datatypes.JSON `json:"data"`

	DateOfSignature *time.Time `json:"dateOfSignature"`
	ExpiresAt       time.Time  `json:"expiresAt"`

	// Hash is the only identifier usable by unauthenticated client links.
	Hash string `gorm:"size:16;uniqueIndex;not null" json:"hash"`
	// OTP gates client-side confirmation; never serialized to clients.
	OTP string `gorm:"size:16;not null" json:"-"`

	Note     string  `gorm:"type:text" json:"note"`
	ReadOnly bool    `json:"readonly"`
	Discount float64 `json:"discount"`

	State    status.State `gorm:"size:20;not null;default:'draft'" json:"state"`
	YourTurn bool         `json:"yourTurn"`
	OTPSent  bool         `json:"otpSent"`

	// Version backs the optimistic concurrency check on saves.
	Version int `gorm:"not null;default:1" json:"version"`

	Revisions []Revision     `gorm:"constraint:OnDelete:CASCADE" json:"revisions,omitempty"`
	PDFFiles  []PDFFile      `gorm:"constraint:OnDelete:CASCADE" json:"pdfFiles,omitempty"`
	Changes   []ChangeRecord `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Revision is an append-only named snapshot taken at a caller-specified
// checkpoint.
type Revision struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	DocumentID uint           `gorm:"index;not null" json:"-"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Snapshot   datatypes.JSON `json:"snapshot"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PDFFile records one generated contract PDF on disk.
type PDFFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"index;not null" json:"-"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Path       string    `gorm:"size:500;not null" json:"url"`
	Revision   string    `gorm:"size:255" json:"revision"`
	CreatedAt  time.Time `json:"timestamp"`
}

// ChangeRecord persists one audit-trail line produced by a save.
type ChangeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"index;not null" json:"-"`
	Actor      string    `gorm:"size:50" json:"actor"`
	Action     string    `gorm:"size:255;not null" json:"action"`
	OldValue   string    `gorm:"type:text" json:"from"`
	NewValue   string    `gorm:"type:text" json:"to"`
	CreatedAt  time.Time `json:"timestamp"`
}

// Expired reports whether the shared link has lapsed.
func (d *Document) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}

// Snapshot renders the document as a JSON-decoded map in the shape the
// change-log differ tracks.
func (d *Document) Snapshot() (map[string]any, error) {
	snap := map[string]any{
		"note":     d.Note,
		"readonly": d.ReadOnly,
		"discount": d.Discount,
		"status": map[string]any{
			"state":    string(d.State),
			"yourTurn": d.YourTurn,
			"otpSent":  d.OTPSent,
		},
	}
	if d.DateOfSignature != nil {
		snap["dateOfSignature"] = d.DateOfSignature.UTC().Format(time.RFC3339)
	}
	if len(d.Data) > 0 {
		var data map[string]any
		if err := json.Unmarshal(d.Data, &data); err != nil {
			return nil, err
		}
		snap["data"] = data
	}
	// Round-trip so numbers and nested values look exactly like decoded
	// JSON to the differ.
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
