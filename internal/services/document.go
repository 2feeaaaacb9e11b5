package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"preventivo/internal/changelog"
	"preventivo/internal/models"
	"preventivo/internal/status"
)

// LinkTTL is how long a shared document link stays valid.
const LinkTTL = 30 * 24 * time.Hour

// Actor identifies who performed a save through the shared update endpoint.
type Actor struct {
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
}

const (
	ActorClient   = "client"
	ActorEmployee = "employee"
)

type DocumentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{db: db, now: time.Now}
}

// randomToken returns 8 hex chars from a CSPRNG; used for both the share
// hash and the OTP.
func randomToken() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type CreateDocumentInput struct {
	ClientEmail string          `json:"clientEmail"`
	Company     string          `json:"company"`
	Data        json.RawMessage `json:"data"`
	Note        string          `json:"note"`
	Discount    float64         `json:"discount"`
}

// Create generates the share hash and OTP, stamps the 30-day expiry and
// persists the document in its initial draft state.
func (s *DocumentService) Create(in CreateDocumentInput) (*models.Document, error) {
	data := in.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	// The hash carries all the authority of an unauthenticated link, so a
	// collision must never silently alias two documents. Soft-check then
	// insert; the unique index backstops the race.
	for attempt := 0; attempt < 5; attempt++ {
		hash, err := randomToken()
		if err != nil {
			return nil, err
		}
		otp, err := randomToken()
		if err != nil {
			return nil, err
		}
		var count int64
		if err := s.db.Model(&models.Document{}).Where("hash = ?", hash).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}
		doc := &models.Document{
			ClientEmail: in.ClientEmail,
			Company:     in.Company,
			Data:        datatypes.JSON(data),
			Note:        in.Note,
			Discount:    in.Discount,
			Hash:        hash,
			OTP:         otp,
			ExpiresAt:   s.now().Add(LinkTTL),
			State:       status.Draft,
			Version:     1,
		}
		if err := s.db.Create(doc).Error; err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, errors.New("could not allocate a unique document hash")
}

// GetByHash loads a document with its revisions and generated PDFs.
func (s *DocumentService) GetByHash(hash string) (*models.Document, error) {
	var doc models.Document
	err := s.db.Preload("Revisions").Preload("PDFFiles").Where("hash = ?", hash).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetShared loads a document for the client-facing shared link. Unlike
// GetByHash it rejects lapsed links; employee API reads stay unaffected.
func (s *DocumentService) GetShared(hash string) (*models.Document, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	if doc.Expired(s.now()) {
		return nil, ErrExpired
	}
	return doc, nil
}

// List returns documents newest-first, optionally scoped to one company.
func (s *DocumentService) List(company string, limit, offset int) ([]models.Document, int64, error) {
	q := s.db.Model(&models.Document{})
	if company != "" {
		q = q.Where("company = ?", company)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var docs []models.Document
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

type SaveInput struct {
	Data            json.RawMessage `json:"data"`
	Note            *string         `json:"note"`
	Discount        *float64        `json:"discount"`
	ReadOnly        *bool           `json:"readonly"`
	DateOfSignature *time.Time      `json:"dateOfSignature"`
	RevisionName    string          `json:"revisionName"`
	Actor           Actor           `json:"actor"`
	Version         int             `json:"version"`
}

type SaveResult struct {
	Success bool              `json:"success"`
	Changes []changelog.Entry `json:"changes"`
	Version int               `json:"version"`
}

// Save merges a partial update into the document, records the change log,
// optionally appends a named revision, and bumps the optimistic version.
// A save against a stale version fails with *ConflictError; a save that
// changes nothing reports Success=false and writes nothing.
func (s *DocumentService) Save(hash string, in SaveInput) (*SaveResult, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	if in.Actor.Type == ActorClient {
		if doc.Expired(s.now()) {
			return nil, ErrExpired
		}
		if doc.ReadOnly {
			return nil, ErrReadOnly
		}
	}
	if in.Version != doc.Version {
		return nil, &ConflictError{Hash: hash, Expected: doc.Version, Got: in.Version}
	}

	oldSnap, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}

	if len(in.Data) > 0 {
		merged, err := mergeData(json.RawMessage(doc.Data), in.Data)
		if err != nil {
			return nil, err
		}
		doc.Data = datatypes.JSON(merged)
	}
	if in.Note != nil {
		doc.Note = *in.Note
	}
	if in.Discount != nil {
		doc.Discount = *in.Discount
	}
	if in.ReadOnly != nil {
		doc.ReadOnly = *in.ReadOnly
	}
	if in.DateOfSignature != nil {
		doc.DateOfSignature = in.DateOfSignature
	}
	doc.YourTurn = in.Actor.Type == ActorClient

	newSnap, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := changelog.Generate(oldSnap, newSnap, now)
	if len(entries) == 0 {
		return &SaveResult{Success: false, Changes: entries, Version: doc.Version}, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Document{}).
			Where("id = ? AND version = ?", doc.ID, doc.Version).
			Updates(map[string]any{
				"data":              doc.Data,
				"note":              doc.Note,
				"discount":          doc.Discount,
				"read_only":         doc.ReadOnly,
				"date_of_signature": doc.DateOfSignature,
				"your_turn":         doc.YourTurn,
				"version":           doc.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{Hash: hash, Expected: doc.Version + 1, Got: in.Version}
		}

		if in.RevisionName != "" {
			snapRaw, err := json.Marshal(newSnap)
			if err != nil {
				return err
			}
			rev := models.Revision{DocumentID: doc.ID, Name: in.RevisionName, Snapshot: datatypes.JSON(snapRaw)}
			if err := tx.Create(&rev).Error; err != nil {
				return err
			}
		}

		records := make([]models.ChangeRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, models.ChangeRecord{
				DocumentID: doc.ID,
				Actor:      in.Actor.Type,
				Action:     e.Action,
				OldValue:   encodeValue(e.Details.From),
				NewValue:   encodeValue(e.Details.To),
				CreatedAt:  e.Timestamp,
			})
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return &SaveResult{Success: true, Changes: entries, Version: doc.Version + 1}, nil
}

// mergeData overlays the partial data blob's top-level keys onto the stored
// one.
func mergeData(stored, partial json.RawMessage) (json.RawMessage, error) {
	base := map[string]any{}
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &base); err != nil {
			return nil, err
		}
	}
	overlay := map[string]any{}
	if err := json.Unmarshal(partial, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}

func encodeValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// update applies a guarded column update, bumping the version so flag
// mutations and saves share one optimistic-concurrency scheme.
func (s *DocumentService) update(doc *models.Document, cols map[string]any) error {
	cols["version"] = doc.Version + 1
	res := s.db.Model(&models.Document{}).
		Where("id = ? AND version = ?", doc.ID, doc.Version).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Hash: doc.Hash, Expected: doc.Version + 1, Got: doc.Version}
	}
	doc.Version++
	return nil
}

// MarkOTPSent flags the OTP email as delivered and moves a draft to sent.
func (s *DocumentService) MarkOTPSent(hash string) (*models.Document, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	cols := map[string]any{"otp_sent": true}
	if doc.State == status.Draft {
		next, err := status.Transition(doc.State, status.Sent)
		if err != nil {
			return nil, err
		}
		doc.State = next
		cols["state"] = next
	}
	if err := s.update(doc, cols); err != nil {
		return nil, err
	}
	doc.OTPSent = true
	return doc, nil
}

// MarkViewed records that the client opened the shared link.
func (s *DocumentService) MarkViewed(hash string) (*models.Document, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	if doc.Expired(s.now()) {
		return nil, ErrExpired
	}
	next, err := status.Transition(doc.State, status.Viewed)
	if err != nil {
		return nil, err
	}
	if next == doc.State {
		return doc, nil
	}
	if err := s.update(doc, map[string]any{"state": next}); err != nil {
		return nil, err
	}
	doc.State = next
	return doc, nil
}

// Confirm finalizes the document after OTP verification: date of signature
// is stamped and the document becomes read-only.
func (s *DocumentService) Confirm(hash, otp string) (*models.Document, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	if doc.Expired(s.now()) {
		return nil, ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(doc.OTP), []byte(otp)) != 1 {
		return nil, ErrInvalidOTP
	}
	next, err := status.Transition(doc.State, status.Finalized)
	if err != nil {
		return nil, err
	}
	signed := s.now()
	if err := s.update(doc, map[string]any{
		"state":             next,
		"date_of_signature": signed,
		"read_only":         true,
		"your_turn":         false,
	}); err != nil {
		return nil, err
	}
	doc.State = next
	doc.DateOfSignature = &signed
	doc.ReadOnly = true
	doc.YourTurn = false
	return doc, nil
}

// Reject marks the document rejected.
func (s *DocumentService) Reject(hash string) (*models.Document, error) {
	doc, err := s.GetByHash(hash)
	if err != nil {
		return nil, err
	}
	next, err := status.Transition(doc.State, status.Rejected)
	if err != nil {
		return nil, err
	}
	if next == doc.State {
		return doc, nil
	}
	if err := s.update(doc, map[string]any{"state": next, "your_turn": false}); err != nil {
		return nil, err
	}
	doc.State = next
	doc.YourTurn = false
	return doc, nil
}

// Delete removes documents and their child rows in bulk.
func (s *DocumentService) Delete(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.Revision{}, &models.PDFFile{}, &models.ChangeRecord{}} {
			if err := tx.Where("document_id IN ?", ids).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
