package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"preventivo/internal/models"
	"preventivo/internal/pdf"
	"preventivo/internal/pricing"
	"preventivo/internal/storage"
)

// DocType selects the flavor of contract PDF produced for a document.
type DocType string

const (
	DocTypeQuote DocType = "quote"
	DocTypeOrder DocType = "order"
)

func (t DocType) code() string {
	if t == DocTypeOrder {
		return "OC"
	}
	return "Q"
}

func (t DocType) title() string {
	if t == DocTypeOrder {
		return "Order Confirmation"
	}
	return "Quote"
}

// documentData is the subset of the flexible data blob the PDF needs.
type documentData struct {
	AddedProducts  json.RawMessage `json:"addedProducts"`
	SelectedClient struct {
		CompanyName string `json:"companyName"`
		FiscalCode  string `json:"fiscalCode"`
		VATNumber   string `json:"vatNumber"`
		Email       string `json:"email"`
		Street      string `json:"street"`
		City        string `json:"city"`
		ZipCode     string `json:"zipCode"`
		Country     string `json:"country"`
	} `json:"selectedClient"`
	QuoteHeadDetails struct {
		Object  string `json:"object"`
		Subject string `json:"subject"`
	} `json:"quoteHeadDetails"`
}

// QuoteService prices a document and renders its contract PDF.
type QuoteService struct {
	db       *gorm.DB
	renderer pdf.Renderer
	store    *storage.Store
	now      func() time.Time
}

func NewQuoteService(db *gorm.DB, renderer pdf.Renderer, store *storage.Store) *QuoteService {
	return &QuoteService{db: db, renderer: renderer, store: store, now: time.Now}
}

// companyCode derives the filename prefix from the company name: the first
// three letters, uppercased.
func companyCode(company string) string {
	var b strings.Builder
	for _, r := range company {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "DOC"
	}
	return b.String()
}

// Price computes the current breakdown for a document without rendering.
func (s *QuoteService) Price(doc *models.Document) (*pricing.Breakdown, error) {
	var data documentData
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			return nil, fmt.Errorf("decode document data: %w", err)
		}
	}
	products, err := pricing.ParseAddedProducts(data.AddedProducts)
	if err != nil {
		return nil, err
	}
	return pricing.ComputeFinalPrices(products, doc.Discount), nil
}

// CreateQuote renders the contract PDF for the document identified by hash,
// stores it, and records a PDFFile row tied to the given revision name.
func (s *QuoteService) CreateQuote(ctx context.Context, hash string, docType DocType, revisionName string) (*models.PDFFile, error) {
	var doc models.Document
	err := s.db.Where("hash = ?", hash).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var data documentData
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			return nil, fmt.Errorf("decode document data: %w", err)
		}
	}
	products, err := pricing.ParseAddedProducts(data.AddedProducts)
	if err != nil {
		return nil, err
	}
	breakdown := pricing.ComputeFinalPrices(products, doc.Discount)

	address := strings.TrimSpace(strings.Join([]string{
		data.SelectedClient.Street,
		strings.TrimSpace(data.SelectedClient.ZipCode + " " + data.SelectedClient.City),
		data.SelectedClient.Country,
	}, "\n"))

	title := docType.title()
	if data.QuoteHeadDetails.Object != "" {
		title = title + " - " + data.QuoteHeadDetails.Object
	}

	html, err := pdf.RenderContractHTML(pdf.ContractData{
		Title:     title,
		Company:   doc.Company,
		Document:  &doc,
		Breakdown: breakdown,
		Note:      doc.Note,
		Date:      s.now(),
		Client: pdf.ClientInfo{
			CompanyName: data.SelectedClient.CompanyName,
			FiscalCode:  data.SelectedClient.FiscalCode,
			VATNumber:   data.SelectedClient.VATNumber,
			Email:       data.SelectedClient.Email,
			Address:     address,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render contract html: %w", err)
	}

	pdfBytes, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%d-%d-%s-%s.pdf", doc.ID, s.now().Unix(), companyCode(doc.Company), docType.code())
	path, err := s.store.Save(name, pdfBytes)
	if err != nil {
		return nil, err
	}

	file := &models.PDFFile{
		DocumentID: doc.ID,
		Name:       name,
		Path:       path,
		Revision:   revisionName,
	}
	if err := s.db.Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}
