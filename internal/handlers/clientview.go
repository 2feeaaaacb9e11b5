package handlers

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"preventivo/internal/httpx"
	"preventivo/internal/models"
	"preventivo/internal/pricing"
	"preventivo/internal/services"
	"preventivo/internal/status"
)

// ClientViewHandler serves the shared-link pages the client opens from their
// email. These routes are unauthenticated; the link hash is the credential.
type ClientViewHandler struct {
	Docs   *services.DocumentService
	Quotes *services.QuoteService
}

func NewClientViewHandler(docs *services.DocumentService, quotes *services.QuoteService) *ClientViewHandler {
	return &ClientViewHandler{Docs: docs, Quotes: quotes}
}

type clientViewData struct {
	Document  *models.Document
	Breakdown *pricing.Breakdown
	Finalized bool
	Rejected  bool
}

// View renders the document summary page and records the visit. Lapsed links
// get the 410 page, same as save and confirm.
func (h *ClientViewHandler) View(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	doc, err := h.Docs.GetShared(hash)
	if err != nil {
		writeViewError(w, err)
		return
	}
	// Recording the visit is best-effort; a draft link opened early or a
	// finalized document must still render.
	if doc.State == status.Sent || doc.State == status.Viewed {
		if updated, err := h.Docs.MarkViewed(hash); err == nil {
			doc = updated
		} else {
			slog.Warn("mark viewed failed", "hash", hash, "error", err)
		}
	}
	breakdown, err := h.Quotes.Price(doc)
	if err != nil {
		httpx.HTMLError(w, http.StatusInternalServerError, "This document cannot be displayed.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := clientViewData{
		Document:  doc,
		Breakdown: breakdown,
		Finalized: doc.State == status.Finalized,
		Rejected:  doc.State == status.Rejected,
	}
	if err := clientViewTmpl.Execute(w, data); err != nil {
		slog.Error("client view render failed", "hash", hash, "error", err)
	}
}

// Save applies an edit made by the client on the shared page.
func (h *ClientViewHandler) Save(w http.ResponseWriter, r *http.Request) {
	var input services.SaveInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	// The shared page never acts as an employee regardless of payload.
	input.Actor = services.Actor{Type: services.ActorClient}
	res, err := h.Docs.Save(r.PathValue("hash"), input)
	if err != nil {
		writeDocError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// Confirm finalizes the document after the client enters the emailed OTP.
func (h *ClientViewHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	otp := r.FormValue("otp")
	if otp == "" {
		otp = r.URL.Query().Get("otp")
	}
	doc, err := h.Docs.Confirm(hash, otp)
	if err != nil {
		writeViewError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := confirmedTmpl.Execute(w, doc); err != nil {
		slog.Error("confirm page render failed", "hash", hash, "error", err)
	}
}

func writeViewError(w http.ResponseWriter, err error) {
	var transition *status.TransitionError
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.HTMLError(w, http.StatusNotFound, "This link does not exist.")
	case errors.Is(err, services.ErrExpired):
		httpx.HTMLError(w, http.StatusGone, "This link has expired. Ask your contact for a new one.")
	case errors.Is(err, services.ErrInvalidOTP):
		httpx.HTMLError(w, http.StatusForbidden, "The confirmation code is not valid.")
	case errors.As(err, &transition):
		httpx.HTMLError(w, http.StatusConflict, "This document can no longer be changed.")
	default:
		httpx.HTMLError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

var clientViewTmpl = template.Must(template.New("clientview").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Your quote</title>
<style>
  body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; color: #222; }
  table { width: 100%; border-collapse: collapse; margin: 1rem 0; }
  th, td { text-align: left; padding: .4rem; border-bottom: 1px solid #ddd; }
  td.num, th.num { text-align: right; }
  .state { display: inline-block; padding: .2rem .6rem; border-radius: 4px; background: #eee; }
  .note { white-space: pre-line; background: #fafafa; padding: 1rem; border-radius: 4px; }
  form { margin-top: 1.5rem; }
</style>
</head>
<body>
<h1>{{.Document.Company}}</h1>
<p>Status: <span class="state">{{.Document.State}}</span></p>
{{if .Document.Note}}<div class="note">{{.Document.Note}}</div>{{end}}
<table>
  <thead><tr><th>Item</th><th class="num">Price</th><th class="num">Discount</th><th class="num">Qty</th></tr></thead>
  <tbody>
  {{range .Breakdown.Records}}
    <tr><td>{{.Name}}</td><td class="num">{{printf "%.2f" .OriginalPrice}}</td><td class="num">{{.Discount}}%</td><td class="num">{{.Quantity}}</td></tr>
  {{end}}
  </tbody>
</table>
<p><strong>Total (VAT included): {{printf "%.2f" .Breakdown.TotalAllWithTaxes}}</strong></p>
{{if .Finalized}}
  <p>This document has been confirmed{{if .Document.DateOfSignature}} on {{.Document.DateOfSignature.Format "02/01/2006"}}{{end}}.</p>
{{else if .Rejected}}
  <p>This document has been declined.</p>
{{else}}
  <form method="post" action="/d/{{.Document.Hash}}/confirm">
    <label>Confirmation code: <input name="otp" autocomplete="one-time-code" required></label>
    <button type="submit">Confirm</button>
  </form>
{{end}}
</body>
</html>`))

var confirmedTmpl = template.Must(template.New("confirmed").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Confirmed</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4rem">
<h1>Thank you</h1>
<p>Your document for {{.Company}} was confirmed on {{.DateOfSignature.Format "02/01/2006"}}.</p>
</body>
</html>`))
