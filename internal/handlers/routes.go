package handlers

import "net/http"

// API groups the handlers behind the admin and shared-link route tables.
type API struct {
	Users      *UserHandler
	Clients    *ClientHandler
	Products   *ProductHandler
	Documents  *DocumentHandler
	PDFs       *PDFHandler
	ClientView *ClientViewHandler
}

// Register attaches all routes to the mux. requireAuth guards the employee
// API; shared-link routes stay open, the hash is their credential.
func (a *API) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	mux.HandleFunc("POST /api/login", a.Users.Login)
	mux.Handle("GET /api/me", protected(a.Users.Me))
	mux.Handle("GET /api/users", protected(a.Users.List))
	mux.Handle("POST /api/users", protected(a.Users.Create))
	mux.Handle("DELETE /api/users/{id}", protected(a.Users.Delete))

	mux.Handle("GET /api/clients", protected(a.Clients.List))
	mux.Handle("POST /api/clients", protected(a.Clients.Create))
	mux.Handle("GET /api/clients/{id}", protected(a.Clients.Get))
	mux.Handle("PUT /api/clients/{id}", protected(a.Clients.Update))
	mux.Handle("DELETE /api/clients/{id}", protected(a.Clients.Delete))

	mux.Handle("GET /api/products", protected(a.Products.List))
	mux.Handle("POST /api/products", protected(a.Products.Create))
	mux.Handle("GET /api/products/{id}", protected(a.Products.Get))
	mux.Handle("PUT /api/products/{id}", protected(a.Products.Update))
	mux.Handle("DELETE /api/products/{id}", protected(a.Products.Delete))
	mux.Handle("POST /api/products/{id}/image", protected(a.Products.UploadImage))

	mux.Handle("GET /api/documents", protected(a.Documents.List))
	mux.Handle("POST /api/documents", protected(a.Documents.Create))
	mux.Handle("POST /api/documents/delete", protected(a.Documents.Delete))
	mux.Handle("GET /api/documents/{hash}", protected(a.Documents.Get))
	mux.Handle("PUT /api/documents/{hash}", protected(a.Documents.Save))
	mux.Handle("POST /api/documents/{hash}/send-otp", protected(a.Documents.SendOTP))
	mux.Handle("POST /api/documents/{hash}/reject", protected(a.Documents.Reject))
	mux.Handle("POST /api/documents/{hash}/analyze", protected(a.Documents.Analyze))
	mux.Handle("POST /api/documents/{hash}/pdf", protected(a.PDFs.CreateQuote))

	mux.Handle("GET /api/pdfs", protected(a.PDFs.List))
	mux.Handle("GET /api/pdfs/stats", protected(a.PDFs.Stats))
	mux.Handle("GET /api/pdfs/{name}", protected(a.PDFs.Download))
	mux.Handle("DELETE /api/pdfs/{name}", protected(a.PDFs.Delete))

	mux.HandleFunc("GET /d/{hash}", a.ClientView.View)
	mux.HandleFunc("POST /d/{hash}/save", a.ClientView.Save)
	mux.HandleFunc("POST /d/{hash}/confirm", a.ClientView.Confirm)
}
