package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// HTMLError renders an inline error page for routes consumed directly by a
// browser (the shared-link document view) rather than by the admin SPA.
func HTMLError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!doctype html><html><head><title>Error</title></head>`+
		`<body style="font-family:sans-serif;text-align:center;padding-top:4rem">`+
		`<h1>%d</h1><p>%s</p></body></html>`, status, html.EscapeString(msg))
}

// ErrBodyTooLarge is returned by Decode when the request body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// Decode reads a JSON request body into dst, capping the body at 10 MiB.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 10<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrBodyTooLarge
		}
		return err
	}
	return nil
}
