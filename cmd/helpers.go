package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/tunebox/tunebox/models"
)

const maxBodyBytes = 1 << 20

// JSON API helpers

func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func jsonError(w http.ResponseWriter, message string, statusCode int) {
	jsonResponse(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads a request body into dst. An empty body leaves dst as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// serviceError writes the client-facing message of a service error. Errors
// without one are logged and reported as a plain 500.
func (app *application) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *models.Error
	if errors.As(err, &e) {
		jsonError(w, e.Message, statusFor(e))
		return
	}
	app.serverError(w, r, err)
}

// serverError logs the request and a stack trace, then sends a generic 500
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
		trace  = string(debug.Stack())
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri, "trace", trace)
	jsonError(w, "Internal server error", http.StatusInternalServerError)
}

func (app *application) badRequest(w http.ResponseWriter, err error) {
	jsonError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
}
