// Package api holds the response helpers and error types shared by the
// HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by ReadJSON and ReadBody.
const MaxBodyBytes = 8 << 20

// WriteJSON writes data as JSON without HTML escaping.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// WriteError sends an error response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = WriteJSON(w, ErrorResponse{Error: errorCode, Message: message})
}

// WriteAPIError sends e as an error response.
func WriteAPIError(w http.ResponseWriter, e *APIError) {
	WriteError(w, e.StatusCode, string(e.Code), e.Message)
}

// WriteSuccess sends data with HTTP 200.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return writeStatus(w, http.StatusOK, data)
}

// WriteCreated sends data with HTTP 201.
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return writeStatus(w, http.StatusCreated, data)
}

func writeStatus(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return WriteJSON(w, data)
}

// ReadJSON decodes the request body into v. Unknown fields are rejected so
// that typos in gas names do not silently read as zero.
func ReadJSON(w http.ResponseWriter, r *http.Request, v interface{}) *APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return bodyError(err)
	}
	return nil
}

// ReadBody returns the raw request body.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, *APIError) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, bodyError(err)
	}
	if len(data) == 0 {
		return nil, NewInvalidRequestError("request body is empty")
	}
	return data, nil
}

func bodyError(err error) *APIError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewAPIError(ErrorCodeTooLarge, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	if errors.Is(err, io.EOF) {
		return NewInvalidRequestError("request body is empty")
	}
	return NewInvalidRequestError("invalid JSON body: %v", err)
}
