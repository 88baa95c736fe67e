// Package handler provides the HTTP handlers of the local web shell.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, writing a 400 problem and returning
// false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		detail := "request body must be a JSON object"
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			detail = "request body is empty"
		case errors.As(err, &syntaxErr):
			detail = fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			response.BadRequest(w, r, "invalid field type", []models.FieldError{
				{Field: typeErr.Field, Message: "must be " + typeErr.Type.String(), Code: "INVALID_TYPE"},
			})
			return false
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}

func fieldRequired(w http.ResponseWriter, r *http.Request, field string) {
	response.BadRequest(w, r, field+" is required", []models.FieldError{
		{Field: field, Message: "required", Code: "REQUIRED"},
	})
}
