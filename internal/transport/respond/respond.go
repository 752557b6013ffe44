// Package respond writes JSON responses and maps engine errors onto
// HTTP status codes, shared by every handler.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mykaresto/engine/pkg/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	var e *apperr.Error
	if errors.As(err, &e) {
		body["kind"] = e.Kind.String()
		if e.Field != "" {
			body["field"] = e.Field
		}
		if e.Reason != "" {
			body["reason"] = e.Reason
		}
		if e.Kind == apperr.KindConflict {
			body["retriable"] = "true"
		}
	}
	JSON(w, apperr.HTTPStatus(err), body)
}
