package siting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func addServerTiming(w http.ResponseWriter, kv ...[2]string) {
	// kv: [][2]string{{"geocode","12.3"}, {"rank","210.0"}}
	if len(kv) == 0 {
		return
	}
	val := ""
	for i, p := range kv {
		if i > 0 {
			val += ", "
		}
		val += fmt.Sprintf("%s;dur=%s", p[0], p[1])
	}
	w.Header().Add("Server-Timing", val)
}

// statusFor maps pipeline errors to an HTTP status and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	// upstream wrappers may carry a context error; cancellation wins
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, provider.ErrEmptyAddress),
		errors.Is(err, provider.ErrInvalidRadius),
		errors.Is(err, provider.ErrInvalidCoordinate),
		errors.Is(err, provider.ErrInvalidSiteType):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, provider.ErrGeocodeNotFound):
		return http.StatusNotFound, "Address not documented"
	case errors.Is(err, provider.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "Not enough developable land in this area to rank sites"
	case errors.Is(err, provider.ErrUpstreamService):
		return http.StatusBadGateway, "A data provider is unavailable, please try again later"
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound, "Run not found"
	case errors.Is(err, ErrRecordingDisabled):
		return http.StatusServiceUnavailable, "Run recording is disabled"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// rootMessage returns the sentinel text for validation errors, without wrapping context.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		provider.ErrEmptyAddress,
		provider.ErrInvalidRadius,
		provider.ErrInvalidCoordinate,
		provider.ErrInvalidSiteType,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[siting] %s %s: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, msg, status)
}
