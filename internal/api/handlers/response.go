package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "hiveroadmap/internal/api/context"
	apperrors "hiveroadmap/internal/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError renders err and logs anything that is not a client error.
func writeError(w http.ResponseWriter, r *http.Request, err error, exposeDetails bool) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	apperrors.Write(w, err, exposeDetails)
}

func param(r *http.Request, name string) string {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps.ByName(name)
}

// boolQuery accepts only "true" and "false"; an absent key yields def.
func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	raw, ok := r.URL.Query()[name]
	if !ok || len(raw) == 0 {
		return def, nil
	}
	switch raw[0] {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, apperrors.BadRequest(`"`+name+`" must be a boolean`, map[string]string{name: raw[0]})
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.BadRequest(`"`+name+`" must be a positive integer`, map[string]string{name: raw})
	}
	return n, nil
}
