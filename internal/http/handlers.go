package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"speech-translate-service/internal/models"
	"speech-translate-service/internal/schema"
	"speech-translate-service/internal/service/translation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type languagesResponse struct {
	Languages       []translation.Language `json:"languages"`
	DictionaryPairs []string               `json:"dictionaryPairs"`
}

// translationsAPI serves the translation collection.
type translationsAPI struct {
	svc       *translation.Service
	validator *schema.Validator
}

func (a *translationsAPI) translate(w http.ResponseWriter, r *http.Request) {
	var req schema.TranslateRequest
	if !a.decode(w, r, &req) {
		return
	}
	rec, err := a.svc.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *translationsAPI) list(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *translationsAPI) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *translationsAPI) create(w http.ResponseWriter, r *http.Request) {
	var req schema.CreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	rec, err := a.svc.Create(r.Context(), models.TranslationDraft{
		SourceText:     req.SourceText,
		TranslatedText: req.TranslatedText,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *translationsAPI) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req schema.PatchRequest
	if !a.decode(w, r, &req) {
		return
	}
	rec, err := a.svc.Update(r.Context(), id, models.TranslationPatch{
		SourceText:     req.SourceText,
		TranslatedText: req.TranslatedText,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *translationsAPI) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := a.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *translationsAPI) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages:       translation.Languages(),
		DictionaryPairs: translation.DictionaryPairs(),
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (a *translationsAPI) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	if err := a.validator.Validate(dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// pathID reads the {id} parameter. An id without digits matches no record.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := translation.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: id %q", translation.ErrNotFound, chi.URLParam(r, "id")))
	}
	return id, ok
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, translation.ErrInvalidInput), errors.Is(err, schema.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, translation.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
