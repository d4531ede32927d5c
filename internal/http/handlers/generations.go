package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creativeagent/internal/domain"
)

// GetGeneration returns the stored audit record for one generation run. The
// response always carries the record in the generate response too; this
// endpoint serves later lookups by generation id.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "generation id is required")
		return
	}
	if a.Audits == nil {
		a.error(w, http.StatusNotFound, "not_found", "generation audits are not persisted")
		return
	}
	record, err := a.Audits.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no generation with that id")
			return
		}
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("generations: audit lookup failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "audit lookup failed")
		return
	}
	a.json(w, http.StatusOK, record)
}
