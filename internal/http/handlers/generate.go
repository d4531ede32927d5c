package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"creativeagent/internal/domain"
)

// Generate accepts a creative brief and returns ranked creative options.
// Validation problems map to 400; everything downstream of a valid brief is
// degraded inside the pipeline rather than surfaced as an HTTP error, except
// total model exhaustion which has no usable result at all.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON payload")
		return
	}

	resp, err := a.Pipeline.Generate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductScopeRequired),
			errors.Is(err, domain.ErrNoLanguages),
			errors.Is(err, domain.ErrOptionCountRange),
			errors.Is(err, domain.ErrInvalidLanguage):
			a.error(w, http.StatusBadRequest, "invalid_brief", err.Error())
		case errors.Is(err, domain.ErrModelsExhausted):
			a.Logger.Error().Err(err).Msg("generate: all model backends exhausted")
			a.error(w, http.StatusBadGateway, "models_unavailable", "no model backend could serve the request")
		default:
			a.Logger.Error().Err(err).Msg("generate: pipeline failed")
			a.error(w, http.StatusInternalServerError, "internal_error", "generation failed")
		}
		return
	}
	a.json(w, http.StatusOK, resp)
}
