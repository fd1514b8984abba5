package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/Facilitator-Network/agent-cli-backend/pkg/app/errors"
	apphttp "github.com/Facilitator-Network/agent-cli-backend/pkg/app/http"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
)

const maxBodyBytes = 1 << 16

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the bridge endpoints on r. operatorAuth guards the
// retry endpoint; when it is nil the endpoint answers 503.
func RegisterRoutes(r chi.Router, service Service, operatorAuth func(http.Handler) http.Handler, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/bridge", func(r chi.Router) {
		r.Post("/initiate", apphttp.HandleErrorWithLogger(h.initiate, logger))
		r.Get("/status/{id}", apphttp.HandleErrorWithLogger(h.status, logger))
		r.Get("/archive/{id}", apphttp.HandleErrorWithLogger(h.archived, logger))

		if operatorAuth == nil {
			r.Post("/retry/{id}", apphttp.HandleError(retryDisabled))
			return
		}
		r.With(operatorAuth).Post("/retry/{id}", apphttp.HandleErrorWithLogger(h.retry, logger))
	})
}

func (h *HTTP) initiate(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req bridge.InitiateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	resp, err := h.service.Initiate(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) status(w http.ResponseWriter, r *http.Request) error {
	rec, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, rec)
	return nil
}

func (h *HTTP) retry(w http.ResponseWriter, r *http.Request) error {
	resp, err := h.service.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) archived(w http.ResponseWriter, r *http.Request) error {
	rec, err := h.service.Archived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, rec)
	return nil
}

func retryDisabled(http.ResponseWriter, *http.Request) error {
	return apperrors.UnavailableError(nil, "operator retry is not enabled")
}
