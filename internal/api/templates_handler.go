package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ghmd86/document-hub-sub000/internal/logger"
	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// handleGetTemplate processes GET /api/v1/templates/{type}/{version}.
// Lookups go through the enquiry service so the template cache is consulted.
func (a *API) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	templateType := chi.URLParam(r, "type")
	version := chi.URLParam(r, "version")

	tpl, err := a.enquiries.GetTemplate(r.Context(), templateType, version)
	if err != nil {
		log.Error("failed to load template definition", "template_type", templateType, "template_version", version, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to load template definition",
		})
		return
	}
	if tpl == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "No such template",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapTemplateToResponse(tpl))
}

// handleCacheStats processes GET /api/v1/templates/cache/stats.
func (a *API) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if a.tplCache == nil {
		a.renderCacheDisabled(w, r)
		return
	}

	stats := a.tplCache.Stats()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, CacheStatsResponse{
		Hits:   stats.Hits,
		Misses: stats.Misses,
		Size:   stats.Size,
	})
}

// handleCacheInvalidate processes POST /api/v1/templates/cache/invalidate,
// dropping one template definition from the cache.
func (a *API) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if a.tplCache == nil {
		a.renderCacheDisabled(w, r)
		return
	}

	var req InvalidateCacheRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	a.tplCache.Invalidate(req.TemplateType, req.Version)
	log.Info("template cache entry invalidated", "template_type", req.TemplateType, "template_version", req.Version)
	render.NoContent(w, r)
}

// handleCacheInvalidateAll processes POST /api/v1/templates/cache/invalidate/all.
func (a *API) handleCacheInvalidateAll(w http.ResponseWriter, r *http.Request) {
	if a.tplCache == nil {
		a.renderCacheDisabled(w, r)
		return
	}

	a.tplCache.InvalidateAll()
	logger.FromContext(r.Context()).Info("template cache fully invalidated")
	render.NoContent(w, r)
}

func (a *API) renderCacheDisabled(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusServiceUnavailable)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_CACHE_DISABLED",
		Message: "Template cache is not enabled",
	})
}

func mapTemplateToResponse(tpl *store.Template) TemplateResponse {
	return TemplateResponse{
		Type:               tpl.Type,
		Version:            tpl.Version,
		Category:           tpl.Category,
		Description:        tpl.Description,
		LineOfBusiness:     tpl.LineOfBusiness,
		SharingScope:       tpl.SharingScope,
		SharedDocumentFlag: tpl.SharedDocumentFlag,
		SingleDocumentFlag: tpl.SingleDocumentFlag,
		MessageCenterFlag:  tpl.MessageCenterFlag,
		CommunicationType:  tpl.CommunicationType,
		EffectiveFrom:      tpl.EffectiveFrom,
		EffectiveUntil:     tpl.EffectiveUntil,
	}
}
