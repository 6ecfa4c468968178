package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/ghmd86/document-hub-sub000/internal/access"
	"github.com/ghmd86/document-hub-sub000/internal/enquiry"
	"github.com/ghmd86/document-hub-sub000/internal/logger"
)

const (
	headerRequestorType = "X-Requestor-Type"
	headerCorrelationID = "X-Correlation-Id"
)

// handleDocumentEnquiry processes the POST /api/v1/documents/enquiry request.
//
// Responsibilities:
// 1. Decodes the JSON payload into the EnquiryRequest DTO.
// 2. Sanitizes and validates the input using the DTO's business logic.
// 3. Converts the DTO plus caller headers to the pipeline request.
// 4. Runs the enquiry pipeline and maps its error taxonomy to HTTP status codes.
func (a *API) handleDocumentEnquiry(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req EnquiryRequest
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

	pipelineReq := &enquiry.Request{
		CustomerID:        req.CustomerID,
		AccountIDs:        req.AccountIDs,
		TemplateTypes:     req.TemplateTypes,
		CommunicationType: req.CommunicationType,
		MessageCenterFlag: req.MessageCenterFlag,
		PostedRange:       req.PostedRange(),
		Page:              req.Page,
		PageSize:          req.PageSize,
		RequestorType:     access.ParseRequestorType(r.Header.Get(headerRequestorType)),
		AuthToken:         bearerToken(r),
		CorrelationID:     strings.TrimSpace(r.Header.Get(headerCorrelationID)),
	}

	resp, err := a.enquiries.Process(r.Context(), pipelineReq)
	if err != nil {
		a.renderEnquiryError(w, r, err)
		return
	}

	w.Header().Set(headerCorrelationID, resp.CorrelationID)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// renderEnquiryError maps pipeline errors to the API error contract.
// Template configuration problems are operator errors (422), deadline expiry
// is a gateway timeout, everything else is internal.
func (a *API) renderEnquiryError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	switch {
	case errors.Is(err, enquiry.ErrTemplateConfig):
		log.Error("enquiry rejected by template configuration", "error", err)
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_TEMPLATE_CONFIG",
			Message: err.Error(),
		})
	case errors.Is(err, enquiry.ErrDeadlineExceeded):
		log.Error("enquiry deadline exceeded")
		render.Status(r, http.StatusGatewayTimeout)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_TIMEOUT",
			Message: "Document enquiry did not complete in time",
		})
	default:
		log.Error("document enquiry failed", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Document enquiry failed",
		})
	}
}

// bearerToken extracts the raw Authorization header value, preserving the
// scheme so downstream sources receive it unchanged.
func bearerToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Authorization"))
}
