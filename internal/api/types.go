// Package api implements the REST surface of the document hub. It handles
// HTTP routing, request decoding, validation, and response formatting.
package api

import (
	"strings"
	"time"

	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// postedDateLayout is the wire format for posted date filters.
const postedDateLayout = "2006-01-02"

// maxAccountIDs bounds how many accounts one enquiry may address.
const maxAccountIDs = 25

// EnquiryRequest defines the payload for POST /documents/enquiry.
type EnquiryRequest struct {
	// CustomerID selects all of a customer's accounts when AccountIDs is
	// empty. At least one of the two is required.
	CustomerID string `json:"customerId,omitempty"`

	// AccountIDs explicitly scopes the enquiry.
	AccountIDs []string `json:"accountIds,omitempty"`

	// TemplateTypes optionally restricts which document templates apply.
	TemplateTypes []string `json:"templateTypes,omitempty"`

	// CommunicationType optionally filters templates by delivery channel.
	CommunicationType string `json:"communicationType,omitempty"`

	// MessageCenterFlag optionally filters templates by message center
	// visibility. Omitted means no filter.
	MessageCenterFlag *bool `json:"messageCenterFlag,omitempty"`

	// PostedFromDate and PostedToDate bound the document posted date,
	// inclusive, in YYYY-MM-DD format.
	PostedFromDate string `json:"postedFromDate,omitempty"`
	PostedToDate   string `json:"postedToDate,omitempty"`

	Page     int `json:"page,omitempty"`
	PageSize int `json:"pageSize,omitempty"`
}

// Sanitize cleans up input data by trimming whitespace and dropping empty
// list entries.
func (r *EnquiryRequest) Sanitize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.CommunicationType = strings.ToUpper(strings.TrimSpace(r.CommunicationType))
	r.PostedFromDate = strings.TrimSpace(r.PostedFromDate)
	r.PostedToDate = strings.TrimSpace(r.PostedToDate)
	r.AccountIDs = trimNonEmpty(r.AccountIDs)
	r.TemplateTypes = trimNonEmpty(r.TemplateTypes)
}

// Validate checks if the request data adheres to business rules.
// It returns a structured *ErrorResponse if validation fails, or nil if valid.
func (r *EnquiryRequest) Validate() *ErrorResponse {
	if r.CustomerID == "" && len(r.AccountIDs) == 0 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Either customerId or accountIds is required",
		}
	}
	if len(r.AccountIDs) > maxAccountIDs {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Too many account ids in one enquiry",
		}
	}
	if r.Page < 0 || r.PageSize < 0 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Page and pageSize must not be negative",
		}
	}

	from, errResp := parsePostedDate(r.PostedFromDate, "postedFromDate")
	if errResp != nil {
		return errResp
	}
	to, errResp := parsePostedDate(r.PostedToDate, "postedToDate")
	if errResp != nil {
		return errResp
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "postedFromDate must not be after postedToDate",
		}
	}
	return nil
}

// PostedRange converts the date filters to an epoch millisecond window.
// Validate must have passed; unparsable dates yield open bounds here.
func (r *EnquiryRequest) PostedRange() store.DateRange {
	var window store.DateRange
	if from, err := time.Parse(postedDateLayout, r.PostedFromDate); err == nil {
		window.FromEpochMs = from.UnixMilli()
	}
	if to, err := time.Parse(postedDateLayout, r.PostedToDate); err == nil {
		// Inclusive upper bound: the whole last day counts.
		window.ToEpochMs = to.Add(24*time.Hour - time.Millisecond).UnixMilli()
	}
	return window
}

func parsePostedDate(value, field string) (time.Time, *ErrorResponse) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(postedDateLayout, value)
	if err != nil {
		return time.Time{}, &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: field + " must be in YYYY-MM-DD format",
		}
	}
	return parsed, nil
}

func trimNonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// InvalidateCacheRequest defines the payload for targeted cache invalidation.
type InvalidateCacheRequest struct {
	TemplateType string `json:"templateType"`
	Version      string `json:"version"`
}

// Sanitize trims the template coordinates.
func (r *InvalidateCacheRequest) Sanitize() {
	r.TemplateType = strings.TrimSpace(r.TemplateType)
	r.Version = strings.TrimSpace(r.Version)
}

// Validate checks that both template coordinates are present.
func (r *InvalidateCacheRequest) Validate() *ErrorResponse {
	if r.TemplateType == "" || r.Version == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "templateType and version are required",
		}
	}
	return nil
}

// CacheStatsResponse reports template cache effectiveness.
type CacheStatsResponse struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// TemplateResponse is the read model for one template definition.
type TemplateResponse struct {
	Type               string     `json:"templateType"`
	Version            string     `json:"templateVersion"`
	Category           string     `json:"category,omitempty"`
	Description        string     `json:"description,omitempty"`
	LineOfBusiness     string     `json:"lineOfBusiness,omitempty"`
	SharingScope       string     `json:"sharingScope,omitempty"`
	SharedDocumentFlag bool       `json:"sharedDocumentFlag"`
	SingleDocumentFlag bool       `json:"singleDocumentFlag"`
	MessageCenterFlag  bool       `json:"messageCenterFlag"`
	CommunicationType  string     `json:"communicationType,omitempty"`
	EffectiveFrom      time.Time  `json:"effectiveFrom"`
	EffectiveUntil     *time.Time `json:"effectiveUntil,omitempty"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}
