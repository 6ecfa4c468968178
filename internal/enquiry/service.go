// Package enquiry orchestrates the document enquiry pipeline: account
// resolution, template selection, eligibility, data extraction, document
// matching and response assembly.
package enquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ghmd86/document-hub-sub000/internal/access"
	"github.com/ghmd86/document-hub-sub000/internal/accounts"
	"github.com/ghmd86/document-hub-sub000/internal/cache"
	"github.com/ghmd86/document-hub-sub000/internal/config"
	"github.com/ghmd86/document-hub-sub000/internal/extraction"
	"github.com/ghmd86/document-hub-sub000/internal/logger"
	"github.com/ghmd86/document-hub-sub000/internal/matching"
	"github.com/ghmd86/document-hub-sub000/internal/ruleengine"
	"github.com/ghmd86/document-hub-sub000/internal/store"
	"github.com/ghmd86/document-hub-sub000/internal/validation"
)

var (
	// ErrDeadlineExceeded reports that the enquiry did not finish within
	// the configured pipeline deadline.
	ErrDeadlineExceeded = errors.New("enquiry deadline exceeded")

	// ErrTemplateConfig reports a broken template definition. These are
	// operator errors, not data errors, and surface to the caller.
	ErrTemplateConfig = errors.New("invalid template configuration")
)

// Request carries one document enquiry through the pipeline.
type Request struct {
	CustomerID        string
	AccountIDs        []string
	TemplateTypes     []string
	CommunicationType string
	MessageCenterFlag *bool
	PostedRange       store.DateRange
	Page              int
	PageSize          int
	RequestorType     access.RequestorType
	AuthToken         string
	CorrelationID     string
}

// DocumentResult is one matched document in an enquiry response.
type DocumentResult struct {
	AccountID        string         `json:"accountId"`
	TemplateType     string         `json:"templateType"`
	TemplateVersion  string         `json:"templateVersion"`
	Category         string         `json:"category,omitempty"`
	Description      string         `json:"description,omitempty"`
	FileName         string         `json:"fileName,omitempty"`
	CreationEpochMs  int64          `json:"creationDate"`
	ReferenceKey     string         `json:"referenceKey,omitempty"`
	ReferenceKeyType string         `json:"referenceKeyType,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Links            []access.Link  `json:"links,omitempty"`
}

// Response is the assembled, paginated enquiry result.
type Response struct {
	Documents     []DocumentResult `json:"documents"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	TotalCount    int              `json:"totalCount"`
	TotalPages    int              `json:"totalPages"`
	CorrelationID string           `json:"correlationId"`
}

// Service runs document enquiries end to end.
type Service struct {
	templates store.TemplateRepository
	tplCache  *cache.TemplateCache
	matcher   *matching.Matcher
	executor  *extraction.Executor
	evaluator *ruleengine.Evaluator
	metadata  accounts.MetadataProvider
	resolver  accounts.AccountResolver
	audit     store.AuditRepository
	links     *access.LinkBuilder
	cfg       *config.EnquiryConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the enquiry pipeline. tplCache and audit may be nil;
// caching and audit recording are then skipped.
func NewService(
	templates store.TemplateRepository,
	tplCache *cache.TemplateCache,
	matcher *matching.Matcher,
	executor *extraction.Executor,
	metadata accounts.MetadataProvider,
	resolver accounts.AccountResolver,
	audit store.AuditRepository,
	links *access.LinkBuilder,
	cfg *config.EnquiryConfig,
	log *slog.Logger,
) *Service {
	validation.AssertNotNil(cfg, "enquiry config")
	if templates == nil {
		panic("enquiry: template repository cannot be nil")
	}
	if matcher == nil {
		panic("enquiry: matcher cannot be nil")
	}
	if executor == nil {
		panic("enquiry: executor cannot be nil")
	}
	if metadata == nil {
		panic("enquiry: metadata provider cannot be nil")
	}
	if links == nil {
		panic("enquiry: link builder cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		templates: templates,
		tplCache:  tplCache,
		matcher:   matcher,
		executor:  executor,
		evaluator: ruleengine.New(log),
		metadata:  metadata,
		resolver:  resolver,
		audit:     audit,
		links:     links,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// Process runs one enquiry under the configured deadline. Per-source fetch
// failures inside extraction never fail the enquiry; deadline expiry and
// broken template configuration do.
func (s *Service) Process(ctx context.Context, req *Request) (*Response, error) {
	validation.AssertNotNil(req, "enquiry request")

	start := s.now()

	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	log := s.logger.With(
		"correlation_id", req.CorrelationID,
		"customer_id", req.CustomerID,
		"requestor_type", string(req.RequestorType),
	)
	ctx = logger.WithContext(ctx, log)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	accountIDs, err := s.resolveAccounts(ctx, req)
	if err != nil {
		return nil, err
	}

	var results []DocumentResult
	for _, accountID := range accountIDs {
		if err := ctx.Err(); err != nil {
			return nil, s.deadline(err)
		}

		accountResults, err := s.processAccount(ctx, req, accountID)
		if err != nil {
			return nil, err
		}
		results = append(results, accountResults...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreationEpochMs > results[j].CreationEpochMs
	})

	page, pageSize := s.normalizePagination(req.Page, req.PageSize)
	resp := s.paginate(results, page, pageSize)
	resp.CorrelationID = req.CorrelationID

	s.recordAudit(req, accountIDs, resp.TotalCount, s.now().Sub(start))

	log.Info("document enquiry completed",
		"account_count", len(accountIDs),
		"document_count", resp.TotalCount,
		"duration", s.now().Sub(start),
	)
	return resp, nil
}

func (s *Service) resolveAccounts(ctx context.Context, req *Request) ([]string, error) {
	if len(req.AccountIDs) > 0 {
		return dedupe(req.AccountIDs), nil
	}
	if s.resolver == nil || req.CustomerID == "" {
		return nil, nil
	}
	ids, err := s.resolver.ResolveAccountIDs(ctx, req.CustomerID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.deadline(ctx.Err())
		}
		logger.FromContext(ctx).Warn("account resolution failed", "error", err)
		return nil, nil
	}
	return dedupe(ids), nil
}

func (s *Service) processAccount(ctx context.Context, req *Request, accountID string) ([]DocumentResult, error) {
	log := logger.FromContext(ctx).With("account_id", accountID)

	meta, err := s.metadata.GetAccountMetadata(ctx, accountID)
	if err != nil || meta == nil {
		// Providers degrade internally; this is a second safety net.
		log.Warn("account metadata unavailable, using defaults", "error", err)
		meta = &accounts.Metadata{AccountID: accountID, Active: true}
	}

	templates, err := s.activeTemplates(ctx, req, meta.LineOfBusiness)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.deadline(ctx.Err())
		}
		return nil, fmt.Errorf("querying active templates: %w", err)
	}

	var results []DocumentResult
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return nil, s.deadline(err)
		}

		docs, policy, err := s.processTemplate(ctx, req, tpl, accountID, meta)
		if err != nil {
			return nil, err
		}

		now := s.now()
		for _, doc := range docs {
			results = append(results, DocumentResult{
				AccountID:        accountID,
				TemplateType:     tpl.Type,
				TemplateVersion:  tpl.Version,
				Category:         tpl.Category,
				Description:      tpl.Description,
				FileName:         doc.FileName,
				CreationEpochMs:  doc.CreationEpochMs,
				ReferenceKey:     doc.ReferenceKey,
				ReferenceKeyType: doc.ReferenceKeyType,
				Metadata:         doc.Metadata,
				Links:            s.links.BuildLinks(doc, req.RequestorType, policy, now),
			})
		}
	}
	return results, nil
}

// processTemplate runs the per-template stages: access check, extraction,
// eligibility and document matching. A nil document slice means the template
// contributed nothing for this account.
func (s *Service) processTemplate(ctx context.Context, req *Request, tpl *store.Template, accountID string, meta *accounts.Metadata) ([]*store.Document, *access.Policy, error) {
	log := logger.FromContext(ctx).With("account_id", accountID, "template_type", tpl.Type, "template_version", tpl.Version)

	policy := access.ParsePolicy(tpl.AccessControl, log)
	if !policy.Can(req.RequestorType, access.ActionView) {
		log.Debug("requestor not entitled to view template documents")
		return nil, nil, nil
	}

	extracted, err := s.extract(ctx, tpl, req, accountID)
	if err != nil {
		return nil, nil, err
	}

	criteria, err := ruleengine.ParseEligibility(tpl.EligibilityCriteria)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: template %s: eligibility criteria: %v", ErrTemplateConfig, tpl.CacheKey(), err)
	}
	if !s.evaluator.EvaluateEligibility(criteria, meta.Attributes(), extracted) {
		log.Debug("account not eligible for template")
		return nil, nil, nil
	}

	docs, err := s.matcher.QueryDocuments(ctx, tpl, accountID, extracted, req.PostedRange, s.now())
	if err != nil {
		if errors.Is(err, matching.ErrMissingReferenceKeyType) {
			return nil, nil, fmt.Errorf("%w: template %s: %v", ErrTemplateConfig, tpl.CacheKey(), err)
		}
		if ctx.Err() != nil {
			return nil, nil, s.deadline(ctx.Err())
		}
		return nil, nil, fmt.Errorf("matching documents for template %s: %w", tpl.CacheKey(), err)
	}
	return docs, policy, nil
}

// extract runs the template's data extraction configuration, if any.
// Individual source failures surface as missing context fields, not errors.
func (s *Service) extract(ctx context.Context, tpl *store.Template, req *Request, accountID string) (extraction.Context, error) {
	if len(tpl.DataExtractionConfig) == 0 {
		return extraction.Context{}, nil
	}

	cfg, err := extraction.ParseConfig(tpl.DataExtractionConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: extraction config: %v", ErrTemplateConfig, tpl.CacheKey(), err)
	}
	if cfg == nil || len(cfg.Sources) == 0 {
		return extraction.Context{}, nil
	}

	plan, err := extraction.BuildPlan(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("%w: template %s: %v", ErrTemplateConfig, tpl.CacheKey(), err)
	}

	initial := extraction.NewContext(map[string]string{
		"accountId":  accountID,
		"customerId": req.CustomerID,
	}, req.AuthToken)
	initial[extraction.ContextKeyCorrelationID] = req.CorrelationID

	extracted, err := s.executor.Execute(ctx, plan, cfg, initial)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.deadline(ctx.Err())
		}
		return nil, fmt.Errorf("extraction for template %s: %w", tpl.CacheKey(), err)
	}
	return extracted, nil
}

// activeTemplates queries the effective templates for a line of business and
// applies the request's template type filter. Results warm the template
// cache so that definition lookups and invalidation endpoints see them.
func (s *Service) activeTemplates(ctx context.Context, req *Request, lineOfBusiness string) ([]*store.Template, error) {
	templates, err := s.templates.FindActiveTemplatesWithFilters(ctx, lineOfBusiness, req.MessageCenterFlag, req.CommunicationType, s.now())
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(req.TemplateTypes))
	for _, t := range req.TemplateTypes {
		wanted[t] = struct{}{}
	}

	filtered := templates[:0:0]
	for _, tpl := range templates {
		if s.tplCache != nil {
			s.tplCache.Set(tpl)
		}
		if len(wanted) > 0 {
			if _, ok := wanted[tpl.Type]; !ok {
				continue
			}
		}
		filtered = append(filtered, tpl)
	}
	return filtered, nil
}

// GetTemplate returns one template definition, consulting the cache first.
// Returns (nil, nil) when the template does not exist.
func (s *Service) GetTemplate(ctx context.Context, templateType, version string) (*store.Template, error) {
	if s.tplCache != nil {
		if tpl, ok := s.tplCache.Get(templateType, version); ok {
			return tpl, nil
		}
	}
	tpl, err := s.templates.FindByTypeAndVersion(ctx, templateType, version)
	if err != nil {
		return nil, err
	}
	if tpl != nil && s.tplCache != nil {
		s.tplCache.Set(tpl)
	}
	return tpl, nil
}

// recordAudit persists the enquiry event without blocking the response.
func (s *Service) recordAudit(req *Request, accountIDs []string, documentCount int, duration time.Duration) {
	if s.audit == nil {
		return
	}
	event := &store.AuditEvent{
		ID:            uuid.New(),
		CorrelationID: req.CorrelationID,
		CustomerID:    req.CustomerID,
		AccountIDs:    accountIDs,
		RequestorType: string(req.RequestorType),
		DocumentCount: documentCount,
		Duration:      duration,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.RecordEnquiry(ctx, event); err != nil {
			s.logger.Warn("failed to record enquiry audit event",
				"correlation_id", event.CorrelationID, "error", err)
		}
	}()
}

func (s *Service) normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

func (s *Service) paginate(results []DocumentResult, page, pageSize int) *Response {
	total := len(results)
	totalPages := (total + pageSize - 1) / pageSize

	startIdx := (page - 1) * pageSize
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + pageSize
	if endIdx > total {
		endIdx = total
	}

	pageDocs := results[startIdx:endIdx]
	if pageDocs == nil {
		pageDocs = []DocumentResult{}
	}
	return &Response{
		Documents:  pageDocs,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

func (s *Service) deadline(cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return ErrDeadlineExceeded
	}
	return cause
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
