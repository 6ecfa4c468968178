package matching

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ghmd86/document-hub-sub000/internal/extraction"
	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// Matcher dispatches to a storage-index query based on a template's matching
// spec and filters the result set by validity window.
type Matcher struct {
	index  store.StorageIndexRepository
	logger *slog.Logger
}

// NewMatcher creates a Matcher. If logger is nil, it defaults to slog.Default().
func NewMatcher(index store.StorageIndexRepository, logger *slog.Logger) *Matcher {
	if index == nil {
		panic("matching: storage index repository cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{index: index, logger: logger}
}

// QueryDocuments selects the candidate documents for one account and template.
//
// Dispatch order: a declared matching spec wins (reference_key or
// conditional); without one, or when no context was extracted, the template's
// shared-document flag decides between the shared and account-scoped queries.
// Malformed spec JSON and unknown matchBy values degrade to an empty result;
// a conditional spec without referenceKeyType is a configuration error and
// surfaces. A single-document template collapses the result to the most
// recently created document.
func (m *Matcher) QueryDocuments(ctx context.Context, tpl *store.Template, accountID string, extracted extraction.Context, window store.DateRange, now time.Time) ([]*store.Document, error) {
	log := m.logger.With("template", tpl.Type, "version", tpl.Version)

	spec, err := ParseSpec(tpl.DocumentMatchingConfig)
	if err != nil {
		if errors.Is(err, ErrMissingReferenceKeyType) {
			return nil, err
		}
		log.Warn("ignoring malformed matching spec", "error", err)
		return []*store.Document{}, nil
	}

	var docs []*store.Document
	switch {
	case spec == nil || len(extracted) == 0:
		docs, err = m.queryFallback(ctx, tpl, accountID, window)
	case spec.MatchBy == MatchByReferenceKey:
		docs, err = m.queryByReferenceKey(ctx, tpl, spec, extracted, window, log)
	case spec.MatchBy == MatchByConditional:
		docs, err = m.queryConditional(ctx, tpl, spec, extracted, window, log)
	default:
		log.Warn("ignoring unknown matchBy strategy", "matchBy", spec.RawMatchBy)
		return []*store.Document{}, nil
	}
	if err != nil {
		return nil, err
	}

	docs = FilterValid(docs, now)

	if tpl.SingleDocumentFlag {
		docs = collapseToLatest(docs)
	}
	return docs, nil
}

func (m *Matcher) queryByReferenceKey(ctx context.Context, tpl *store.Template, spec *Spec, extracted extraction.Context, window store.DateRange, log *slog.Logger) ([]*store.Document, error) {
	key, ok := resolveKey(extracted, spec.ReferenceKeyField)
	if !ok {
		// Explicit miss: the extraction produced no key to look up.
		log.Debug("reference key field absent from context", "field", spec.ReferenceKeyField)
		return []*store.Document{}, nil
	}
	return m.index.FindByReferenceKey(ctx, key, spec.ReferenceKeyType, tpl.Type, tpl.Version, window)
}

// queryConditional evaluates the conditional rules in declared order; the
// first passing rule supplies the reference key.
func (m *Matcher) queryConditional(ctx context.Context, tpl *store.Template, spec *Spec, extracted extraction.Context, window store.DateRange, log *slog.Logger) ([]*store.Document, error) {
	for _, rule := range spec.Conditions {
		actual, ok := extracted[rule.Field]
		if !ok || actual == nil {
			continue
		}
		if rule.Operator.Eval(actual, rule.Value) {
			return m.index.FindByReferenceKey(ctx, rule.ReferenceKey, spec.ReferenceKeyType, tpl.Type, tpl.Version, window)
		}
	}
	log.Debug("no conditional rule matched")
	return []*store.Document{}, nil
}

func (m *Matcher) queryFallback(ctx context.Context, tpl *store.Template, accountID string, window store.DateRange) ([]*store.Document, error) {
	if tpl.SharedDocumentFlag {
		return m.index.FindSharedDocuments(ctx, tpl.Type, tpl.Version, window)
	}
	return m.index.FindAccountDocuments(ctx, accountID, tpl.Type, tpl.Version, window)
}

func resolveKey(extracted extraction.Context, field string) (string, bool) {
	v, ok := extracted[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// collapseToLatest keeps only the document with the maximum creation
// timestamp. Creation timestamps are unique in practice, so ties are broken
// arbitrarily.
func collapseToLatest(docs []*store.Document) []*store.Document {
	if len(docs) <= 1 {
		return docs
	}
	latest := docs[0]
	for _, doc := range docs[1:] {
		if doc.CreationEpochMs > latest.CreationEpochMs {
			latest = doc
		}
	}
	return []*store.Document{latest}
}
