package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghmd86/document-hub-sub000/internal/extraction"
	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// fakeStorageIndex records which query entry point was used.
type fakeStorageIndex struct {
	accountCalls  int
	sharedCalls   int
	refKeyCalls   []string
	refKeyTypes   []string
	returnedDocs  []*store.Document
	lastWindow    store.DateRange
	lastAccountID string
}

var _ store.StorageIndexRepository = (*fakeStorageIndex)(nil)

func (f *fakeStorageIndex) FindAccountDocuments(_ context.Context, accountID, _, _ string, window store.DateRange) ([]*store.Document, error) {
	f.accountCalls++
	f.lastAccountID = accountID
	f.lastWindow = window
	return f.returnedDocs, nil
}

func (f *fakeStorageIndex) FindSharedDocuments(_ context.Context, _, _ string, window store.DateRange) ([]*store.Document, error) {
	f.sharedCalls++
	f.lastWindow = window
	return f.returnedDocs, nil
}

func (f *fakeStorageIndex) FindByReferenceKey(_ context.Context, referenceKey, referenceKeyType, _, _ string, window store.DateRange) ([]*store.Document, error) {
	f.refKeyCalls = append(f.refKeyCalls, referenceKey)
	f.refKeyTypes = append(f.refKeyTypes, referenceKeyType)
	f.lastWindow = window
	return f.returnedDocs, nil
}

func (f *fakeStorageIndex) FindByReferenceKeyType(_ context.Context, referenceKeyType, _, _ string, window store.DateRange) ([]*store.Document, error) {
	f.refKeyTypes = append(f.refKeyTypes, referenceKeyType)
	f.lastWindow = window
	return f.returnedDocs, nil
}

func template(matchingConfig string, shared, single bool) *store.Template {
	tpl := &store.Template{
		Type:               "mortgage-statement",
		Version:            "v2",
		SharedDocumentFlag: shared,
		SingleDocumentFlag: single,
	}
	if matchingConfig != "" {
		tpl.DocumentMatchingConfig = json.RawMessage(matchingConfig)
	}
	return tpl
}

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestQueryDocumentsConditional(t *testing.T) {
	const spec = `{
		"matchBy": "conditional",
		"referenceKeyType": "TIER",
		"conditions": [
			{"field": "creditScore", "operator": "GREATER_THAN_OR_EQUAL", "value": 750, "referenceKey": "PREMIUM"},
			{"field": "creditScore", "operator": "GREATER_THAN_OR_EQUAL", "value": 650, "referenceKey": "STANDARD"}
		]
	}`

	tests := []struct {
		name        string
		creditScore float64
		wantKey     string
		wantEmpty   bool
	}{
		{name: "High score resolves to the first matching rule", creditScore: 800, wantKey: "PREMIUM"},
		{name: "Mid score falls through to the second rule", creditScore: 700, wantKey: "STANDARD"},
		{name: "Low score matches no rule and yields an empty result", creditScore: 600, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeStorageIndex{returnedDocs: []*store.Document{{ID: 1}}}
			matcher := NewMatcher(index, nil)

			docs, err := matcher.QueryDocuments(context.Background(), template(spec, false, false), "ACC-1",
				extraction.Context{"creditScore": tt.creditScore}, store.DateRange{}, testNow)

			require.NoError(t, err)
			if tt.wantEmpty {
				assert.Empty(t, docs)
				assert.Empty(t, index.refKeyCalls)
				return
			}
			assert.Len(t, docs, 1)
			require.Len(t, index.refKeyCalls, 1)
			assert.Equal(t, tt.wantKey, index.refKeyCalls[0])
			assert.Equal(t, "TIER", index.refKeyTypes[0])
		})
	}
}

func TestQueryDocumentsReferenceKey(t *testing.T) {
	const spec = `{"matchBy": "reference_key", "referenceKeyField": "loanId", "referenceKeyType": "LOAN"}`

	t.Run("Resolves the key from the extracted context", func(t *testing.T) {
		index := &fakeStorageIndex{returnedDocs: []*store.Document{{ID: 7}}}
		matcher := NewMatcher(index, nil)

		docs, err := matcher.QueryDocuments(context.Background(), template(spec, false, false), "ACC-1",
			extraction.Context{"loanId": "LN-42"}, store.DateRange{FromEpochMs: 100, ToEpochMs: 200}, testNow)

		require.NoError(t, err)
		assert.Len(t, docs, 1)
		require.Len(t, index.refKeyCalls, 1)
		assert.Equal(t, "LN-42", index.refKeyCalls[0])
		assert.Equal(t, store.DateRange{FromEpochMs: 100, ToEpochMs: 200}, index.lastWindow)
	})

	t.Run("Absent key field is an explicit miss, not an error", func(t *testing.T) {
		index := &fakeStorageIndex{returnedDocs: []*store.Document{{ID: 7}}}
		matcher := NewMatcher(index, nil)

		docs, err := matcher.QueryDocuments(context.Background(), template(spec, false, false), "ACC-1",
			extraction.Context{"somethingElse": "x"}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.Empty(t, index.refKeyCalls)
	})

	t.Run("Numeric key values are formatted as strings", func(t *testing.T) {
		index := &fakeStorageIndex{returnedDocs: []*store.Document{{ID: 7}}}
		matcher := NewMatcher(index, nil)

		_, err := matcher.QueryDocuments(context.Background(), template(spec, false, false), "ACC-1",
			extraction.Context{"loanId": int64(42)}, store.DateRange{}, testNow)

		require.NoError(t, err)
		require.Len(t, index.refKeyCalls, 1)
		assert.Equal(t, "42", index.refKeyCalls[0])
	})
}

func TestQueryDocumentsFallback(t *testing.T) {
	t.Run("No spec and account-scoped template queries account documents", func(t *testing.T) {
		index := &fakeStorageIndex{}
		matcher := NewMatcher(index, nil)

		_, err := matcher.QueryDocuments(context.Background(), template("", false, false), "ACC-1",
			extraction.Context{"some": "context"}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Equal(t, 1, index.accountCalls)
		assert.Equal(t, "ACC-1", index.lastAccountID)
		assert.Zero(t, index.sharedCalls)
	})

	t.Run("No spec and shared template queries shared documents", func(t *testing.T) {
		index := &fakeStorageIndex{}
		matcher := NewMatcher(index, nil)

		_, err := matcher.QueryDocuments(context.Background(), template("", true, false), "ACC-1",
			extraction.Context{}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Equal(t, 1, index.sharedCalls)
		assert.Zero(t, index.accountCalls)
	})

	t.Run("Spec with empty extracted context falls back", func(t *testing.T) {
		const spec = `{"matchBy": "reference_key", "referenceKeyField": "loanId", "referenceKeyType": "LOAN"}`
		index := &fakeStorageIndex{}
		matcher := NewMatcher(index, nil)

		_, err := matcher.QueryDocuments(context.Background(), template(spec, false, false), "ACC-1",
			extraction.Context{}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Equal(t, 1, index.accountCalls)
		assert.Empty(t, index.refKeyCalls)
	})
}

func TestQueryDocumentsDegradedSpecs(t *testing.T) {
	t.Run("Unknown matchBy warns and returns empty", func(t *testing.T) {
		var buf bytes.Buffer
		index := &fakeStorageIndex{returnedDocs: []*store.Document{{ID: 1}}}
		matcher := NewMatcher(index, slog.New(slog.NewTextHandler(&buf, nil)))

		docs, err := matcher.QueryDocuments(context.Background(), template(`{"matchBy": "psychic"}`, false, false), "ACC-1",
			extraction.Context{"x": "y"}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.Contains(t, buf.String(), "unknown matchBy")
	})

	t.Run("Malformed spec JSON warns and returns empty", func(t *testing.T) {
		var buf bytes.Buffer
		index := &fakeStorageIndex{}
		matcher := NewMatcher(index, slog.New(slog.NewTextHandler(&buf, nil)))

		docs, err := matcher.QueryDocuments(context.Background(), template(`{"matchBy":`, false, false), "ACC-1",
			extraction.Context{"x": "y"}, store.DateRange{}, testNow)

		require.NoError(t, err)
		assert.Empty(t, docs)
		assert.Contains(t, buf.String(), "malformed matching spec")
	})

	t.Run("Conditional spec without referenceKeyType is a configuration error", func(t *testing.T) {
		index := &fakeStorageIndex{}
		matcher := NewMatcher(index, nil)

		_, err := matcher.QueryDocuments(context.Background(),
			template(`{"matchBy": "conditional", "conditions": []}`, false, false), "ACC-1",
			extraction.Context{"x": "y"}, store.DateRange{}, testNow)

		assert.ErrorIs(t, err, ErrMissingReferenceKeyType)
	})
}

func TestQueryDocumentsValidityAndCollapse(t *testing.T) {
	t.Run("Expired documents are filtered on the fallback branch", func(t *testing.T) {
		index := &fakeStorageIndex{returnedDocs: []*store.Document{
			{ID: 1, Metadata: map[string]any{"valid_until": "2020-01-01"}},
			{ID: 2},
		}}
		matcher := NewMatcher(index, nil)

		docs, err := matcher.QueryDocuments(context.Background(), template("", false, false), "ACC-1",
			extraction.Context{}, store.DateRange{}, testNow)

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(2), docs[0].ID)
	})

	t.Run("Single-document template collapses to the latest creation timestamp", func(t *testing.T) {
		index := &fakeStorageIndex{returnedDocs: []*store.Document{
			{ID: 1, CreationEpochMs: 1000},
			{ID: 2, CreationEpochMs: 3000},
			{ID: 3, CreationEpochMs: 2000},
		}}
		matcher := NewMatcher(index, nil)

		docs, err := matcher.QueryDocuments(context.Background(), template("", false, true), "ACC-1",
			extraction.Context{}, store.DateRange{}, testNow)

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(2), docs[0].ID)
	})
}

func TestParseSpec(t *testing.T) {
	t.Run("Empty and null configs mean no spec", func(t *testing.T) {
		for _, input := range []string{"", "null"} {
			spec, err := ParseSpec([]byte(input))
			require.NoError(t, err)
			assert.Nil(t, spec)
		}
	})

	t.Run("Missing matchBy means no spec", func(t *testing.T) {
		spec, err := ParseSpec([]byte(`{"referenceKeyField": "loanId"}`))
		require.NoError(t, err)
		assert.Nil(t, spec)
	})

	t.Run("Conditions carry parsed operators", func(t *testing.T) {
		spec, err := ParseSpec([]byte(`{
			"matchBy": "conditional",
			"referenceKeyType": "TIER",
			"conditions": [{"field": "score", "operator": "GREATER_THAN", "value": 1, "referenceKey": "A"}]
		}`))
		require.NoError(t, err)
		require.Len(t, spec.Conditions, 1)
		assert.Equal(t, "A", spec.Conditions[0].ReferenceKey)
	})
}

func TestNewMatcherPanicsOnNilIndex(t *testing.T) {
	assert.Panics(t, func() {
		NewMatcher(nil, nil)
	})
}
