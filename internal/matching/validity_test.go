package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghmd86/document-hub-sub000/internal/store"
)

func docWithMetadata(metadata map[string]any) *store.Document {
	return &store.Document{Metadata: metadata}
}

func TestFilterValid(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	iso := func(t time.Time) string { return t.Format("2006-01-02") }

	tests := []struct {
		name     string
		metadata map[string]any
		want     bool
	}{
		{
			name: "Retains a document inside its window",
			metadata: map[string]any{
				"valid_from":  iso(now.AddDate(0, 0, -10)),
				"valid_until": iso(now.AddDate(0, 0, 10)),
			},
			want: true,
		},
		{
			name:     "Retains a document on its last valid day",
			metadata: map[string]any{"valid_until": iso(now)},
			want:     true,
		},
		{
			name:     "Retains a document on its first valid day",
			metadata: map[string]any{"valid_from": iso(now)},
			want:     true,
		},
		{
			name:     "Retains a document whose epoch-millis expiry is earlier today",
			metadata: map[string]any{"valid_until": float64(now.Add(-3 * time.Hour).UnixMilli())},
			want:     true,
		},
		{
			name:     "Drops a document that expired yesterday",
			metadata: map[string]any{"valid_until": iso(now.AddDate(0, 0, -1))},
			want:     false,
		},
		{
			name:     "Drops a document that is not yet effective",
			metadata: map[string]any{"valid_from": iso(now.AddDate(0, 0, 5))},
			want:     false,
		},
		{
			name:     "Retains a document with no window metadata",
			metadata: map[string]any{"documentClass": "statement"},
			want:     true,
		},
		{
			name:     "Retains a document with unparsable window metadata",
			metadata: map[string]any{"valid_until": "soonish"},
			want:     true,
		},
		{
			name:     "Retains a document with nil metadata",
			metadata: nil,
			want:     true,
		},
		{
			name:     "Honors the camelCase validFrom alias",
			metadata: map[string]any{"validFrom": iso(now.AddDate(0, 0, 5))},
			want:     false,
		},
		{
			name:     "Honors the effective_date alias",
			metadata: map[string]any{"effective_date": iso(now.AddDate(0, 0, -5))},
			want:     true,
		},
		{
			name:     "Honors the expiryDate alias",
			metadata: map[string]any{"expiryDate": iso(now.AddDate(0, 0, -2))},
			want:     false,
		},
		{
			name:     "Parses US-format dates",
			metadata: map[string]any{"valid_until": now.AddDate(0, 0, -3).Format("01/02/2006")},
			want:     false,
		},
		{
			name:     "Parses epoch-millis numbers",
			metadata: map[string]any{"valid_until": float64(now.AddDate(0, 0, 3).UnixMilli())},
			want:     true,
		},
		{
			name:     "Parses epoch-millis strings",
			metadata: map[string]any{"valid_until": "253402300799000"},
			want:     true,
		},
		{
			name: "Open-ended start bound is unbounded",
			metadata: map[string]any{
				"valid_until": iso(now.AddDate(0, 0, 30)),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterValid([]*store.Document{docWithMetadata(tt.metadata)}, now)
			if tt.want {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestFilterValidKeepsOrder(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	docs := []*store.Document{
		{ID: 1, Metadata: map[string]any{"valid_until": "2099-01-01"}},
		{ID: 2, Metadata: map[string]any{"valid_until": "2020-01-01"}},
		{ID: 3, Metadata: nil},
	}

	got := FilterValid(docs, now)

	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}
