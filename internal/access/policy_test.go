package access

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghmd86/document-hub-sub000/internal/store"
)

func TestParseRequestorType(t *testing.T) {
	tests := []struct {
		input string
		want  RequestorType
	}{
		{input: "CUSTOMER", want: RequestorCustomer},
		{input: "agent", want: RequestorAgent},
		{input: " SYSTEM ", want: RequestorSystem},
		{input: "", want: RequestorCustomer},
		{input: "ROBOT", want: RequestorCustomer},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequestorType(tt.input))
		})
	}
}

func TestParsePolicy(t *testing.T) {
	t.Run("Should honor a declared table", func(t *testing.T) {
		policy := ParsePolicy([]byte(`[
			{"role": "CUSTOMER", "actions": ["VIEW"]},
			{"role": "AGENT", "actions": ["VIEW", "DOWNLOAD", "DELETE"]}
		]`), nil)

		assert.True(t, policy.Can(RequestorCustomer, ActionView))
		assert.False(t, policy.Can(RequestorCustomer, ActionDownload))
		assert.True(t, policy.Can(RequestorAgent, ActionDelete))
		// SYSTEM is absent from the table, so it has no permissions
		assert.False(t, policy.Can(RequestorSystem, ActionView))
	})

	t.Run("Should default when config is absent", func(t *testing.T) {
		for _, input := range [][]byte{nil, []byte("null")} {
			policy := ParsePolicy(input, nil)
			assert.True(t, policy.Can(RequestorCustomer, ActionDownload))
			assert.True(t, policy.Can(RequestorAgent, ActionView))
			assert.False(t, policy.Can(RequestorAgent, ActionDownload))
		}
	})

	t.Run("Should default with a warning when config is malformed", func(t *testing.T) {
		var buf bytes.Buffer
		policy := ParsePolicy([]byte(`{"not": "a list"}`), slog.New(slog.NewTextHandler(&buf, nil)))

		assert.True(t, policy.Can(RequestorCustomer, ActionView))
		assert.Contains(t, buf.String(), "default access policy")
	})

	t.Run("Should default when no roles survive parsing", func(t *testing.T) {
		policy := ParsePolicy([]byte(`[{"role": "", "actions": ["VIEW"]}]`), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		assert.True(t, policy.Can(RequestorCustomer, ActionView))
	})

	t.Run("Should normalize role and action casing", func(t *testing.T) {
		policy := ParsePolicy([]byte(`[{"role": "customer", "actions": ["view"]}]`), nil)
		assert.True(t, policy.Can(RequestorCustomer, ActionView))
	})
}

func TestBuildLinks(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	doc := &store.Document{StorageKey: "2026/08/stmt-001.pdf"}
	builder := NewLinkBuilder("/api/v1/documents", 10*time.Minute)

	t.Run("Should build view and download links for a full policy", func(t *testing.T) {
		links := builder.BuildLinks(doc, RequestorCustomer, defaultPolicy(), now)

		require.Len(t, links, 2)
		assert.Equal(t, "view", links[0].Rel)
		assert.Equal(t, "/api/v1/documents/2026%2F08%2Fstmt-001.pdf", links[0].Href)
		assert.Equal(t, "download", links[1].Rel)
		assert.Equal(t, "/api/v1/documents/2026%2F08%2Fstmt-001.pdf/content", links[1].Href)
		assert.Equal(t, now.Add(10*time.Minute), links[0].ExpiresAt)
	})

	t.Run("Should omit the download link for a view-only role", func(t *testing.T) {
		links := builder.BuildLinks(doc, RequestorAgent, defaultPolicy(), now)

		require.Len(t, links, 1)
		assert.Equal(t, "view", links[0].Rel)
	})

	t.Run("Should never build delete links", func(t *testing.T) {
		policy := ParsePolicy([]byte(`[{"role": "SYSTEM", "actions": ["VIEW", "DOWNLOAD", "DELETE"]}]`), nil)
		links := builder.BuildLinks(doc, RequestorSystem, policy, now)

		for _, link := range links {
			assert.NotEqual(t, "delete", link.Rel)
		}
		assert.Len(t, links, 2)
	})

	t.Run("Should build nothing for a role with no permissions", func(t *testing.T) {
		policy := ParsePolicy([]byte(`[{"role": "CUSTOMER", "actions": []}]`), nil)
		links := builder.BuildLinks(doc, RequestorCustomer, policy, now)
		assert.Empty(t, links)
	})
}
