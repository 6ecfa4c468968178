package accounts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/ghmd86/document-hub-sub000/internal/config"
	"github.com/ghmd86/document-hub-sub000/internal/logger"
	"github.com/ghmd86/document-hub-sub000/internal/validation"
)

// Compile-time check to verify that HTTPProvider implements MetadataProvider.
var _ MetadataProvider = (*HTTPProvider)(nil)

// HTTPProvider resolves account metadata from the account service.
// Every failure path degrades to the default record: a broken metadata
// service must not take document enquiries down with it.
type HTTPProvider struct {
	client     *http.Client
	baseURL    string
	defaultLOB string
}

// NewHTTPProvider creates a provider against the configured account service.
func NewHTTPProvider(client *http.Client, cfg *config.AccountsConfig) *HTTPProvider {
	validation.AssertNotNil(client, "http client")
	validation.AssertNotNil(cfg, "accounts config")
	validation.AssertNotEmpty(cfg.BaseURL, "accounts base URL")

	return &HTTPProvider{
		client:     client,
		baseURL:    cfg.BaseURL,
		defaultLOB: cfg.DefaultLineOfBusiness,
	}
}

// GetAccountMetadata fetches one account's metadata. A miss or failure
// returns a default record with the fallback line of business. When the
// service answers without a line of business, one is derived from the
// account type.
func (p *HTTPProvider) GetAccountMetadata(ctx context.Context, accountID string) (*Metadata, error) {
	log := logger.FromContext(ctx).With("account_id", accountID)

	endpoint := p.baseURL + "/v1/accounts/" + url.PathEscape(accountID) + "/metadata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Warn("failed to build account metadata request, using default record", "error", err)
		return defaultMetadata(accountID, p.defaultLOB), nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn("account metadata fetch failed, using default record", "error", err)
		return defaultMetadata(accountID, p.defaultLOB), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return defaultMetadata(accountID, p.defaultLOB), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("account metadata service returned unexpected status, using default record",
			"status", resp.StatusCode)
		return defaultMetadata(accountID, p.defaultLOB), nil
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		log.Warn("failed to decode account metadata, using default record", "error", err)
		return defaultMetadata(accountID, p.defaultLOB), nil
	}

	if meta.AccountID == "" {
		meta.AccountID = accountID
	}
	if meta.LineOfBusiness == "" {
		meta.LineOfBusiness = DeriveLineOfBusiness(meta.AccountType, p.defaultLOB)
	}

	return &meta, nil
}
