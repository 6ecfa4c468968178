package accounts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/ghmd86/document-hub-sub000/internal/logger"
)

// AccountResolver lists the account ids belonging to a customer, for
// enquiries that arrive with a customer id instead of explicit accounts.
type AccountResolver interface {
	ResolveAccountIDs(ctx context.Context, customerID string) ([]string, error)
}

var (
	_ AccountResolver = (*HTTPProvider)(nil)
	_ AccountResolver = (*StaticProvider)(nil)
)

// ResolveAccountIDs fetches the customer's accounts from the account service.
// Failures degrade to an empty list, which the pipeline treats as a customer
// with no visible documents.
func (p *HTTPProvider) ResolveAccountIDs(ctx context.Context, customerID string) ([]string, error) {
	log := logger.FromContext(ctx).With("customer_id", customerID)

	endpoint := p.baseURL + "/v1/customers/" + url.PathEscape(customerID) + "/accounts"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Warn("failed to build account list request", "error", err)
		return nil, nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn("account list fetch failed", "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("account service returned unexpected status for account list", "status", resp.StatusCode)
		return nil, nil
	}

	var payload struct {
		Accounts []struct {
			ID string `json:"id"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Warn("failed to decode account list", "error", err)
		return nil, nil
	}

	ids := make([]string, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// ResolveAccountIDs on the static provider has no directory to consult.
func (p *StaticProvider) ResolveAccountIDs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}
