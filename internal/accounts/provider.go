// Package accounts supplies account metadata for eligibility rule evaluation.
package accounts

import (
	"context"

	"github.com/ghmd86/document-hub-sub000/internal/ruleengine"
)

// Metadata is the account record consumed by eligibility rules.
type Metadata struct {
	AccountID       string `json:"accountId"`
	CustomerID      string `json:"customerId"`
	AccountType     string `json:"accountType"`
	Region          string `json:"region"`
	State           string `json:"state"`
	CustomerSegment string `json:"customerSegment"`
	LineOfBusiness  string `json:"lineOfBusiness"`
	Active          bool   `json:"active"`
}

// Attributes converts the record to the rule engine's lookup form.
func (m *Metadata) Attributes() ruleengine.AccountAttributes {
	return ruleengine.AccountAttributes{
		AccountID:       m.AccountID,
		CustomerID:      m.CustomerID,
		AccountType:     m.AccountType,
		Region:          m.Region,
		State:           m.State,
		CustomerSegment: m.CustomerSegment,
		LineOfBusiness:  m.LineOfBusiness,
	}
}

// MetadataProvider resolves account metadata. Implementations never fail an
// enquiry over a metadata miss: they return a default record instead.
type MetadataProvider interface {
	GetAccountMetadata(ctx context.Context, accountID string) (*Metadata, error)
}

// DeriveLineOfBusiness classifies an account type into a line of business.
// Unrecognized types fall back to fallbackLOB.
func DeriveLineOfBusiness(accountType, fallbackLOB string) string {
	switch accountType {
	case "MORTGAGE", "HELOC", "HOME_EQUITY":
		return "HOME_LENDING"
	case "CHECKING", "SAVINGS", "CD":
		return "RETAIL"
	case "CREDIT_CARD", "CHARGE_CARD":
		return "CARDS"
	case "BROKERAGE", "IRA", "TRUST":
		return "WEALTH"
	case "AUTO_LOAN", "PERSONAL_LOAN":
		return "CONSUMER_LENDING"
	default:
		return fallbackLOB
	}
}

// defaultMetadata is the record used when the metadata service is
// unavailable, unconfigured, or has no record for the account.
func defaultMetadata(accountID, defaultLOB string) *Metadata {
	return &Metadata{
		AccountID:      accountID,
		LineOfBusiness: defaultLOB,
		Active:         true,
	}
}

// Compile-time check to verify that StaticProvider implements MetadataProvider.
var _ MetadataProvider = (*StaticProvider)(nil)

// StaticProvider serves the default record for every account. Used when no
// metadata service is configured.
type StaticProvider struct {
	defaultLOB string
}

// NewStaticProvider creates a provider that always answers with the default
// line of business.
func NewStaticProvider(defaultLOB string) *StaticProvider {
	return &StaticProvider{defaultLOB: defaultLOB}
}

func (p *StaticProvider) GetAccountMetadata(_ context.Context, accountID string) (*Metadata, error) {
	return defaultMetadata(accountID, p.defaultLOB), nil
}
