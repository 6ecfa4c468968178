package access

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ghmd86/document-hub-sub000/internal/store"
	"github.com/ghmd86/document-hub-sub000/internal/validation"
)

// Link is one navigable reference on an enquiry response document.
type Link struct {
	Rel       string    `json:"rel"`
	Href      string    `json:"href"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LinkBuilder derives document links from storage keys. The binary content
// itself lives behind the (external) content endpoint; links only carry the
// opaque storage key.
type LinkBuilder struct {
	basePath   string
	expiration time.Duration
}

// NewLinkBuilder creates a LinkBuilder. basePath is the external path prefix
// of the content endpoint; expiration bounds how long generated links are
// honored.
func NewLinkBuilder(basePath string, expiration time.Duration) *LinkBuilder {
	validation.AssertNotEmpty(basePath, "link base path")
	return &LinkBuilder{basePath: basePath, expiration: expiration}
}

// BuildLinks returns the links the requestor is entitled to for one document.
// Delete links never appear on enquiry responses regardless of policy.
func (b *LinkBuilder) BuildLinks(doc *store.Document, requestor RequestorType, policy *Policy, now time.Time) []Link {
	expiresAt := now.Add(b.expiration)
	key := url.PathEscape(doc.StorageKey)

	var links []Link
	if policy.Can(requestor, ActionView) {
		links = append(links, Link{
			Rel:       "view",
			Href:      fmt.Sprintf("%s/%s", b.basePath, key),
			ExpiresAt: expiresAt,
		})
	}
	if policy.Can(requestor, ActionDownload) {
		links = append(links, Link{
			Rel:       "download",
			Href:      fmt.Sprintf("%s/%s/content", b.basePath, key),
			ExpiresAt: expiresAt,
		})
	}
	return links
}
