// Package models defines the client-side data of finkeeper: the finance
// records, their identifiers and the cache and sync-queue envelopes.
package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finkeeper/internal/common"
)

// Collection names a cached resource and the API path serving it.
type Collection string

const (
	Expenses   Collection = "expenses"
	Accounts   Collection = "accounts"
	Categories Collection = "categories"
	Budgets    Collection = "budgets"
	Goals      Collection = "goals"
)

// AllCollections lists every resource refreshed by a full cache refresh.
var AllCollections = []Collection{Expenses, Accounts, Categories, Budgets, Goals}

func (c Collection) Valid() bool {
	for _, k := range AllCollections {
		if k == c {
			return true
		}
	}
	return false
}

// CacheKey is the key of the collection's snapshot in the cache.
func (c Collection) CacheKey() string { return string(c) }

func ParseCollection(s string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, s)
	}
	return c, nil
}

// Endpoint builds "/<collection>" or "/<collection>/<id>".
func Endpoint(c Collection, id string) string {
	if id == "" {
		return "/" + string(c)
	}
	return "/" + string(c) + "/" + id
}

// ParseEndpoint splits an endpoint built by Endpoint. id is empty for
// collection-level endpoints.
func ParseEndpoint(endpoint string) (c Collection, id string, err error) {
	rest, ok := strings.CutPrefix(endpoint, "/")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: %q", common.ErrInvalidEndpoint, endpoint)
	}

	name, id, _ := strings.Cut(rest, "/")
	if strings.Contains(id, "/") {
		return "", "", fmt.Errorf("%w: %q", common.ErrInvalidEndpoint, endpoint)
	}

	c, err = ParseCollection(name)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrInvalidEndpoint, err)
	}
	return c, id, nil
}
