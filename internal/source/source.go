// Package source adapts external book catalogs to a single lookup contract
// and resolves configured sources to adapter instances.
package source

import (
	"context"

	"github.com/sells-group/bookmeta/internal/isbn"
	"github.com/sells-group/bookmeta/internal/model"
)

// Adapter looks books up in one catalog.
//
// SearchByISBN returns nil, nil when the catalog has no record. Records carry
// the catalog's own ISBN where it reports one so that callers can verify
// identity.
type Adapter interface {
	Name() string
	SearchByISBN(ctx context.Context, isbn string) (*model.Book, error)
	SearchByTitle(ctx context.Context, query string, maxResults int) ([]model.Book, error)
}

// preferISBN13 returns the first 13 digit code in codes, else the first code.
func preferISBN13(codes []string) string {
	for _, c := range codes {
		if len(isbn.Normalize(c)) == 13 {
			return c
		}
	}
	if len(codes) > 0 {
		return codes[0]
	}
	return ""
}

// matchingISBN returns the entry of codes equivalent to want, preferring an
// exact match and then a 13 digit form. With no equivalent entry it returns
// the preferred code.
func matchingISBN(codes []string, want string) string {
	want = isbn.Normalize(want)
	for _, c := range codes {
		if isbn.Normalize(c) == want {
			return c
		}
	}
	var loose string
	for _, c := range codes {
		if !isbn.Match(c, want) {
			continue
		}
		if len(isbn.Normalize(c)) == 13 {
			return c
		}
		if loose == "" {
			loose = c
		}
	}
	if loose != "" {
		return loose
	}
	return preferISBN13(codes)
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func pageCount(n int) *int {
	if n <= 0 {
		return nil
	}
	return model.IntPtr(n)
}
