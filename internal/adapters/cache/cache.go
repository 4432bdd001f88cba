// Package cache stores encoded ranking results keyed by request fingerprint.
package cache

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrCacheUnavailable wraps backend failures. Callers treat it as a miss.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Cache is a byte-oriented result cache shared by the ranking endpoints.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Purge drops every entry owned by this cache.
	Purge(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Purge(context.Context) error                       { return nil }
func (Nop) Size(context.Context) (int64, error)               { return 0, nil }

// Key fingerprints a ranking request. Weights are sorted by group id and
// label lists are sorted and deduplicated, so equivalent requests share a key.
// Labels are length-prefixed so a delimiter inside a label cannot alias a
// different selection.
func Key(kind string, weights map[int64]float64, disciplines, industries []string) string {
	var b strings.Builder
	b.WriteString(kind)

	ids := make([]int64, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	b.WriteString("|w")
	for _, id := range ids {
		b.WriteByte(';')
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(weights[id], 'g', -1, 64))
	}

	writeSet := func(tag string, labels []string) {
		set := append([]string(nil), labels...)
		sort.Strings(set)
		b.WriteString(tag)
		for i, l := range set {
			if i > 0 && set[i-1] == l {
				continue
			}
			b.WriteByte(';')
			b.WriteString(strconv.Itoa(len(l)))
			b.WriteByte(':')
			b.WriteString(l)
		}
	}
	writeSet("|d", disciplines)
	writeSet("|i", industries)

	return kind + ":" + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
