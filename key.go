package cache

import (
	"net/url"
	"strings"
)

// SimpleKey is a cache key that unambiguously identifies cached resource with a string.
type SimpleKey string

// String returns key value.
func (k SimpleKey) String() string {
	return string(k)
}

// ContainsURI checks if key refers to the resource of uri.
func (k SimpleKey) ContainsURI(uri *url.URL) bool {
	if uri == nil {
		return false
	}

	return strings.Contains(string(k), uri.String())
}

// URIPredicate matches keys that refer to the resource of uri.
func URIPredicate(uri *url.URL) Predicate[SimpleKey] {
	return func(k SimpleKey) bool {
		return k.ContainsURI(uri)
	}
}
