// Package kv provides a key-value store with hierarchical path-based keys.
// Keys are string slices (e.g. ["call", "CA123"]) encoded with a separator
// (default ':').
//
// Call records are kept here: an in-memory store for tests and single-shot
// runs, and a BadgerDB store when records must survive restarts.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path represented as a slice of string segments.
// Key{"call", "CA123"} encodes to "call:CA123" with the default separator.
//
// Segments must not contain the configured separator character.
type Key []string

// String returns the key joined with ':'. For display only.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// UpdateFunc computes a new value from the current one. found is false when
// the key is absent. Returning an error aborts the update.
type UpdateFunc func(old []byte, found bool) ([]byte, error)

// Store is the interface for a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Update atomically replaces the value of key with fn's result.
	Update(ctx context.Context, key Key, fn UpdateFunc) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over all entries whose key starts with the given prefix,
	// in lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// DefaultSeparator is the default separator byte used to encode key segments.
const DefaultSeparator byte = ':'

// Options configures store behavior.
type Options struct {
	// Separator joins key segments. Default is ':' if zero.
	Separator byte

	// TTL expires values this long after their last write. Zero keeps
	// values forever.
	TTL time.Duration
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) ttl() time.Duration {
	if o == nil {
		return 0
	}
	return o.TTL
}

func (o *Options) encode(k Key) []byte {
	s := o.sep()
	n := 0
	for i, seg := range k {
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, s)
		}
		buf = append(buf, seg...)
	}
	return buf
}

// prefix returns the encoded form of prefix followed by the separator, so
// that "a:b" does not match "a:bc". An empty prefix matches everything.
func (o *Options) prefix(k Key) []byte {
	if len(k) == 0 {
		return nil
	}
	return append(o.encode(k), o.sep())
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}
