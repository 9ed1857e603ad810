// Package store defines the per-user document store the rest of the
// application persists through: keyed JSON documents grouped in collections,
// whole-document writes, and realtime subscription to a single path.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a logical group of documents within a user's scope.
type Collection string

const (
	Items        Collection = "items"
	History      Collection = "history"
	Achievements Collection = "achievements"
	Sessions     Collection = "sessions"
	Subjects     Collection = "subjects"
)

// Path addresses one document.
type Path struct {
	User       string
	Collection Collection
	Key        string
}

func (p Path) String() string {
	return fmt.Sprintf("users/%s/%s/%s", p.User, p.Collection, p.Key)
}

// Document is an encoded JSON object. A nil Document means "absent".
type Document []byte

// Encode marshals v into a Document.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return Document(b), nil
}

// Decode unmarshals d into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Merge overlays the top-level fields of patch onto base. Either side may be
// nil. Nested objects are replaced, not merged.
func Merge(base, patch Document) (Document, error) {
	if base == nil {
		return patch, nil
	}
	if patch == nil {
		return base, nil
	}
	var dst, src map[string]json.RawMessage
	if err := json.Unmarshal(base, &dst); err != nil {
		return nil, fmt.Errorf("merge base: %w", err)
	}
	if err := json.Unmarshal(patch, &src); err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	if dst == nil {
		dst = map[string]json.RawMessage{}
	}
	for k, v := range src {
		dst[k] = v
	}
	b, err := json.Marshal(dst)
	if err != nil {
		return nil, fmt.Errorf("merge encode: %w", err)
	}
	return Document(b), nil
}

// AppendField adds entry to the array stored under field in base, creating
// both the document (from seed) and the array when missing.
func AppendField(base, seed Document, field string, entry any) (Document, error) {
	doc := map[string]json.RawMessage{}
	src := base
	if src == nil {
		src = seed
	}
	if len(bytes.TrimSpace(src)) > 0 {
		if err := json.Unmarshal(src, &doc); err != nil {
			return nil, fmt.Errorf("append base: %w", err)
		}
	}
	var arr []json.RawMessage
	if raw, ok := doc[field]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("append field %s is not an array: %w", field, err)
		}
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}
	arr = append(arr, encoded)
	if doc[field], err = json.Marshal(arr); err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return Document(b), nil
}

// Entry is a document together with its path, as returned by List.
type Entry struct {
	Path Path
	Doc  Document
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store is the persistence substrate. Get returns (nil, nil) for an absent
// document and Delete of an absent document succeeds. Writes replace the
// whole document unless merge is set. Subscribers first receive the current
// value, then every later committed value of the path; a nil Document means
// the document was deleted.
type Store interface {
	Get(ctx context.Context, p Path) (Document, error)
	Set(ctx context.Context, p Path, doc Document, merge bool) error
	Delete(ctx context.Context, p Path) error
	List(ctx context.Context, user string, c Collection, keyPrefix string) ([]Entry, error)
	DeletePrefix(ctx context.Context, user string, c Collection, keyPrefix string) (int, error)
	Subscribe(ctx context.Context, p Path, fn func(Document)) (Unsubscribe, error)
}

// Appender is implemented by stores that can grow an array field without a
// client-side read-modify-write.
type Appender interface {
	AtomicAppend(ctx context.Context, p Path, field string, entry any, seed Document) error
}
