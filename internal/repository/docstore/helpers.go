package docstore

import (
	"context"

	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/store"
)

func path(user string, c store.Collection, key string) store.Path {
	return store.Path{User: user, Collection: c, Key: key}
}

// put encodes v and replaces the document at p.
func put(ctx context.Context, s store.Store, p store.Path, v any) error {
	doc, err := store.Encode(v)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.Set(ctx, p, doc, false)
}

// load decodes the document at p into v. found is false when it is absent.
func load(ctx context.Context, s store.Store, p store.Path, v any) (found bool, err error) {
	doc, err := s.Get(ctx, p)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if err := doc.Decode(v); err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return true, nil
}

// decodeAll decodes every listed entry as a T.
func decodeAll[T any](entries []store.Entry) ([]T, error) {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := e.Doc.Decode(&v); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		out = append(out, v)
	}
	return out, nil
}
