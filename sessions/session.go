// Package sessions holds the server-side, per-browser key/value session used by the login flow.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

// Store persists session fields by id. Implementations must be safe for
// concurrent use; concurrent Saves to one id merge per field, last writer wins.
type Store interface {
	// Load returns apperrors.ErrSessionNotFound for unknown or expired ids
	Load(ctx context.Context, id string) (map[string]string, error)

	// Save writes set, removes unset and refreshes the expiry to ttl
	Save(ctx context.Context, id string, set map[string]string, unset []string, ttl time.Duration) error

	Destroy(ctx context.Context, id string) error
}

// Session is a request-scoped view of one stored session. It is passed explicitly
// to the components that read or change it; changes are buffered until Save.
type Session struct {
	id     string
	isNew  bool
	values map[string]string
	set    map[string]string
	unset  map[string]struct{}
	store  Store
	ttl    time.Duration
}

func newSession(id string, values map[string]string, isNew bool, store Store, ttl time.Duration) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{
		id:     id,
		isNew:  isNew,
		values: values,
		set:    make(map[string]string),
		unset:  make(map[string]struct{}),
		store:  store,
		ttl:    ttl,
	}
}

func (s *Session) ID() string {
	return s.id
}

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool {
	return s.isNew
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.set[key] = value
	delete(s.unset, key)
}

func (s *Session) Delete(key string) {
	delete(s.values, key)
	delete(s.set, key)
	s.unset[key] = struct{}{}
}

// Save flushes buffered changes to the store in a single write.
func (s *Session) Save(ctx context.Context) error {
	if len(s.set) == 0 && len(s.unset) == 0 && !s.isNew {
		return nil
	}
	unset := make([]string, 0, len(s.unset))
	for k := range s.unset {
		unset = append(unset, k)
	}
	if err := s.store.Save(ctx, s.id, s.set, unset, s.ttl); err != nil {
		return ioError("[Session Save]", err)
	}
	s.set = make(map[string]string)
	s.unset = make(map[string]struct{})
	s.isNew = false
	return nil
}

// Destroy removes the session from the store. A store failure is returned, never swallowed.
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.store.Destroy(ctx, s.id); err != nil {
		return ioError("[Session Destroy]", err)
	}
	s.values = make(map[string]string)
	s.set = make(map[string]string)
	s.unset = make(map[string]struct{})
	return nil
}

func ioError(op string, err error) error {
	if errors.Is(err, apperrors.ErrSessionIO) {
		return fmt.Errorf("%s %w", op, err)
	}
	return fmt.Errorf("%s %w: %w", op, apperrors.ErrSessionIO, err)
}
