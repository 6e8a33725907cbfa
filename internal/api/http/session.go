package apihttp

import (
	"errors"
	"net/http"
	"time"

	"bee-console/internal/auth"
	"bee-console/internal/uploads"
)

// ErrNoSession is returned when a request carries no usable session or its
// upload no longer exists.
var ErrNoSession = errors.New("apihttp: no active upload")

// UploadStore is the slice of the uploads store the handlers need.
type UploadStore interface {
	Save(record uploads.Record) (string, error)
	Get(id string) (uploads.Record, error)
	Delete(id string) error
}

// Sessions issues and resolves the cookie binding a browser to its upload.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	store  UploadStore
}

// NewSessions constructs the session helper shared by the handlers.
func NewSessions(secret []byte, ttl time.Duration, store UploadStore) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, errors.New("apihttp: empty session secret")
	}
	if ttl <= 0 {
		return nil, errors.New("apihttp: non-positive session ttl")
	}
	if store == nil {
		return nil, errors.New("apihttp: nil upload store")
	}
	return &Sessions{secret: secret, ttl: ttl, store: store}, nil
}

// Issue signs a token for uploadID and sets it as the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, uploadID string, now time.Time) error {
	token, err := auth.IssueSessionToken(s.secret, uploadID, s.ttl, now)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token, s.ttl)
	return nil
}

// Resolve returns the upload bound to the request's session. Missing,
// invalid and expired tokens all resolve to ErrNoSession, as does a token
// whose upload has already been deleted.
func (s *Sessions) Resolve(r *http.Request) (string, uploads.Record, error) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return "", uploads.Record{}, ErrNoSession
	}
	claims, err := auth.ParseSessionToken(token, s.secret)
	if err != nil {
		return "", uploads.Record{}, ErrNoSession
	}
	record, err := s.store.Get(claims.UploadID)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			return "", uploads.Record{}, ErrNoSession
		}
		return "", uploads.Record{}, err
	}
	return claims.UploadID, record, nil
}

// Drop expires the session cookie.
func (s *Sessions) Drop(w http.ResponseWriter) {
	auth.ClearSessionCookie(w)
}
