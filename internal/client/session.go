package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/skella/internal/constants"
	internalhttp "github.com/fivetwenty-io/skella/internal/http"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// credentials is the login request body.
type credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session implements skella.Session on top of a Schema. The current user is
// held by the schema so IsPrivileged can read it; the record itself is kept
// in the configured cache.
type Session struct {
	schema    *Schema
	transport *internalhttp.Client
	config    *skella.Config
}

// NewSession creates a session bound to schema.
func NewSession(schema *Schema, transport *internalhttp.Client, config *skella.Config) *Session {
	return &Session{
		schema:    schema,
		transport: transport,
		config:    config,
	}
}

// Login implements skella.Session.Login.
func (s *Session) Login(ctx context.Context, email, password string) (skella.Model, error) {
	body := credentials{Email: email, Password: password}

	err := validate.Struct(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", skella.ErrInvalidCredentials, err)
	}

	resp, err := s.transport.Do(ctx, &internalhttp.Request{
		Method: http.MethodPost,
		Path:   s.currentUserURL(),
		Body:   body,
		Accept: skella.AcceptHeader(s.schema.apiVersion()),
	})
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	user, err := s.adopt(ctx, resp.Body)
	if err != nil {
		return nil, err
	}

	s.schema.emit(skella.Event{Kind: skella.EventLoggedIn, Version: s.schema.apiVersion(), User: user})

	return user, nil
}

// Logout implements skella.Session.Logout.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.transport.Do(ctx, &internalhttp.Request{
		Method: http.MethodDelete,
		Path:   s.currentUserURL(),
		Accept: skella.AcceptHeader(s.schema.apiVersion()),
	})
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	// The server session is gone, so local state is cleared even when the
	// cache cannot be.
	s.schema.setCurrentUser(nil)
	s.transport.ClearCookie(s.currentUserURL(), s.config.SessionCookie)

	cacheErr := s.config.Cache.Delete(ctx, s.config.UserCacheKey)

	s.schema.emit(skella.Event{Kind: skella.EventLoggedOut, Version: s.schema.apiVersion()})

	if cacheErr != nil {
		return fmt.Errorf("clearing cached user: %w", cacheErr)
	}

	return nil
}

// LoggedIn implements skella.Session.LoggedIn.
func (s *Session) LoggedIn() bool {
	_, found := s.transport.Cookie(s.currentUserURL(), s.config.SessionCookie)

	return found
}

// Token implements skella.Session.Token.
func (s *Session) Token() string {
	value, _ := s.transport.Cookie(s.currentUserURL(), s.config.SessionCookie)

	return value
}

// CurrentUser implements skella.Session.CurrentUser.
func (s *Session) CurrentUser() skella.Model {
	return s.schema.CurrentUser()
}

// Restore implements skella.Session.Restore. It returns nil without error
// when nothing is cached.
func (s *Session) Restore(ctx context.Context) (skella.Model, error) {
	entry, err := s.config.Cache.Get(ctx, s.config.UserCacheKey)
	if skella.IsCacheMiss(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading cached user: %w", err)
	}

	attributes, err := decodeUser(entry.Data)
	if err != nil {
		return nil, err
	}

	user := s.newUser(attributes)
	s.schema.setCurrentUser(user)

	return user, nil
}

// SyncUser implements skella.Session.SyncUser.
func (s *Session) SyncUser(ctx context.Context) (skella.Model, error) {
	resp, err := s.transport.Do(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   s.currentUserURL(),
		Accept: skella.AcceptHeader(s.schema.apiVersion()),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	return s.adopt(ctx, resp.Body)
}

// adopt caches a user record and makes it the current user, updating the
// existing model when there is one.
func (s *Session) adopt(ctx context.Context, record []byte) (skella.Model, error) {
	attributes, err := decodeUser(record)
	if err != nil {
		return nil, err
	}

	err = s.config.Cache.Set(ctx, s.config.UserCacheKey, &skella.CacheEntry{Data: record})
	if err != nil {
		return nil, fmt.Errorf("caching user: %w", err)
	}

	user := s.schema.CurrentUser()
	if user != nil {
		user.SetAttributes(attributes)

		return user, nil
	}

	user = s.newUser(attributes)
	s.schema.setCurrentUser(user)

	return user, nil
}

// newUser builds a user model that re-caches itself after every sync.
func (s *Session) newUser(attributes skella.Attributes) skella.Model {
	user := s.schema.ModelFor(s.userDefinition(), attributes)
	user.OnSync(func(synced skella.Model) {
		data, err := json.Marshal(synced.Attributes())
		if err != nil {
			return
		}

		err = s.config.Cache.Set(context.Background(), s.config.UserCacheKey, &skella.CacheEntry{Data: data})
		if err != nil && s.config.Logger != nil {
			s.config.Logger.Warn("caching user", map[string]interface{}{"error": err.Error()})
		}
	})

	return user
}

// userDefinition is the schema's user entity, or a stand-in addressed at the
// current-user endpoint when the schema has none.
func (s *Session) userDefinition() *skella.ResourceDefinition {
	definition, found := s.schema.FindResourceByName(s.config.UserResource)
	if found && !definition.IsList() {
		return definition
	}

	name, _ := skella.NormalizeName(s.config.UserResource)

	return &skella.ResourceDefinition{
		Name:         name,
		Kind:         skella.KindSingle,
		PathTemplate: constants.CurrentUserPath,
		APIVersion:   s.schema.apiVersion(),
	}
}

func (s *Session) currentUserURL() string {
	return s.config.VersionedRoot(s.schema.apiVersion()) + constants.CurrentUserPath
}

func decodeUser(record []byte) (skella.Attributes, error) {
	var attributes skella.Attributes

	err := json.Unmarshal(record, &attributes)
	if err != nil {
		return nil, fmt.Errorf("parsing user record: %w", err)
	}

	return attributes, nil
}
