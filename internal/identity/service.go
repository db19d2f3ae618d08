package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Options configures token issuing and password hashing
type Options struct {
	Secret     string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Service is the provider backend shared by every Client
type Service struct {
	store  *Store
	hub    *hub
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	now    func() time.Time
	log    *slog.Logger
}

// NewService creates the provider on top of an opened store
func NewService(store *Store, opts Options, log *slog.Logger) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		store:  store,
		hub:    newHub(),
		secret: []byte(opts.Secret),
		issuer: opts.Issuer,
		ttl:    opts.TokenTTL,
		cost:   cost,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Client returns a client of its own, starting from the given access
// token. An empty token yields an anonymous client.
func (s *Service) Client(accessToken string) *Client {
	return s.TabClient(accessToken, "")
}

// TabClient returns a client acting for the browser tab tab. Clients of
// the same tab observe each other's sign-ins and sign-outs, so a
// long-lived subscriber learns about a login made by a later request
// from its tab. An empty tab behaves like Client.
func (s *Service) TabClient(accessToken, tab string) *Client {
	id := tab
	if id == "" {
		id = uuid.NewString()
	}
	c := &Client{svc: s, id: id, token: accessToken}
	if claims, err := parseAccessToken(s.secret, s.issuer, accessToken); err == nil {
		c.sessionID = claims.SessionID
	}
	return c
}

// SignUp registers a new identity with role metadata. No session is created.
func (s *Service) SignUp(ctx context.Context, email, password string, meta Metadata) (*User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if !meta.Role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	rec := userRecord{
		User: User{
			ID:        uuid.NewString(),
			Email:     email,
			Metadata:  meta,
			CreatedAt: s.now(),
		},
		PasswordHash: string(hash),
	}
	if err := s.store.createUser(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", rec.ID, "role", meta.Role)
	return &rec.User, nil
}

// SignInWithPassword starts a new session for valid credentials
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, email, password, "")
}

func (s *Service) signIn(ctx context.Context, email, password, origin string) (*Session, error) {
	rec, err := s.store.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	record := sessionRecord{
		ID:        uuid.NewString(),
		UserID:    rec.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.createSession(ctx, record); err != nil {
		return nil, err
	}

	sess, err := s.issue(rec.User, record.ID, now, record.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s.hub.publish(Event{Type: EventSignedIn, UserID: rec.ID, SessionID: sess.ID, Session: sess, origin: origin})
	return sess, nil
}

// GetSession returns the live session behind token, or nil when the token
// is missing, malformed, expired or revoked
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := parseAccessToken(s.secret, s.issuer, token)
	if err != nil {
		return nil, nil
	}

	record, err := s.store.sessionByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !record.live(s.now()) || record.UserID != claims.Subject {
		return nil, nil
	}

	return &Session{
		ID:          record.ID,
		AccessToken: token,
		ExpiresAt:   record.ExpiresAt,
		User: User{
			ID:       claims.Subject,
			Email:    claims.Email,
			Metadata: Metadata{Role: claims.Role},
		},
	}, nil
}

// GetUser reads the stored identity behind token
func (s *Service) GetUser(ctx context.Context, token string) (*User, error) {
	sess, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	rec, err := s.store.userByID(ctx, sess.User.ID)
	if err != nil {
		return nil, err
	}
	return &rec.User, nil
}

// SignOut revokes the session behind token. Unknown or already revoked
// sessions are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.signOut(ctx, token, "")
}

func (s *Service) signOut(ctx context.Context, token, origin string) error {
	claims, err := parseAccessToken(s.secret, s.issuer, token)
	if err != nil {
		return nil
	}

	revoked, err := s.store.revokeSession(ctx, claims.SessionID, s.now())
	if err != nil {
		return err
	}
	if revoked {
		s.hub.publish(Event{Type: EventSignedOut, UserID: claims.Subject, SessionID: claims.SessionID, origin: origin})
	}
	return nil
}

// Refresh extends a live session and returns it with a fresh token
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	return s.refresh(ctx, token, "")
}

func (s *Service) refresh(ctx context.Context, token, origin string) (*Session, error) {
	current, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoSession
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	if err := s.store.extendSession(ctx, current.ID, expiresAt); err != nil {
		return nil, err
	}

	sess, err := s.issue(current.User, current.ID, now, expiresAt)
	if err != nil {
		return nil, err
	}

	s.hub.publish(Event{Type: EventTokenRefreshed, UserID: sess.User.ID, SessionID: sess.ID, Session: sess, origin: origin})
	return sess, nil
}

// Subscribe registers a listener for every auth-state change
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.subscribe(fn)
}

func (s *Service) issue(user User, sessionID string, issuedAt, expiresAt time.Time) (*Session, error) {
	token, err := signAccessToken(s.secret, s.issuer, user, sessionID, issuedAt, expiresAt)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          sessionID,
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
