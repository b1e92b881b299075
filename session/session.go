// Package session owns the authenticated identity and its authorization
// scope, established once at login and consulted by every later read. It
// also drives the per-session background cache refresher.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"classboard-api/domain"
	"classboard-api/sheets"
)

// Store is the cache-backed sheet reader the session layer consumes.
type Store interface {
	Get(ctx context.Context, sheet string) ([]sheets.Record, error)
	GetFresh(ctx context.Context, sheet string) ([]sheets.Record, error)
	Invalidate(ctx context.Context, sheet string)
	Clear(ctx context.Context)
}

// Appender writes rows to the remote store.
type Appender interface {
	Append(ctx context.Context, sheet string, row []any) error
}

// Session is one authenticated identity. Scope is non-nil only for admins.
type Session struct {
	ID        string
	User      domain.User
	Scope     Scope
	StartedAt time.Time

	refresher *cron.Cron
}

// CriticalSheets lists the sheets the background refresher keeps warm for
// this session. Credentials are deliberately excluded; they are always read
// fresh.
func (s *Session) CriticalSheets() []string {
	if s.User.IsAdmin() {
		var names []string
		for _, class := range s.Scope.Classes() {
			names = append(names, sheets.TaskSheet(class))
		}
		return names
	}
	return []string{
		sheets.TaskSheet(s.User.Class),
		sheets.CourseSheet(s.User.Class),
		sheets.ScheduleSheet(s.User.Class),
		sheets.ProgressSheet(s.User.Username),
	}
}

// Manager owns live sessions and their lifecycle. It holds no package-level
// state; construct one at startup and tear sessions down through Logout.
type Manager struct {
	store          Store
	appender       Appender
	logger         *log.Logger
	refreshSpec    string
	refreshTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. refreshSpec is a cron spec such as
// "@every 2m"; empty disables background refresh.
func NewManager(store Store, appender Appender, logger *log.Logger, refreshSpec string) *Manager {
	if store == nil {
		panic("session.NewManager: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		store:          store,
		appender:       appender,
		logger:         logger,
		refreshSpec:    refreshSpec,
		refreshTimeout: 30 * time.Second,
		sessions:       map[string]*Session{},
	}
}

// Login authenticates against a freshly fetched credentials sheet; the cache
// is never trusted for this read. Username matching is exact and
// case-sensitive. Admins get their scope derived here, once.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	rows, err := m.store.GetFresh(ctx, sheets.CredentialsSheet)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var user domain.User
	found := false
	for _, u := range domain.ParseUsers(rows) {
		if u.Username == username && u.Password == password {
			user = u
			found = true
			break
		}
	}
	if !found {
		return nil, ErrAuthFailed
	}

	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		StartedAt: time.Now(),
	}
	if user.IsAdmin() {
		sess.Scope = BuildScope(ctx, m.store, user, m.logger)
	}
	m.startRefresher(sess)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.WithFields(log.Fields{
		"username": user.Username,
		"role":     user.Role,
	}).Info("session.login")
	return sess, nil
}

// Get looks up a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Logout stops the session's refresher, forgets it, and wipes both cache
// tiers so no data outlives the identity that fetched it.
func (m *Manager) Logout(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	if s.refresher != nil {
		s.refresher.Stop()
	}
	m.store.Clear(ctx)
	m.logger.WithField("username", s.User.Username).Info("session.logout")
}

// CheckScope gates an admin operation on a class/subject pair. Students and
// out-of-scope pairs are rejected, never silently allowed.
func (m *Manager) CheckScope(s *Session, class, subject string) error {
	if s == nil || !s.User.IsAdmin() {
		return ErrAccessDenied
	}
	if !s.Scope.Allows(class, subject) {
		return ErrAccessDenied
	}
	return nil
}

// ChangePassword verifies the current password against a fresh credentials
// read and appends the new one to the password updates sheet. The remote
// side is trusted to apply it. Unlike login, the username here compares
// case-insensitively after trimming; the stored layout has always had this
// mismatch and both sides of it are kept.
func (m *Manager) ChangePassword(ctx context.Context, username, current, next string) error {
	if m.appender == nil {
		return fmt.Errorf("change password: no appender configured")
	}
	rows, err := m.store.GetFresh(ctx, sheets.CredentialsSheet)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	var user domain.User
	found := false
	for _, u := range domain.ParseUsers(rows) {
		if strings.EqualFold(strings.TrimSpace(u.Username), strings.TrimSpace(username)) {
			user = u
			found = true
			break
		}
	}
	if !found || user.Password != current {
		return ErrAuthFailed
	}

	row := []any{user.Username, next, time.Now().UTC().Format(time.RFC3339)}
	if err := m.appender.Append(ctx, sheets.PasswordUpdatesSheet, row); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	m.store.Invalidate(ctx, sheets.CredentialsSheet)

	m.logger.WithField("username", user.Username).Info("session.password_changed")
	return nil
}
