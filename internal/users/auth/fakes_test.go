// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/agora/internal/platform/mailer"
	"github.com/taibuivan/agora/internal/users/auth"
	"github.com/taibuivan/agora/internal/users/oauth"
)

// # Clock

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// # Members

type fakeMembers struct {
	mu      sync.Mutex
	nextID  int64
	members map[int64]auth.Member
	err     error
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{members: map[int64]auth.Member{}}
}

func (f *fakeMembers) exists(match func(auth.Member) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, member := range f.members {
		if match(member) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembers) find(match func(auth.Member) bool) (*auth.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, member := range f.members {
		if match(member) {
			copied := member
			return &copied, nil
		}
	}
	return nil, auth.ErrMemberNotFound
}

func (f *fakeMembers) ExistsByAccountHandle(_ context.Context, handle string) (bool, error) {
	return f.exists(func(m auth.Member) bool { return m.AccountHandle == handle })
}

func (f *fakeMembers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return f.exists(func(m auth.Member) bool { return m.Email == email })
}

func (f *fakeMembers) ExistsByDisplayName(_ context.Context, name string) (bool, error) {
	return f.exists(func(m auth.Member) bool { return m.DisplayName == name })
}

func (f *fakeMembers) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	return f.exists(func(m auth.Member) bool { return m.Phone == phone })
}

func (f *fakeMembers) FindByID(_ context.Context, id int64) (*auth.Member, error) {
	return f.find(func(m auth.Member) bool { return m.ID == id })
}

func (f *fakeMembers) FindByAccountHandle(_ context.Context, handle string) (*auth.Member, error) {
	return f.find(func(m auth.Member) bool { return m.AccountHandle == handle })
}

func (f *fakeMembers) FindByEmail(_ context.Context, email string) (*auth.Member, error) {
	return f.find(func(m auth.Member) bool { return m.Email == email })
}

func (f *fakeMembers) FindByAccountHandleAndEmail(_ context.Context, handle, email string) (*auth.Member, error) {
	return f.find(func(m auth.Member) bool { return m.AccountHandle == handle && m.Email == email })
}

func (f *fakeMembers) FindByProvider(_ context.Context, provider oauth.Provider, subject string) (*auth.Member, error) {
	return f.find(func(m auth.Member) bool {
		return m.Provider != nil && *m.Provider == provider && m.ProviderSubject != nil && *m.ProviderSubject == subject
	})
}

func (f *fakeMembers) CountByDisplayName(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, member := range f.members {
		if strings.HasPrefix(member.DisplayName, prefix) {
			count++
		}
	}
	return count, nil
}

func (f *fakeMembers) Create(_ context.Context, member *auth.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.members {
		switch {
		case existing.AccountHandle == member.AccountHandle:
			return auth.ErrIDAlreadyExists
		case existing.Email == member.Email:
			return auth.ErrEmailAlreadyExists
		case existing.DisplayName == member.DisplayName:
			return auth.ErrUsernameAlreadyExists
		case existing.Phone == member.Phone:
			return auth.ErrTelAlreadyExists
		}
	}
	f.nextID++
	member.ID = f.nextID
	f.members[member.ID] = *member
	return nil
}

func (f *fakeMembers) update(id int64, apply func(*auth.Member)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	member, ok := f.members[id]
	if !ok {
		return auth.ErrMemberNotFound
	}
	apply(&member)
	f.members[id] = member
	return nil
}

func (f *fakeMembers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return f.update(id, func(m *auth.Member) { m.PasswordHash = hash })
}

func (f *fakeMembers) MarkVerified(_ context.Context, id int64) error {
	return f.update(id, func(m *auth.Member) { m.IsVerified = true })
}

func (f *fakeMembers) UpdateProfile(_ context.Context, member *auth.Member) error {
	return f.update(member.ID, func(m *auth.Member) {
		m.DisplayName = member.DisplayName
		m.Phone = member.Phone
		m.AvatarURL = member.AvatarURL
	})
}

func (f *fakeMembers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[id]; !ok {
		return auth.ErrMemberNotFound
	}
	delete(f.members, id)
	return nil
}

func (f *fakeMembers) get(id int64) auth.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[id]
}

// # Refresh Sessions

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]string{}}
}

func (f *fakeSessions) Upsert(_ context.Context, handle, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[handle] = token
	return nil
}

func (f *fakeSessions) FindByAccount(_ context.Context, handle string) (*auth.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.sessions[handle]
	if !ok {
		return nil, auth.ErrRefreshTokenNotFound
	}
	return &auth.RefreshSession{AccountHandle: handle, RefreshToken: token}, nil
}

func (f *fakeSessions) FindByToken(_ context.Context, token string) (*auth.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for handle, live := range f.sessions {
		if live == token {
			return &auth.RefreshSession{AccountHandle: handle, RefreshToken: live}, nil
		}
	}
	return nil, auth.ErrRefreshTokenNotFound
}

func (f *fakeSessions) InvalidateAll(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, handle)
	return nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// # Verification Tokens

type fakeTokens struct {
	mu     sync.Mutex
	clock  *fakeClock
	nextID int64
	tokens map[int64]auth.VerificationToken
}

func newFakeTokens(clock *fakeClock) *fakeTokens {
	return &fakeTokens{clock: clock, tokens: map[int64]auth.VerificationToken{}}
}

func (f *fakeTokens) Issue(_ context.Context, memberID int64, payload string, ttl time.Duration) (*auth.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := f.clock.Now()
	token := auth.VerificationToken{
		ID:        f.nextID,
		MemberID:  memberID,
		Payload:   payload,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	f.tokens[token.ID] = token
	return &token, nil
}

// classify must be called with mu held.
func (f *fakeTokens) classify(memberID int64, payload string) (int64, error) {
	found := false
	for id, token := range f.tokens {
		if token.MemberID != memberID || token.Payload != payload {
			continue
		}
		found = true
		if token.ExpiresAt.After(f.clock.Now()) {
			return id, nil
		}
	}
	if found {
		return 0, auth.ErrTokenExpired
	}
	return 0, auth.ErrTokenNotFound
}

func (f *fakeTokens) Consume(_ context.Context, memberID int64, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.classify(memberID, payload)
	if err != nil {
		return err
	}
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokens) Check(_ context.Context, memberID int64, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.classify(memberID, payload)
	return err
}

func (f *fakeTokens) FindLatest(_ context.Context, memberID int64, payload string) (*auth.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *auth.VerificationToken
	for _, token := range f.tokens {
		if token.MemberID != memberID || token.Payload != payload {
			continue
		}
		if latest == nil || token.ID > latest.ID {
			copied := token
			latest = &copied
		}
	}
	if latest == nil {
		return nil, auth.ErrTokenNotFound
	}
	return latest, nil
}

func (f *fakeTokens) ConsumeByID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[id]; !ok {
		return auth.ErrTokenNotFound
	}
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokens) PurgeAll(_ context.Context, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, token := range f.tokens {
		if token.MemberID == memberID {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, token := range f.tokens {
		if token.ExpiresAt.Before(before) {
			delete(f.tokens, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

// # Password Resets

// fakeResets mirrors the transactional reset: nothing changes unless the
// member update succeeds.
type fakeResets struct {
	members *fakeMembers
	tokens  *fakeTokens
}

func (f *fakeResets) Reset(ctx context.Context, tokenID, memberID int64, hash string) error {
	f.tokens.mu.Lock()
	defer f.tokens.mu.Unlock()
	if _, ok := f.tokens.tokens[tokenID]; !ok {
		return auth.ErrTokenNotFound
	}
	if err := f.members.UpdatePassword(ctx, memberID, hash); err != nil {
		return err
	}
	for id, token := range f.tokens.tokens {
		if token.MemberID == memberID {
			delete(f.tokens.tokens, id)
		}
	}
	return nil
}

// # Cooldowns

type fakeCooldowns struct {
	mu      sync.Mutex
	clock   *fakeClock
	windows map[int64]time.Time
}

func newFakeCooldowns(clock *fakeClock) *fakeCooldowns {
	return &fakeCooldowns{clock: clock, windows: map[int64]time.Time{}}
}

func (f *fakeCooldowns) Acquire(_ context.Context, memberID int64, window time.Duration) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock.Now()
	if until, ok := f.windows[memberID]; ok && until.After(now) {
		return until.Sub(now), nil
	}
	f.windows[memberID] = now.Add(window)
	return 0, nil
}

func (f *fakeCooldowns) Release(_ context.Context, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, memberID)
	return nil
}

// # Mailer

type fakeMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (f *fakeMailer) Send(_ context.Context, message mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMailer) sent() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.messages...)
}

var errBoom = errors.New("boom")
