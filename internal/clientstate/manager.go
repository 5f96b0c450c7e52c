package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrNoCredentials is returned when a session is requested for a
	// meeting the participant never joined. The caller must collect join
	// credentials before a session can exist.
	ErrNoCredentials = errors.New("no join credentials stored")

	// ErrUnknownRoom is returned when the room index has no entry for a
	// room name.
	ErrUnknownRoom = errors.New("unknown room")
)

// Config configures a Manager.
type Config struct {
	// Durable is the authoritative store tier (survives restarts). Required.
	Durable Store

	// Ephemeral is the fast-path cache tier. Defaults to a MemStore.
	Ephemeral Store

	// Issuer is the token issuance boundary. Required.
	Issuer TokenIssuer

	// SafetyMargin is the renewal lead time. Default: DefaultSafetyMargin.
	SafetyMargin time.Duration

	// FallbackTTL bounds session lifetime when the token expiry claim
	// cannot be decoded. Default: DefaultFallbackTTL.
	FallbackTTL time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Manager turns long-lived join credentials into short-lived, renewable
// access sessions. It caches sessions across the two store tiers, renews
// them proactively before token expiry, and guarantees that only the most
// recently issued session for a meeting is honored.
type Manager struct {
	durable     Store
	ephemeral   Store
	issuer      TokenIssuer
	margin      time.Duration
	fallbackTTL time.Duration
	clock       func() time.Time

	mu       sync.Mutex
	inflight map[string]*refreshCall // single-flight per meeting ID
	nextGen  uint64
	latest   map[string]uint64 // generation of last persisted session per meeting ID
	timers   map[string]*time.Timer
}

// refreshCall is one in-flight token refresh, shared by every concurrent
// trigger for the same meeting ID.
type refreshCall struct {
	done chan struct{}
	sess *AccessSession
	err  error
}

// NewManager creates a session continuity manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Durable == nil {
		return nil, errors.New("durable store is required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	if cfg.Ephemeral == nil {
		cfg.Ephemeral = NewMemStore()
	}
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = DefaultSafetyMargin
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = DefaultFallbackTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Manager{
		durable:     cfg.Durable,
		ephemeral:   cfg.Ephemeral,
		issuer:      cfg.Issuer,
		margin:      cfg.SafetyMargin,
		fallbackTTL: cfg.FallbackTTL,
		clock:       cfg.Clock,
		inflight:    make(map[string]*refreshCall),
		latest:      make(map[string]uint64),
		timers:      make(map[string]*time.Timer),
	}, nil
}

// SaveCredentials persists join credentials to both tiers and maintains
// the room index as a side effect, so a client that only knows the room
// slug can find the meeting again.
func (m *Manager) SaveCredentials(ctx context.Context, creds *JoinCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	m.setBoth(ctx, credentialsKey(creds.MeetingID), string(data))
	if creds.RoomName != "" {
		m.setBoth(ctx, roomIndexKey(creds.RoomName), creds.MeetingID)
	}
	return nil
}

// Credentials loads the stored join credentials for a meeting, returning
// ErrNoCredentials when the participant never joined it.
func (m *Manager) Credentials(ctx context.Context, meetingID string) (*JoinCredentials, error) {
	value, err := m.readThrough(ctx, credentialsKey(meetingID))
	if err != nil {
		return nil, ErrNoCredentials
	}

	var creds JoinCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		log.Warn().Err(err).Str("meeting_id", meetingID).Msg("discarding corrupt stored credentials")
		_ = m.durable.Del(ctx, credentialsKey(meetingID))
		_ = m.ephemeral.Del(ctx, credentialsKey(meetingID))
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

// MeetingIDForRoom resolves a room name to its meeting ID via the durable
// room index, without a server round-trip.
func (m *Manager) MeetingIDForRoom(ctx context.Context, roomName string) (string, error) {
	id, err := m.readThrough(ctx, roomIndexKey(roomName))
	if err != nil {
		return "", ErrUnknownRoom
	}
	return id, nil
}

// Session returns a usable access session for the meeting: the cached one
// when present and unexpired (no network call), otherwise a fresh one from
// the token issuer.
func (m *Manager) Session(ctx context.Context, meetingID string) (*AccessSession, error) {
	return m.Refresh(ctx, meetingID, false)
}

// Refresh returns a session for the meeting. With force set, a still-valid
// cached session is bypassed; used for explicit "try again" recovery.
//
// Concurrent refresh triggers for the same meeting (the auto-refresh timer
// firing at the same moment as a manual retry) share a single in-flight
// token request. If a superseded refresh still resolves after a newer one,
// its result is discarded rather than overwriting the newer session.
func (m *Manager) Refresh(ctx context.Context, meetingID string, force bool) (*AccessSession, error) {
	if !force {
		if sess := m.cachedSession(ctx, meetingID); sess != nil {
			return sess, nil
		}
	}

	m.mu.Lock()
	if call, ok := m.inflight[meetingID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.sess, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight[meetingID] = call
	m.nextGen++
	gen := m.nextGen
	m.mu.Unlock()

	sess, err := m.issueSession(ctx, meetingID)

	m.mu.Lock()
	delete(m.inflight, meetingID)
	if err == nil {
		if m.latest[meetingID] > gen {
			// Latest wins: a newer session was persisted while this call
			// was in flight.
			if current := m.cachedSession(ctx, meetingID); current != nil {
				log.Debug().Str("meeting_id", meetingID).Msg("discarding superseded refresh result")
				sess = current
			} else {
				// The newer session is already gone or expired; this
				// result is the freshest usable one, so keep it. The
				// generation watermark stays put so other superseded
				// calls still defer.
				m.persistSession(ctx, sess)
			}
		} else {
			m.latest[meetingID] = gen
			m.persistSession(ctx, sess)
		}
	}
	call.sess, call.err = sess, err
	m.mu.Unlock()
	close(call.done)

	return sess, err
}

// issueSession performs the token request and builds the new session.
func (m *Manager) issueSession(ctx context.Context, meetingID string) (*AccessSession, error) {
	creds, err := m.Credentials(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	resp, err := m.issuer.IssueToken(ctx, TokenRequest{
		Identity:    creds.DisplayName,
		DisplayName: creds.DisplayName,
		RoomName:    creds.RoomName,
		AccessCode:  creds.AccessCode,
	})
	if err != nil {
		// Issuance failures surface to the caller; no automatic retry.
		return nil, err
	}

	sess := m.buildSession(resp, meetingID)

	// Keep the cached meeting title current for the rejoin flow.
	if resp.Meeting.Title != "" && resp.Meeting.Title != creds.MeetingTitle {
		creds.MeetingTitle = resp.Meeting.Title
		if err := m.SaveCredentials(ctx, creds); err != nil {
			log.Debug().Err(err).Msg("failed to update cached meeting title")
		}
	}

	return sess, nil
}

// buildSession derives the session expiry from the token's embedded claim,
// falling back to issuedAt+fallbackTTL when the claim cannot be decoded.
// Decode failures are logged, never propagated.
func (m *Manager) buildSession(resp *TokenResponse, meetingID string) *AccessSession {
	issuedAt := m.clock()

	expiresAt, err := DecodeExpiry(resp.Token)
	if err != nil {
		log.Warn().Err(err).
			Str("meeting_id", meetingID).
			Dur("fallback_ttl", m.fallbackTTL).
			Msg("could not decode token expiry, using fallback TTL")
		expiresAt = issuedAt.Add(m.fallbackTTL)
	}

	return &AccessSession{
		Token:     resp.Token,
		MediaURL:  resp.MediaURL,
		RoomName:  resp.RoomName,
		MeetingID: meetingID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

// AutoRefresh keeps the meeting's session fresh in the background: one
// timer is armed to fire at expiresAt-margin (immediately if already
// past), and re-armed after each successful renewal. The returned stop
// function cancels the timer; call it on teardown or when the meeting
// changes.
func (m *Manager) AutoRefresh(ctx context.Context, meetingID string) (stop func(), err error) {
	sess, err := m.Session(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	m.arm(ctx, meetingID, sess)

	return func() { m.disarm(meetingID) }, nil
}

func (m *Manager) arm(ctx context.Context, meetingID string, sess *AccessSession) {
	delay := sess.ExpiresAt.Add(-m.margin).Sub(m.clock())
	if delay < 0 {
		delay = 0
	}

	m.mu.Lock()
	// A new session supersedes the previous timer.
	if t := m.timers[meetingID]; t != nil {
		t.Stop()
	}
	m.timers[meetingID] = time.AfterFunc(delay, func() {
		m.refreshAndRearm(ctx, meetingID)
	})
	m.mu.Unlock()

	log.Debug().
		Str("meeting_id", meetingID).
		Time("fire_at", sess.ExpiresAt.Add(-m.margin)).
		Msg("armed session auto-refresh")
}

func (m *Manager) refreshAndRearm(ctx context.Context, meetingID string) {
	sess, err := m.Refresh(ctx, meetingID, false)
	if err != nil {
		// Renewal failure is surfaced through the next Session call; the
		// timer chain stops rather than hammering a failing issuer.
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("session auto-refresh failed")
		m.disarm(meetingID)
		return
	}

	m.mu.Lock()
	_, active := m.timers[meetingID]
	m.mu.Unlock()
	if !active {
		// Disarmed while the refresh was in flight.
		return
	}

	m.arm(ctx, meetingID, sess)
}

func (m *Manager) disarm(meetingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.timers[meetingID]; t != nil {
		t.Stop()
		delete(m.timers, meetingID)
	}
}

// ClearSession drops the stored session for a meeting, keeping the join
// credentials so the participant can rejoin without retyping them.
func (m *Manager) ClearSession(ctx context.Context, meetingID string) {
	m.disarm(meetingID)
	m.delBoth(ctx, sessionKey(meetingID))
}

// Logout clears the session, the credentials and the room index entry for
// a meeting.
func (m *Manager) Logout(ctx context.Context, meetingID string) {
	creds, err := m.Credentials(ctx, meetingID)

	m.ClearSession(ctx, meetingID)
	m.delBoth(ctx, credentialsKey(meetingID))

	if err == nil && creds.RoomName != "" {
		m.delBoth(ctx, roomIndexKey(creds.RoomName))
	}
}

// Resume restores a participant's state from a room name after a restart.
// When an unexpired durable session exists the caller can reconnect
// directly; otherwise a fresh session is issued from the saved
// credentials. The credentials are returned either way so display fields
// carry forward into the join flow.
func (m *Manager) Resume(ctx context.Context, roomName string) (*AccessSession, *JoinCredentials, error) {
	meetingID, err := m.MeetingIDForRoom(ctx, roomName)
	if err != nil {
		return nil, nil, err
	}

	creds, credsErr := m.Credentials(ctx, meetingID)

	if sess := m.cachedSession(ctx, meetingID); sess != nil {
		return sess, creds, nil
	}

	if credsErr != nil {
		return nil, nil, credsErr
	}

	sess, err := m.Refresh(ctx, meetingID, false)
	if err != nil {
		return nil, creds, err
	}
	return sess, creds, nil
}

// cachedSession returns the stored session when present and unexpired,
// nil otherwise. The ephemeral tier is tried first and lazily populated
// from the durable tier.
func (m *Manager) cachedSession(ctx context.Context, meetingID string) *AccessSession {
	value, err := m.readThrough(ctx, sessionKey(meetingID))
	if err != nil {
		return nil
	}

	var sess AccessSession
	if err := json.Unmarshal([]byte(value), &sess); err != nil {
		log.Warn().Err(err).Str("meeting_id", meetingID).Msg("discarding corrupt stored session")
		m.delBoth(ctx, sessionKey(meetingID))
		return nil
	}

	if sess.ExpiredAt(m.clock(), m.margin) {
		return nil
	}
	return &sess
}

func (m *Manager) persistSession(ctx context.Context, sess *AccessSession) {
	data, err := json.Marshal(sess)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode session")
		return
	}

	m.setBoth(ctx, sessionKey(sess.MeetingID), string(data))
	if sess.RoomName != "" {
		m.setBoth(ctx, roomIndexKey(sess.RoomName), sess.MeetingID)
	}
}

// readThrough reads a key from the ephemeral tier, falling back to the
// authoritative durable tier and caching a hit.
func (m *Manager) readThrough(ctx context.Context, key string) (string, error) {
	if value, err := m.ephemeral.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := m.durable.Get(ctx, key)
	if err != nil {
		return "", err
	}

	_ = m.ephemeral.Set(ctx, key, value)
	return value, nil
}

func (m *Manager) setBoth(ctx context.Context, key, value string) {
	if err := m.durable.Set(ctx, key, value); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("durable write failed")
	}
	_ = m.ephemeral.Set(ctx, key, value)
}

func (m *Manager) delBoth(ctx context.Context, key string) {
	_ = m.durable.Del(ctx, key)
	_ = m.ephemeral.Del(ctx, key)
}
