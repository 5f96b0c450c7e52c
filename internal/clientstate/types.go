// Package clientstate manages a participant's client-side state: durable
// join credentials, short-lived renewable access sessions, and the room
// index linking a room name back to its meeting. It survives restarts via
// a durable store tier and proactively renews sessions before token expiry.
package clientstate

import "time"

// DefaultSafetyMargin is the lead time before a token's real expiry at
// which a session is treated as expired, so renewal happens before the
// media backend starts rejecting the token.
const DefaultSafetyMargin = 30 * time.Second

// DefaultFallbackTTL bounds a session's lifetime when the token's embedded
// expiry claim cannot be decoded.
const DefaultFallbackTTL = 10 * time.Minute

// AccessSession is a short-lived, renewable credential representing one
// participant's live connection to a room. It is owned by a single client
// context; a stale or expired session is never presented to the media
// backend.
type AccessSession struct {
	Token     string    `json:"token"`
	MediaURL  string    `json:"mediaUrl"`
	RoomName  string    `json:"roomName"`
	MeetingID string    `json:"meetingId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt reports whether the session should be considered expired at
// now, given the safety margin: expired iff now >= ExpiresAt - margin.
func (s *AccessSession) ExpiredAt(now time.Time, margin time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-margin))
}

// JoinCredentials are the durable, user-supplied identity fields used to
// (re)request an AccessSession. They outlive any individual session so a
// returning participant does not retype them. AccessCode is kept so
// protected meetings can be renewed and resumed without prompting again.
type JoinCredentials struct {
	MeetingID    string `json:"meetingId"`
	RoomName     string `json:"roomName"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email,omitempty"`
	AccessCode   string `json:"accessCode,omitempty"`
	MeetingTitle string `json:"meetingTitle,omitempty"`
}
