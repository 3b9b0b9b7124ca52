package model

import "time"

// RefreshSession is the server-side record binding a (user, device) pair to
// the refresh token that device currently holds.
//
// AT MOST ONE LIVE SESSION PER (UserID, DeviceID):
// saving a session for a device always overwrites the previous one — that
// overwrite is the token rotation. A client presenting a refresh token that
// no longer matches the stored one is replaying a superseded token, which the
// auth service treats as theft.
type RefreshSession struct {
	UserID       int64     `json:"userId"`
	DeviceID     string    `json:"deviceId"`
	RefreshToken string    `json:"refreshToken"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the session has aged out at the given instant.
func (s RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenPair is what every successful login or refresh hands back to the
// client: a short-lived access token and the refresh token that supersedes
// any previous one for the device.
//
// The pair is never persisted as a unit — the access token is self-verifying
// and the refresh token is tracked per device in the session store.
type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	AccessExpiresIn  int64  `json:"accessExpiresIn"`  // seconds
	RefreshExpiresIn int64  `json:"refreshExpiresIn"` // seconds
}
