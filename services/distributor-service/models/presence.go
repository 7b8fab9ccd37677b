package models

import "time"

// PresenceAction is what a presence touch records
type PresenceAction string

const (
	ActionLogin    PresenceAction = "login"
	ActionLogout   PresenceAction = "logout"
	ActionActivity PresenceAction = "activity"
)

// Valid reports whether a is a known action.
func (a PresenceAction) Valid() bool {
	switch a {
	case ActionLogin, ActionLogout, ActionActivity:
		return true
	}
	return false
}

// UserSession is the stored presence record of one user. Online state is
// derived from LastActivity and never stored.
type UserSession struct {
	Username     string     `bson:"username" json:"username"`
	LastActivity time.Time  `bson:"lastActivity" json:"lastActivity"`
	LoginTime    *time.Time `bson:"loginTime,omitempty" json:"loginTime,omitempty"`
	LogoutTime   *time.Time `bson:"logoutTime,omitempty" json:"logoutTime,omitempty"`
	SessionCount int        `bson:"sessionCount" json:"sessionCount"`
}

// PresenceStatus is the derived view returned by GET /user-status
type PresenceStatus struct {
	Online       bool       `json:"online"`
	LastActivity time.Time  `json:"lastActivity"`
	LoginTime    *time.Time `json:"loginTime,omitempty"`
	LogoutTime   *time.Time `json:"logoutTime,omitempty"`
	SessionCount int        `json:"sessionCount"`
}

// TouchRequest is the body of POST /user-status
type TouchRequest struct {
	Action PresenceAction `json:"action" binding:"required,oneof=login logout activity"`
}
