package model

import "time"

// UserProfile holds the mobile-channel delivery state for a user: the push
// token registered by the app and whether the user wants completion pushes.
type UserProfile struct {
	UserID               string
	PushToken            string
	NotificationsEnabled bool
	AppVersion           string
	UpdatedAt            time.Time
}
