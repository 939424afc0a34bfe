// Package models defines the wire and state types the client shares with the
// backend: users, projects, auth payloads and form requests.
package models

import "unicode"

// UserSummary is a read-only snapshot of a user as returned by the server.
// Projects is filled only by the public profile endpoint.
type UserSummary struct {
	ID          int64     `json:"id"`
	UniqueID    string    `json:"unique_id"`
	Nickname    string    `json:"nickname"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	Projects    []Project `json:"projects,omitempty"`
}

// UserLite is one row of a search result.
type UserLite struct {
	ID       int64  `json:"id"`
	UniqueID string `json:"unique_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
}

// Initial is the letter shown in place of a missing avatar.
func Initial(nickname string) string {
	for _, r := range nickname {
		return string(unicode.ToUpper(r))
	}
	return "?"
}

// ProfileUpdate is the body of PUT /api/users/profile.
type ProfileUpdate struct {
	Nickname    string `json:"nickname"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}
