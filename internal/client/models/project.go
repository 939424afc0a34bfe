package models

// Project belongs to a user's project list. The client never creates one
// locally before the server confirms it.
type Project struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
}

// ProjectInput is the body of POST /api/projects and PUT /api/projects/:id.
type ProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
