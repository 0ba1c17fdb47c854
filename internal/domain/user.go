package domain

// User is the authenticated account as returned by the current-user
// endpoint. Login and registration responses only fill ID and Username.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LeaderboardEntry is one ranked row. Karma is computed by the backend
// (post likes x 5 + comment likes x 1) and only displayed here.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Karma    int    `json:"karma"`
}
