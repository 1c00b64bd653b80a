package authapi

// User is an account on the auth backend. The ID is opaque and unique per
// account; Name comes from user metadata and may be empty.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session pairs an access token with the user it authenticates.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// rawUser matches the backend's wire shape, with the display name nested in
// user metadata.
type rawUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (r rawUser) user() User {
	return User{ID: r.ID, Email: r.Email, Name: r.UserMetadata.Name}
}
