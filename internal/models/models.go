package models

import "time"

// Collection names in the document store
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

// Account represents an authentication account
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile is the profile document stored under the user's id.
// Fields missing from storage decode to their zero value.
type UserProfile struct {
	UserID    string   `json:"userId,omitempty"`
	Name      string   `json:"name,omitempty"`
	UserName  string   `json:"userName,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Following []string `json:"following,omitempty"`
}

// Post represents a photo post. Author username and image are copied at creation time.
type Post struct {
	PostID          string `json:"postId"`
	UserID          string `json:"userId"`
	Username        string `json:"username,omitempty"`
	UserImage       string `json:"userImage,omitempty"`
	PostImage       string `json:"postImage"`
	PostDescription string `json:"postDescription,omitempty"`
	// Time is the creation time in unix milliseconds
	Time int64 `json:"time"`
}
