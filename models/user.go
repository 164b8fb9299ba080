package models

import "time"

// User represents an account that can own playlists
type User struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// UserView is the public shape of a user returned by the API
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username}
}
