package main

import "time"

// User represents a registered author. The password field holds the bcrypt
// digest and is never serialized.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// Sanitized returns a copy safe to hand to callers. The password digest is
// stripped even though the JSON tag already hides it.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Password = ""
	return &c
}

// Post is a blog entry. Username records the creator and is immutable; only
// the matching identity may update or delete the post.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Picture     string    `json:"picture,omitempty"`
	Username    string    `json:"username"`
	Categories  []string  `json:"categories"`
	CreatedDate time.Time `json:"createdDate"`
}

// Comment is a reader note attached to a post.
type Comment struct {
	ID       string    `json:"id"`
	PostID   string    `json:"postId"`
	Username string    `json:"username"`
	Text     string    `json:"comments"`
	Date     time.Time `json:"date"`
}
