package main

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrDuplicate is returned by stores when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate key")

// UserDirectory persists user identity records.
type UserDirectory interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	// GetUserByLogin matches the username or the email exactly; returns
	// (nil, nil) when no user matches.
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// TokenStore tracks which refresh tokens are currently live. The token
// string itself is the lookup key and is opaque to the store.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	TokenExists(ctx context.Context, token string) (bool, error)
	// DeleteToken is idempotent; deleting an absent token is not an error.
	DeleteToken(ctx context.Context, token string) error
}

// PostFilter narrows ListPosts. The first non-empty field wins, in order.
type PostFilter struct {
	Username string
	Category string
	Search   string
}

// PostStore persists blog posts.
type PostStore interface {
	CreatePost(ctx context.Context, p *Post) (*Post, error)
	// GetPost returns (nil, nil) when the post does not exist.
	GetPost(ctx context.Context, id string) (*Post, error)
	UpdatePost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, f PostFilter) ([]*Post, error)
}

// CommentStore persists reader comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c *Comment) (*Comment, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, postID string) ([]*Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// DB is the full persistence surface implemented by each adapter.
type DB interface {
	Init() error
	UserDirectory
	TokenStore
	PostStore
	CommentStore
}

// Memory DB. Guarded by a mutex: racing logout and refresh against the same
// token value must serialize to last-writer-wins.
type MemDB struct {
	mu       sync.RWMutex
	users    map[string]*User // keyed by username
	tokens   map[string]time.Time
	posts    map[string]*Post
	comments map[string]*Comment
}

func NewMemoryDB() *MemDB {
	return &MemDB{
		users:    map[string]*User{},
		tokens:   map[string]time.Time{},
		posts:    map[string]*Post{},
		comments: map[string]*Comment{},
	}
}

func (m *MemDB) Init() error { return nil }

func (m *MemDB) CreateUser(ctx context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return nil, ErrDuplicate
	}
	c := *u
	m.users[u.Username] = &c
	out := c
	return &out, nil
}

func (m *MemDB) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[usernameOrEmail]; ok {
		c := *u
		return &c, nil
	}
	for _, u := range m.users {
		if u.Email != "" && u.Email == usernameOrEmail {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *MemDB) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email != "" && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemDB) SaveToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = time.Now()
	return nil
}

func (m *MemDB) TokenExists(ctx context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *MemDB) DeleteToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *MemDB) CreatePost(ctx context.Context, p *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if existing.Title == p.Title {
			return nil, ErrDuplicate
		}
	}
	c := *p
	m.posts[p.ID] = &c
	out := c
	return &out, nil
}

func (m *MemDB) GetPost(ctx context.Context, id string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.posts[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (m *MemDB) UpdatePost(ctx context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return nil
	}
	for id, existing := range m.posts {
		if id != p.ID && existing.Title == p.Title {
			return ErrDuplicate
		}
	}
	c := *p
	m.posts[p.ID] = &c
	return nil
}

func (m *MemDB) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

func (m *MemDB) ListPosts(ctx context.Context, f PostFilter) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Post
	for _, p := range m.posts {
		if !matchPost(p, f) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDate.After(out[j].CreatedDate) })
	return out, nil
}

func matchPost(p *Post, f PostFilter) bool {
	switch {
	case f.Username != "":
		return p.Username == f.Username
	case f.Category != "":
		for _, c := range p.Categories {
			if c == f.Category {
				return true
			}
		}
		return false
	case f.Search != "":
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	}
	return true
}

func (m *MemDB) CreateComment(ctx context.Context, c *Comment) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.comments[c.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemDB) GetComment(ctx context.Context, id string) (*Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *MemDB) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemDB) DeleteComment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

// lifecycle helpers
func (m *MemDB) close() error { return nil }
func (m *MemDB) ping() bool   { return true }
