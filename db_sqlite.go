package main

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite DB
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, username TEXT UNIQUE NOT NULL, name TEXT, email TEXT, password TEXT NOT NULL, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (token TEXT PRIMARY KEY, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS posts (id TEXT PRIMARY KEY, title TEXT UNIQUE NOT NULL, description TEXT NOT NULL, picture TEXT, username TEXT NOT NULL, categories TEXT, created_date TEXT);`,
		`CREATE TABLE IF NOT EXISTS comments (id TEXT PRIMARY KEY, post_id TEXT NOT NULL, username TEXT NOT NULL, body TEXT NOT NULL, created_date TEXT);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// categories are stored as a comma-joined list in a single column
func joinCategories(cats []string) string {
	return strings.Join(cats, ",")
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func (s *SQLiteDB) CreateUser(ctx context.Context, u *User) (*User, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id,username,name,email,password,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Username, u.Name, u.Email, u.Password, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	c := *u
	return &c, nil
}

func (s *SQLiteDB) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,username,name,email,password,created_at FROM users WHERE username = ? OR (email != '' AND email = ?)`,
		usernameOrEmail, usernameOrEmail)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Password, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

func (s *SQLiteDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteDB) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email != '' AND email = ?`, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteDB) SaveToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO refresh_tokens(token,created_at) VALUES(?,?)`,
		token, time.Now().Format(time.RFC3339))
	return err
}

func (s *SQLiteDB) TokenExists(ctx context.Context, token string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM refresh_tokens WHERE token = ?`, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteDB) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

func (s *SQLiteDB) CreatePost(ctx context.Context, p *Post) (*Post, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO posts(id,title,description,picture,username,categories,created_date) VALUES(?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Description, p.Picture, p.Username, joinCategories(p.Categories), p.CreatedDate.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	c := *p
	return &c, nil
}

func (s *SQLiteDB) GetPost(ctx context.Context, id string) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,picture,username,categories,created_date FROM posts WHERE id = ?`, id)
	var p Post
	var cats, created string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Picture, &p.Username, &cats, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Categories = splitCategories(cats)
	p.CreatedDate, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

func (s *SQLiteDB) UpdatePost(ctx context.Context, p *Post) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET title = ?, description = ?, picture = ?, categories = ? WHERE id = ?`,
		p.Title, p.Description, p.Picture, joinCategories(p.Categories), p.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteDB) DeletePost(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

func (s *SQLiteDB) ListPosts(ctx context.Context, f PostFilter) ([]*Post, error) {
	q := `SELECT id,title,description,picture,username,categories,created_date FROM posts`
	var args []interface{}
	switch {
	case f.Username != "":
		q += ` WHERE username = ?`
		args = append(args, f.Username)
	case f.Category != "":
		q += ` WHERE (',' || categories || ',') LIKE ('%,' || ? || ',%')`
		args = append(args, f.Category)
	case f.Search != "":
		q += ` WHERE lower(title) LIKE ('%' || ? || '%') OR lower(description) LIKE ('%' || ? || '%')`
		needle := strings.ToLower(f.Search)
		args = append(args, needle, needle)
	}
	q += ` ORDER BY created_date DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []*Post
	for rows.Next() {
		var p Post
		var cats, created string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Picture, &p.Username, &cats, &created); err != nil {
			return nil, err
		}
		p.Categories = splitCategories(cats)
		p.CreatedDate, _ = time.Parse(time.RFC3339, created)
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

func (s *SQLiteDB) CreateComment(ctx context.Context, c *Comment) (*Comment, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO comments(id,post_id,username,body,created_date) VALUES(?,?,?,?,?)`,
		c.ID, c.PostID, c.Username, c.Text, c.Date.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (s *SQLiteDB) GetComment(ctx context.Context, id string) (*Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,post_id,username,body,created_date FROM comments WHERE id = ?`, id)
	var c Comment
	var created string
	if err := row.Scan(&c.ID, &c.PostID, &c.Username, &c.Text, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Date, _ = time.Parse(time.RFC3339, created)
	return &c, nil
}

func (s *SQLiteDB) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,post_id,username,body,created_date FROM comments WHERE post_id = ? ORDER BY created_date ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var comments []*Comment
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.PostID, &c.Username, &c.Text, &created); err != nil {
			return nil, err
		}
		c.Date, _ = time.Parse(time.RFC3339, created)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (s *SQLiteDB) DeleteComment(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	return err
}

func (s *SQLiteDB) close() error { return s.db.Close() }
func (s *SQLiteDB) ping() bool   { return s.db.Ping() == nil }
