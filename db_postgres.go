package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) Init() error {
	// rely on migrations to create tables; just verify connectivity
	if err := p.db.Ping(); err != nil {
		return err
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *PostgresDB) CreateUser(ctx context.Context, u *User) (*User, error) {
	_, err := p.db.ExecContext(ctx, `INSERT INTO users(id,username,name,email,password,created_at) VALUES($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.Name, u.Email, u.Password, u.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	c := *u
	return &c, nil
}

func (p *PostgresDB) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id,username,name,email,password,created_at FROM users WHERE username = $1 OR (email <> '' AND email = $1)`, usernameOrEmail)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Password, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (p *PostgresDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (p *PostgresDB) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email <> '' AND email = $1)`, email).Scan(&exists)
	return exists, err
}

func (p *PostgresDB) SaveToken(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO refresh_tokens(token,created_at) VALUES($1,now()) ON CONFLICT (token) DO NOTHING`, token)
	return err
}

func (p *PostgresDB) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token = $1)`, token).Scan(&exists)
	return exists, err
}

func (p *PostgresDB) DeleteToken(ctx context.Context, token string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (p *PostgresDB) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	_, err := p.db.ExecContext(ctx, `INSERT INTO posts(id,title,description,picture,username,categories,created_date) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		post.ID, post.Title, post.Description, post.Picture, post.Username, joinCategories(post.Categories), post.CreatedDate)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	c := *post
	return &c, nil
}

func (p *PostgresDB) GetPost(ctx context.Context, id string) (*Post, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id,title,description,picture,username,categories,created_date FROM posts WHERE id = $1`, id)
	var post Post
	var cats string
	if err := row.Scan(&post.ID, &post.Title, &post.Description, &post.Picture, &post.Username, &cats, &post.CreatedDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	post.Categories = splitCategories(cats)
	return &post, nil
}

func (p *PostgresDB) UpdatePost(ctx context.Context, post *Post) error {
	_, err := p.db.ExecContext(ctx, `UPDATE posts SET title = $1, description = $2, picture = $3, categories = $4 WHERE id = $5`,
		post.Title, post.Description, post.Picture, joinCategories(post.Categories), post.ID)
	if isPgUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (p *PostgresDB) DeletePost(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return err
}

func (p *PostgresDB) ListPosts(ctx context.Context, f PostFilter) ([]*Post, error) {
	q := `SELECT id,title,description,picture,username,categories,created_date FROM posts`
	var args []interface{}
	switch {
	case f.Username != "":
		q += ` WHERE username = $1`
		args = append(args, f.Username)
	case f.Category != "":
		q += ` WHERE (',' || categories || ',') LIKE ('%,' || $1 || ',%')`
		args = append(args, f.Category)
	case f.Search != "":
		q += ` WHERE title ILIKE ('%' || $1 || '%') OR description ILIKE ('%' || $1 || '%')`
		args = append(args, strings.ToLower(f.Search))
	}
	q += ` ORDER BY created_date DESC`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []*Post
	for rows.Next() {
		var post Post
		var cats string
		if err := rows.Scan(&post.ID, &post.Title, &post.Description, &post.Picture, &post.Username, &cats, &post.CreatedDate); err != nil {
			return nil, err
		}
		post.Categories = splitCategories(cats)
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}

func (p *PostgresDB) CreateComment(ctx context.Context, c *Comment) (*Comment, error) {
	_, err := p.db.ExecContext(ctx, `INSERT INTO comments(id,post_id,username,body,created_date) VALUES($1,$2,$3,$4,$5)`,
		c.ID, c.PostID, c.Username, c.Text, c.Date)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (p *PostgresDB) GetComment(ctx context.Context, id string) (*Comment, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id,post_id,username,body,created_date FROM comments WHERE id = $1`, id)
	var c Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.Username, &c.Text, &c.Date); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (p *PostgresDB) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id,post_id,username,body,created_date FROM comments WHERE post_id = $1 ORDER BY created_date ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var comments []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Username, &c.Text, &c.Date); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (p *PostgresDB) DeleteComment(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return err
}

func (p *PostgresDB) close() error { return p.db.Close() }
func (p *PostgresDB) ping() bool   { return p.db.Ping() == nil }
