package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.close() })
	return db
}

func TestSQLiteUsers(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	alice := &User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Name:      "Alice",
		Email:     "alice@example.com",
		Password:  "hashed",
		CreatedAt: time.Now(),
	}
	created, err := db.CreateUser(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "alice", created.Username)

	_, err = db.CreateUser(ctx, &User{ID: uuid.NewString(), Username: "alice", Password: "x"})
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := db.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "hashed", got.Password)

	byEmail, err := db.GetUserByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	require.Equal(t, alice.ID, byEmail.ID)

	missing, err := db.GetUserByLogin(ctx, "ghost")
	require.NoError(t, err)
	require.Nil(t, missing)

	ok, err := db.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteTokens(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.SaveToken(ctx, "tok"))

	ok, err := db.TokenExists(ctx, "tok")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.DeleteToken(ctx, "tok"))
	require.NoError(t, db.DeleteToken(ctx, "tok"))

	ok, err = db.TokenExists(ctx, "tok")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLitePosts(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	mkPost := func(title, username string, age time.Duration, cats ...string) *Post {
		p := &Post{
			ID:          uuid.NewString(),
			Title:       title,
			Description: "About " + title,
			Username:    username,
			Categories:  cats,
			CreatedDate: base.Add(-age),
		}
		created, err := db.CreatePost(ctx, p)
		require.NoError(t, err)
		return created
	}

	first := mkPost("Go concurrency", "alice", 2*time.Hour, "programming", "go")
	mkPost("Sourdough basics", "alice", time.Hour, "baking")
	mkPost("Generics in GO", "bob", 0, "programming")

	_, err := db.CreatePost(ctx, &Post{ID: uuid.NewString(), Title: "Go concurrency", Description: "dup", Username: "bob"})
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := db.GetPost(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []string{"programming", "go"}, got.Categories)

	missing, err := db.GetPost(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)

	all, err := db.ListPosts(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest first
	require.Equal(t, "Generics in GO", all[0].Title)

	byUser, err := db.ListPosts(ctx, PostFilter{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byCat, err := db.ListPosts(ctx, PostFilter{Category: "go"})
	require.NoError(t, err)
	require.Len(t, byCat, 1)

	// category match is exact, not substring
	byCat, err = db.ListPosts(ctx, PostFilter{Category: "programming"})
	require.NoError(t, err)
	require.Len(t, byCat, 2)

	bySearch, err := db.ListPosts(ctx, PostFilter{Search: "go"})
	require.NoError(t, err)
	require.Len(t, bySearch, 2)

	got.Description = "rewritten"
	require.NoError(t, db.UpdatePost(ctx, got))
	reread, err := db.GetPost(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "rewritten", reread.Description)

	require.NoError(t, db.DeletePost(ctx, first.ID))
	gone, err := db.GetPost(ctx, first.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestSQLiteComments(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	post, err := db.CreatePost(ctx, &Post{
		ID: uuid.NewString(), Title: "Host post", Description: "d", Username: "alice", CreatedDate: time.Now(),
	})
	require.NoError(t, err)

	c, err := db.CreateComment(ctx, &Comment{
		ID: uuid.NewString(), PostID: post.ID, Username: "bob", Text: "hi", Date: time.Now(),
	})
	require.NoError(t, err)

	got, err := db.GetComment(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hi", got.Text)

	list, err := db.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	other, err := db.ListComments(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, other)

	require.NoError(t, db.DeleteComment(ctx, c.ID))
	gone, err := db.GetComment(ctx, c.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}
