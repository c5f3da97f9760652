package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type postRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Picture     string   `json:"picture"`
	Categories  []string `json:"categories"`
}

func (a *App) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in postRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Title == "" || in.Description == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Title and description are required")
		return
	}

	claims := claimsFrom(r)
	post := &Post{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Picture:     in.Picture,
		Username:    claims.Username, // author comes from the token, not the body
		Categories:  in.Categories,
		CreatedDate: time.Now(),
	}

	created, err := a.DB.CreatePost(r.Context(), post)
	if errors.Is(err, ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "CONFLICT", "Title already exists. Please choose a different title.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create post")
		return
	}

	writeMsg(w, "Post created successfully", created)
}

// loadPost resolves the {id} route variable to a post, writing the error
// response itself when the id is malformed or the post is missing.
func (a *App) loadPost(w http.ResponseWriter, r *http.Request) *Post {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid post ID format")
		return nil
	}
	post, err := a.DB.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load post")
		return nil
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Post not found")
		return nil
	}
	return post
}

func (a *App) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post := a.loadPost(w, r)
	if post == nil {
		return
	}
	writeSuccess(w, http.StatusOK, post)
}

func (a *App) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := a.DB.ListPosts(r.Context(), PostFilter{
		Username: q.Get("username"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list posts")
		return
	}
	if posts == nil {
		posts = []*Post{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(posts),
		"data":    posts,
	})
}

func (a *App) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	post := a.loadPost(w, r)
	if post == nil {
		return
	}
	if err := authorizeOwner(post.Username, claimsFrom(r).Username); err != nil {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not authorized to update this post")
		return
	}

	var in postRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Title != "" {
		post.Title = in.Title
	}
	if in.Description != "" {
		post.Description = in.Description
	}
	if in.Picture != "" {
		post.Picture = in.Picture
	}
	if in.Categories != nil {
		post.Categories = in.Categories
	}

	err := a.DB.UpdatePost(r.Context(), post)
	if errors.Is(err, ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "CONFLICT", "Title already exists. Please choose a different title.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update post")
		return
	}
	writeMsg(w, "Post updated successfully", nil)
}

func (a *App) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	post := a.loadPost(w, r)
	if post == nil {
		return
	}
	if err := authorizeOwner(post.Username, claimsFrom(r).Username); err != nil {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not authorized to delete this post")
		return
	}

	if err := a.DB.DeletePost(r.Context(), post.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete post")
		return
	}
	writeMsg(w, "Post deleted successfully", nil)
}
