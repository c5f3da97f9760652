package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type commentRequest struct {
	PostID string `json:"postId"`
	Text   string `json:"comments"`
}

func (a *App) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.PostID == "" || in.Text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Post ID and comment text are required")
		return
	}

	post, err := a.DB.GetPost(r.Context(), in.PostID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Post not found")
		return
	}

	comment := &Comment{
		ID:       uuid.NewString(),
		PostID:   in.PostID,
		Username: claimsFrom(r).Username,
		Text:     in.Text,
		Date:     time.Now(),
	}
	created, err := a.DB.CreateComment(r.Context(), comment)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add comment")
		return
	}
	writeMsg(w, "Comment added successfully", created)
}

func (a *App) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	comments, err := a.DB.ListComments(r.Context(), postID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list comments")
		return
	}
	if comments == nil {
		comments = []*Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(comments),
		"data":    comments,
	})
}

func (a *App) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid comment ID format")
		return
	}

	comment, err := a.DB.GetComment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Comment not found")
		return
	}
	if err := authorizeOwner(comment.Username, claimsFrom(r).Username); err != nil {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not authorized to delete this comment")
		return
	}

	if err := a.DB.DeleteComment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete comment")
		return
	}
	writeMsg(w, "Comment deleted successfully", nil)
}
