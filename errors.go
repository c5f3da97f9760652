package main

import (
	"encoding/json"
	"net/http"
)

// APIError is the envelope for every non-2xx response body.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{Code: code, Message: message})
}

// writeSuccess wraps a record in the success envelope.
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// writeMsg is the success envelope for operations whose primary result is a
// confirmation message. A non-nil payload rides along under "data".
func writeMsg(w http.ResponseWriter, msg string, data interface{}) {
	body := map[string]interface{}{
		"success": true,
		"msg":     msg,
	}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, http.StatusOK, body)
}
