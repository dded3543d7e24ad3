package rest

import (
	"encoding/json"
	"net/http"
)

const (
	msgInternal       = "Internal server error"
	msgInvalidBody    = "Invalid request body"
	msgNoToken        = "No token provided"
	msgTokenBlocked   = "Token is blocked"
	msgInvalidToken   = "Invalid token"
	msgUserNotFound   = "User not found"
	msgUserExists     = "User already exists"
	msgBadCredentials = "Invalid credentials"
	msgBadRefresh     = "Invalid refresh token"
	msgLoggedOut      = "Logged out successfully"
	msgForbidden      = "Forbidden"
	msgFileNotFound   = "File not found"
	msgInvalidFileID  = "Invalid file id"
	msgFileTooLarge   = "File too large"
	msgFileUpdated    = "File updated successfully"
	msgFileDeleted    = "File deleted successfully"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
