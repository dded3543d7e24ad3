package models

import "time"

// File describes an uploaded file. The content lives in blob storage under
// FileName; everything else is metadata shown to the owner.
type File struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FileName   string    `json:"filename"`
	Extension  string    `json:"extension"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"upload_date"`
	UserID     int64     `json:"user_id"`
}
