package dto

import "io"

// DocumentUpload carries an uploaded file from the transport layer to the document store.
type DocumentUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// DownloadURLResponse is returned when a signed download link is issued.
type DownloadURLResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}
