package models

import "time"

// File is the metadata record of one stored upload. Path and PreviewPath are
// physical locations and never leave the server.
type File struct {
	ID               string    `json:"id"`
	OwnerID          int64     `json:"owner_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	Path             string    `json:"-"`
	PreviewPath      *string   `json:"-"`
	FileType         string    `json:"file_type"`
	SizeMB           float64   `json:"size_mb"`
	MimeType         string    `json:"mime_type"`
	CreatedAt        time.Time `json:"created_at"`
}

func (f *File) HasPreview() bool {
	return f.PreviewPath != nil && *f.PreviewPath != ""
}
