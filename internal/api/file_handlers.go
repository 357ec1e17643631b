package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lite-drive/internal/files"
	"lite-drive/internal/models"
)

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to a temporary file.
const multipartMemory = 32 << 20

type UploadResponse struct {
	Message  string  `json:"message" example:"File uploaded successfully"`
	ID       string  `json:"id" example:"V1StGXR8_Z5jdHi6B-myT"`
	Filename string  `json:"filename" example:"holiday.png"`
	Size     float64 `json:"size" example:"5.0"`
}

func (s *Server) ownerFromRequest(r *http.Request) files.Owner {
	account := GetAccountFromContext(r.Context())
	return files.Owner{ID: account.ID, Email: account.Email}
}

// writeFileError translates file service failures. Anything that is not a
// client mistake is reported as a generic failure so that no path or driver
// detail reaches the response.
func (s *Server) writeFileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, files.ErrQuotaExceeded):
		respondMessage(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, files.ErrNotFound):
		respondMessage(w, http.StatusNotFound, "File not found")
	case errors.Is(err, files.ErrInvalidFilename):
		respondMessage(w, http.StatusBadRequest, "Invalid filename")
	case errors.Is(err, files.ErrAccountDisabled):
		respondMessage(w, http.StatusForbidden, "Account is disabled")
	default:
		s.logger.Error("file operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// @Summary      Upload a file
// @Description  Stores a file for the authenticated user and generates its preview. The upload is refused when it would go past the user's storage limit.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "File to upload"
// @Success      201   {object}  UploadResponse
// @Failure      400   {object}  MessageResponse "Missing or invalid file"
// @Failure      401   {string}  string "Unauthorized"
// @Failure      413   {object}  MessageResponse "File too large or quota exceeded"
// @Failure      500   {object}  MessageResponse "Internal Server Error"
// @Router       /upload [post]
func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Storage.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondMessage(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		respondMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	record, err := s.files.Upload(r.Context(), s.ownerFromRequest(r), header.Filename, header.Size, file)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, UploadResponse{
		Message:  "File uploaded successfully",
		ID:       record.ID,
		Filename: record.OriginalFilename,
		Size:     record.SizeMB,
	})
}

// @Summary      Download a file
// @Description  Streams the original bytes of one of the user's files. Files of other users are reported as missing.
// @Tags         files
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        id   path      string  true  "File ID"
// @Success      200  {file}    file
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {object}  MessageResponse "File not found"
// @Failure      500  {object}  MessageResponse "Internal Server Error"
// @Router       /download/{id} [get]
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)

	record, body, err := s.files.Open(r.Context(), chi.URLParam(r, "id"), owner.ID)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": record.OriginalFilename,
	}))

	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, record.OriginalFilename, record.CreatedAt, rs)
		return
	}

	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("download interrupted", "file_id", record.ID, "error", err)
	}
}

// @Summary      Delete a file
// @Description  Removes the file, its preview and its record, and gives the space back to the user's quota.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "File ID"
// @Success      200  {object}  MessageResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {object}  MessageResponse "File not found"
// @Failure      500  {object}  MessageResponse "Internal Server Error"
// @Router       /file/{id} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)

	if err := s.files.Delete(r.Context(), chi.URLParam(r, "id"), owner.ID); err != nil {
		s.writeFileError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "File deleted successfully")
}

// @Summary      Get a file preview
// @Description  Returns the thumbnail of an image, or the icon of the file's category for every other type.
// @Tags         files
// @Produce      image/jpeg
// @Produce      image/png
// @Security     BearerAuth
// @Param        id   path      string  true  "File ID"
// @Success      200  {file}    file
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {object}  MessageResponse "File not found"
// @Failure      500  {object}  MessageResponse "Internal Server Error"
// @Router       /preview/{id} [get]
func (s *Server) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)

	content, err := s.files.Preview(r.Context(), chi.URLParam(r, "id"), owner.ID)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Preview-Generated", strconv.FormatBool(content.Generated))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		s.logger.Warn("preview write interrupted", "error", err)
	}
}

// @Summary      List files
// @Description  Lists the authenticated user's files, newest first.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.File
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {object}  MessageResponse "Internal Server Error"
// @Router       /api/v1/files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)

	list, err := s.files.List(r.Context(), owner.ID)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}
	if list == nil {
		list = []models.File{}
	}

	respondJSON(w, http.StatusOK, list)
}
