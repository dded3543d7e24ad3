package rest

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// currentUserID is only called behind authenticate.
func currentUserID(r *http.Request) int64 {
	u, _ := UserFromContext(r.Context())
	return u.ID
}

func fileID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryInt parses a positive integer query parameter; anything else is 0.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// writeFileError maps service errors of file operations.
func (s *HTTPServer) writeFileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case writeValidation(w, err):
	case errors.Is(err, common.ErrorNotFound):
		writeMessage(w, http.StatusNotFound, msgFileNotFound)
	case errors.Is(err, common.ErrorForbidden):
		writeMessage(w, http.StatusForbidden, msgForbidden)
	default:
		s.internalError(w, r, err)
	}
}

// readUpload extracts the "file" part of a multipart request. The returned
// closer must be called once the upload has been consumed.
func (s *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) (services.Upload, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)

	f, header, err := r.FormFile("file")
	if err != nil {
		return services.Upload{}, nil, err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			mimeType = byExt
		}
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return services.Upload{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         header.Size,
		Body:         f,
	}, f, nil
}

// writeUploadError answers a failed readUpload.
func writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
		return
	}
	writeMessage(w, http.StatusBadRequest, services.MsgNoFile)
}

func (s *HTTPServer) uploadFile(w http.ResponseWriter, r *http.Request) {
	in, closer, err := s.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer closer.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, err := s.files.Upload(r.Context(), currentUserID(r), in)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (s *HTTPServer) listFiles(w http.ResponseWriter, r *http.Request) {
	items, err := s.files.List(r.Context(), currentUserID(r), queryInt(r, "list_size"), queryInt(r, "page"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) getFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidFileID)
		return
	}

	file, err := s.files.Get(r.Context(), currentUserID(r), id)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (s *HTTPServer) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidFileID)
		return
	}

	file, rc, err := s.files.Open(r.Context(), currentUserID(r), id)
	if err != nil {
		s.writeFileError(w, r, err)
		return
	}
	defer rc.Close()

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": file.Name + file.Extension,
	}))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn(r.Context(), "download interrupted", "file_id", file.ID, "error", err)
	}
}

func (s *HTTPServer) updateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidFileID)
		return
	}

	in, closer, err := s.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	defer closer.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if _, err := s.files.Update(r.Context(), currentUserID(r), id, in); err != nil {
		s.writeFileError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, msgFileUpdated)
}

func (s *HTTPServer) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidFileID)
		return
	}

	if err := s.files.Delete(r.Context(), currentUserID(r), id); err != nil {
		s.writeFileError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, msgFileDeleted)
}
