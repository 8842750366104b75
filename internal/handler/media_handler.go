package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-media-share/internal/middleware"
	"go-media-share/internal/model"
	"go-media-share/internal/service"
	"go-media-share/pkg/apierror"
)

// multipartOverhead is the slack allowed on top of the file limit for
// boundaries and part headers.
const multipartOverhead = 1 << 20

type MediaHandler struct {
	service *service.MediaService
}

func NewMediaHandler(service *service.MediaService) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUploadSize()+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, model.ErrPayloadTooLarge)
				return
			}
			writeError(w, apierror.New("BAD_REQUEST", "invalid multipart stream", nextErr.Error(), http.StatusBadRequest))
			return
		}

		if part.FormName() != "file" || strings.TrimSpace(part.FileName()) == "" {
			_ = part.Close()
			continue
		}

		media, uploadErr := h.service.Upload(r.Context(), identity, part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if uploadErr != nil {
			writeError(w, uploadErr)
			return
		}

		writeSuccess(w, http.StatusCreated, "File uploaded successfully", media, nil)
		return
	}

	writeError(w, apierror.New("BAD_REQUEST", "multipart field 'file' is required", "file", http.StatusBadRequest))
}

func (h *MediaHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	items, err := h.service.ListAccessible(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Files fetched successfully", model.MediaList{Items: items}, nil)
}

func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	media, err := h.service.Get(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "File fetched successfully", media, nil)
}

func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	file, media, err := h.service.Open(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	disposition := "attachment"
	if strings.EqualFold(r.URL.Query().Get("inline"), "true") {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", media.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": media.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, media.FileName, media.CreatedAt, file)
}

func (h *MediaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	size := parseIntOrDefault(r.URL.Query().Get("size"), service.DefaultThumbnailSize)
	size = min(max(size, service.MinThumbnailSize), service.MaxThumbnailSize)

	file, info, err := h.service.Thumbnail(r.Context(), identity, chi.URLParam(r, "id"), size)
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedMediaType) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess[any](w, http.StatusOK, "File deleted successfully", nil, nil)
}

func (h *MediaHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	permissions, err := h.service.GetPermissions(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "File permissions fetched successfully", permissions, nil)
}

func (h *MediaHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	var payload model.SetPermissionsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.AllowedUserIDs == nil {
		writeError(w, apierror.BadRequest("allowedUserIds is required", "allowedUserIds"))
		return
	}

	permissions, err := h.service.SetPermissions(r.Context(), identity, chi.URLParam(r, "id"), payload.AllowedUserIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "File permissions updated successfully", permissions, nil)
}
