package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/candidate-intake-api/internal/application/registration"
	"github.com/candidate-intake-api/internal/domain"
	"github.com/candidate-intake-api/internal/pkg/id"
	"github.com/candidate-intake-api/internal/pkg/validate"
)

const maxPhotoSize = 10 << 20 // 10 MiB

// photoUploader is the slice of the object store the handler needs.
type photoUploader interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// RegistrationHandler handles the public OTP and registration endpoints.
type RegistrationHandler struct {
	svc    registration.Service
	photos photoUploader
}

func NewRegistrationHandler(svc registration.Service, photos photoUploader) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, photos: photos}
}

func (h *RegistrationHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	expiresAt, err := h.svc.RequestOTP(r.Context(), body.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Message:   "verification code sent",
		ExpiresAt: &expiresAt,
	})
}

func (h *RegistrationHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6,numeric"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.VerifyOTP(r.Context(), body.Email, body.OTP); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "email verified"})
}

// Complete accepts the multipart registration payload. The optional photo
// is uploaded before the service runs; from then on the service owns the
// object's fate and discards it on every failure path.
func (h *RegistrationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	req := domain.RegistrationRequest{
		Name:       r.FormValue("name"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		Course:     r.FormValue("course"),
		College:    r.FormValue("college"),
		University: r.FormValue("university"),
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		key := fmt.Sprintf("photos/%s%s", id.New(), safeExt(header.Filename))
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if _, err := h.photos.Upload(r.Context(), key, file, contentType); err != nil {
			writeError(w, http.StatusInternalServerError, "could not store photo")
			return
		}
		req.PhotoKey = key
	}

	c, err := h.svc.CompleteRegistration(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Message: "registration complete",
		Data:    c,
	})
}

// safeExt keeps only a short, alphanumeric file extension.
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if ext == "" || len(ext) > 5 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
