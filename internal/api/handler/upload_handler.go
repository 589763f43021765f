package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

type UploadHandler struct {
	uploader ports.Uploader
}

func NewUploadHandler(uploader ports.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload stores one multipart file ("file") and returns its URL.
//
// @Summary      Upload a file
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image or PDF"
// @Success      201   {object}  uploadResponse
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /v1/uploads [post]
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return &domain.UploadError{Reason: "file field is required", Err: err}
	}

	f, err := fh.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return &domain.UploadError{Reason: "could not read the file", Retryable: true, Err: err}
	}
	defer f.Close()

	// The declared part type is the client's claim; the bytes decide.
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return &domain.UploadError{Reason: "could not read the file", Retryable: true, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return &domain.UploadError{Reason: "could not read the file", Retryable: true, Err: err}
	}
	contentType, _, _ := strings.Cut(detected.String(), ";")

	url, err := h.uploader.Upload(c.Request().Context(), ports.UploadInput{
		Filename:    fh.Filename,
		ContentType: strings.TrimSpace(contentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		result := "failed"
		var uerr *domain.UploadError
		if errors.As(err, &uerr) && !uerr.Retryable {
			result = "rejected"
		}
		metrics.UploadsTotal.WithLabelValues(result).Inc()
		return err
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusCreated, uploadResponse{URL: url})
}
