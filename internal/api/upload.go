package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fsyportal/internal/apperr"
	"fsyportal/internal/cloudinary"
)

// Base64 bodies are a third larger than the image they carry.
const maxUploadBytes = cloudinary.MaxImageBytes*4/3 + 1<<10

// Upload stores a note photo, sent either as a multipart "file" field or as
// JSON {"data": "<data URL>"}, and returns its URL.
func (h *Handler) Upload(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	var (
		result *cloudinary.UploadResult
		err    error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			h.fail(c, apperr.Validation("file", "No file provided"))
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			h.fail(c, apperr.Validation("file", "File could not be read"))
			return
		}
		result, err = h.uploader.UploadBytes(c.Request.Context(), data, header.Filename)
	} else {
		var body struct {
			Data string `json:"data"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil || body.Data == "" {
			h.fail(c, apperr.Validation("data", `provide {"data": "<base64 data URL>"}`))
			return
		}
		result, err = h.uploader.UploadDataURL(c.Request.Context(), body.Data)
	}

	if errors.Is(err, cloudinary.ErrNotImage) {
		h.fail(c, apperr.Validation("file", "Only image files are allowed"))
		return
	}
	if errors.Is(err, cloudinary.ErrTooLarge) {
		h.fail(c, apperr.Validation("file", "Image is too large"))
		return
	}
	if err != nil {
		h.log.Error("image upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       result.SecureURL,
		"public_id": result.PublicID,
		"width":     result.Width,
		"height":    result.Height,
		"bytes":     result.Bytes,
	})
}
