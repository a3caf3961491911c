package handlers

import (
	"errors"
	"log/slog"

	"github.com/anjiri1684/career_mentor/uploads"
	"github.com/gofiber/fiber/v2"
)

type UploadSigner interface {
	SignUpload(folder string) (*uploads.UploadSignature, error)
}

type UploadHandler struct {
	signer UploadSigner
	log    *slog.Logger
}

func NewUploadHandler(signer UploadSigner, log *slog.Logger) *UploadHandler {
	return &UploadHandler{signer: signer, log: log}
}

// GenerateUploadSignature signs a direct browser upload into one of the
// client-writable folders, given as ?folder=. Resumes are the default.
func (h *UploadHandler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.signer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Uploads are not configured"})
	}

	sig, err := h.signer.SignUpload(c.Query("folder", uploads.FolderResumes))
	if err != nil {
		if errors.Is(err, uploads.ErrUnknownFolder) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return respondError(c, h.log, err)
	}
	return c.JSON(sig)
}
