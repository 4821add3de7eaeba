package services

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
	"github.com/dmitrijs2005/foodcrm/internal/netx"
)

// AttachmentAPI issues presigned object-storage URLs.
type AttachmentAPI interface {
	UploadURL(ctx context.Context, contentType string) (common.PresignedURL, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// InteractionUpdater is satisfied by the interactions store.
type InteractionUpdater interface {
	Update(ctx context.Context, id string, patch crm.Patch) (crm.Interaction, error)
}

// uploadFunc is a test seam.
var uploadFunc = netx.UploadToPresignedURL

// AttachmentService uploads files to object storage and links them to
// interactions.
type AttachmentService struct {
	api          AttachmentAPI
	interactions InteractionUpdater
	hc           *http.Client
	log          logging.Logger
}

func NewAttachmentService(api AttachmentAPI, interactions InteractionUpdater, hc *http.Client, log logging.Logger) *AttachmentService {
	if log == nil {
		log = logging.Nop()
	}
	return &AttachmentService{api: api, interactions: interactions, hc: hc, log: log.With("module", "attachments")}
}

// Attach uploads the file at path and records its storage key on the
// interaction. The interaction update goes through the store, so it is
// applied optimistically and rolled back if the server rejects it.
func (s *AttachmentService) Attach(ctx context.Context, interactionID, path string) (crm.Interaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return crm.Interaction{}, fmt.Errorf("read %s: %w", path, err)
	}
	contentType := detectContentType(path, data)

	target, err := s.api.UploadURL(ctx, contentType)
	if err != nil {
		return crm.Interaction{}, fmt.Errorf("request upload url: %w", err)
	}
	if err := uploadFunc(ctx, s.hc, target.URL, data, contentType); err != nil {
		return crm.Interaction{}, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	s.log.Info(ctx, "attachment uploaded", "key", target.Key, "bytes", len(data), "content_type", contentType)

	it, err := s.interactions.Update(ctx, interactionID, crm.Patch{"attachment_key": target.Key})
	if err != nil {
		return crm.Interaction{}, fmt.Errorf("link attachment to %s: %w", interactionID, err)
	}
	return it, nil
}

// Link returns a time-limited download URL for key.
func (s *AttachmentService) Link(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("no attachment: %w", common.ErrorNotFound)
	}
	return s.api.DownloadURL(ctx, key)
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
