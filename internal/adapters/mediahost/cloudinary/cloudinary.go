// Package cloudinary re-uploads remote files to Cloudinary.
package cloudinary

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"lipsync/internal/ports"
)

// UploadAPI is the part of the Cloudinary upload API the host uses.
type UploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

type Host struct {
	api    UploadAPI
	folder string
}

// New builds a host from account credentials.
func New(cloudName, apiKey, apiSecret string) (*Host, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return NewWithAPI(&cld.Upload, ""), nil
}

// NewWithAPI wraps an existing upload API. Files land in folder when set.
func NewWithAPI(api UploadAPI, folder string) *Host {
	return &Host{api: api, folder: folder}
}

func (h *Host) Provider() string { return "cloudinary" }

// UploadFromURL lets Cloudinary fetch sourceURL itself and detect the
// resource type.
func (h *Host) UploadFromURL(ctx context.Context, sourceURL string) (ports.HostedMedia, error) {
	params := uploader.UploadParams{ResourceType: "auto"}
	if h.folder != "" {
		params.Folder = h.folder
	}

	res, err := h.api.Upload(ctx, sourceURL, params)
	if err != nil {
		return ports.HostedMedia{}, err
	}
	if res == nil {
		return ports.HostedMedia{}, errors.New("empty upload response")
	}
	if res.Error.Message != "" {
		return ports.HostedMedia{}, errors.New(res.Error.Message)
	}
	if res.SecureURL == "" {
		return ports.HostedMedia{}, errors.New("upload response has no secure_url")
	}

	return ports.HostedMedia{
		URL:          res.SecureURL,
		ResourceType: res.ResourceType,
		Bytes:        int64(res.Bytes),
	}, nil
}
