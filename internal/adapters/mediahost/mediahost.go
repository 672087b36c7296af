// Package mediahost selects the media host backend.
package mediahost

import (
	"context"
	"fmt"
	"net/http"

	"lipsync/internal/adapters/mediahost/cloudinary"
	"lipsync/internal/adapters/mediahost/gdrive"
	"lipsync/internal/adapters/mediahost/localfs"
	"lipsync/internal/adapters/mediahost/remote"
	"lipsync/internal/adapters/mediahost/s3"
	"lipsync/internal/config"
	"lipsync/internal/ports"
)

// New builds the host named by cfg.MediaHost. The localfs host is also
// returned as an http.Handler so the API can serve its files.
func New(ctx context.Context, cfg *config.Config) (ports.MediaHost, http.Handler, error) {
	fetcher := remote.NewFetcher(&http.Client{}, "")

	switch cfg.MediaHost {
	case config.MediaHostCloudinary:
		h, err := cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, nil, err
		}
		return h, nil, nil

	case config.MediaHostS3:
		h, err := s3.New(ctx, s3.Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicURL:       cfg.S3.PublicURL,
		}, fetcher)
		if err != nil {
			return nil, nil, err
		}
		return h, nil, nil

	case config.MediaHostGDrive:
		h, err := gdrive.New(ctx,
			cfg.GDrive.ClientID,
			cfg.GDrive.ClientSecret,
			cfg.GDrive.RefreshToken,
			cfg.GDrive.FolderID,
			fetcher,
		)
		if err != nil {
			return nil, nil, err
		}
		return h, nil, nil

	case config.MediaHostLocalFS:
		h := localfs.New(cfg.LocalFS.Root, cfg.LocalFS.PublicBaseURL, fetcher)
		return h, h.Handler(), nil

	default:
		return nil, nil, fmt.Errorf("unknown media host: %s", cfg.MediaHost)
	}
}

// DisplayName is the provider name shown to clients in upload errors.
func DisplayName(provider string) string {
	switch provider {
	case "cloudinary":
		return "Cloudinary"
	case "s3":
		return "S3"
	case "gdrive":
		return "Google Drive"
	case "localfs":
		return "local storage"
	default:
		return provider
	}
}
