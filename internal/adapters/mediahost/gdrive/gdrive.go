// Package gdrive re-uploads remote files to Google Drive and shares them
// publicly by link.
package gdrive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"lipsync/internal/adapters/mediahost/remote"
	"lipsync/internal/ports"
)

// Host uploads into folderID when set, otherwise into the Drive root.
type Host struct {
	srv      *drive.Service
	fetcher  *remote.Fetcher
	folderID string
}

// New authenticates with a stored refresh token (see cmd/gdrive-auth).
func New(ctx context.Context, clientID, clientSecret, refreshToken, folderID string, fetcher *remote.Fetcher) (*Host, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	httpClient := conf.Client(context.WithoutCancel(ctx), &oauth2.Token{RefreshToken: refreshToken})

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return NewWithService(srv, folderID, fetcher), nil
}

func NewWithService(srv *drive.Service, folderID string, fetcher *remote.Fetcher) *Host {
	return &Host{srv: srv, fetcher: fetcher, folderID: folderID}
}

func (h *Host) Provider() string { return "gdrive" }

func (h *Host) UploadFromURL(ctx context.Context, sourceURL string) (ports.HostedMedia, error) {
	f, err := h.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return ports.HostedMedia{}, err
	}
	defer f.Close()

	file := &drive.File{
		Name:     uuid.NewString() + f.Extension,
		MimeType: f.ContentType,
	}
	if h.folderID != "" {
		file.Parents = []string{h.folderID}
	}

	created, err := h.srv.Files.Create(file).
		Media(f, googleapi.ContentType(f.ContentType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return ports.HostedMedia{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	// The inference provider fetches the file anonymously.
	_, err = h.srv.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return ports.HostedMedia{}, fmt.Errorf("gdrive share failed: %w", err)
	}

	return ports.HostedMedia{
		URL:          DownloadURL(created.Id),
		ResourceType: f.ResourceType(),
		Bytes:        f.Size,
	}, nil
}

// DownloadURL is the direct-download link of a publicly shared file.
func DownloadURL(fileID string) string {
	return "https://drive.google.com/uc?export=download&id=" + fileID
}
