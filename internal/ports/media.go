package ports

import "context"

// HostedMedia is a file re-uploaded to a media host.
type HostedMedia struct {
	URL          string
	ResourceType string
	Bytes        int64
}

// MediaHost re-uploads a remote file and returns a stable public URL for it.
// Implementations: cloudinary, s3, gdrive, localfs.
type MediaHost interface {
	Provider() string
	UploadFromURL(ctx context.Context, sourceURL string) (HostedMedia, error)
}
