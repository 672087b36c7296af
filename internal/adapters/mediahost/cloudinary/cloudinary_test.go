package cloudinary

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadAPI struct {
	gotFile   interface{}
	gotParams uploader.UploadParams
	res       *uploader.UploadResult
	err       error
}

func (f *fakeUploadAPI) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.gotFile = file
	f.gotParams = params
	return f.res, f.err
}

func TestUploadFromURL(t *testing.T) {
	fake := &fakeUploadAPI{res: &uploader.UploadResult{
		SecureURL:    "https://res.cloudinary.com/demo/video/upload/v1/a.mp4",
		ResourceType: "video",
		Bytes:        2048,
	}}

	got, err := NewWithAPI(fake, "lipsync").UploadFromURL(context.Background(), "https://ucarecdn.com/uuid/")
	require.NoError(t, err)

	assert.Equal(t, "https://ucarecdn.com/uuid/", fake.gotFile)
	assert.Equal(t, "auto", fake.gotParams.ResourceType)
	assert.Equal(t, "lipsync", fake.gotParams.Folder)
	assert.Equal(t, "https://res.cloudinary.com/demo/video/upload/v1/a.mp4", got.URL)
	assert.Equal(t, "video", got.ResourceType)
	assert.Equal(t, int64(2048), got.Bytes)
}

func TestUploadFromURLErrors(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeUploadAPI
		wantErr string
	}{
		{
			name:    "transport error",
			fake:    &fakeUploadAPI{err: errors.New("dial tcp: timeout")},
			wantErr: "dial tcp: timeout",
		},
		{
			name:    "api error",
			fake:    &fakeUploadAPI{res: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid api_key"}}},
			wantErr: "Invalid api_key",
		},
		{
			name:    "missing url",
			fake:    &fakeUploadAPI{res: &uploader.UploadResult{}},
			wantErr: "no secure_url",
		},
		{
			name:    "nil result",
			fake:    &fakeUploadAPI{},
			wantErr: "empty upload response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithAPI(tt.fake, "").UploadFromURL(context.Background(), "https://src")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProvider(t *testing.T) {
	assert.Equal(t, "cloudinary", NewWithAPI(&fakeUploadAPI{}, "").Provider())
}
