package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipsync/internal/adapters/mediahost/remote"
)

type fakeS3 struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func sourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3 fake audio payload"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadFromURL(t *testing.T) {
	src := sourceServer(t)
	fake := &fakeS3{}

	h := NewWithAPI(fake, Options{
		Bucket:    "media",
		PublicURL: "https://pub.example.r2.dev/",
	}, remote.NewFetcher(src.Client(), t.TempDir()))

	got, err := h.UploadFromURL(context.Background(), src.URL+"/voice.mp3")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fake.key, "lipsync/audio/"), fake.key)
	assert.True(t, strings.HasSuffix(fake.key, ".mp3"), fake.key)
	assert.Equal(t, "audio/mpeg", fake.contentType)
	assert.Equal(t, "ID3 fake audio payload", string(fake.body))
	assert.Equal(t, "https://pub.example.r2.dev/"+fake.key, got.URL)
	assert.Equal(t, "audio", got.ResourceType)
}

func TestUploadFromURLPutFails(t *testing.T) {
	src := sourceServer(t)
	h := NewWithAPI(&fakeS3{err: errors.New("AccessDenied")}, Options{Bucket: "media"},
		remote.NewFetcher(src.Client(), t.TempDir()))

	_, err := h.UploadFromURL(context.Background(), src.URL+"/voice.mp3")
	assert.ErrorContains(t, err, "AccessDenied")
}
