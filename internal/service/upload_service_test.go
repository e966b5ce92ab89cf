package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUploadFixture(t *testing.T) (*uploadService, *fakeStorage, *repository.Repositories) {
	t.Helper()
	repos := memory.NewStore().Repositories()
	st := &fakeStorage{}
	svc := NewUploadService(repos.Assets, st, zap.NewNop()).(*uploadService)
	svc.now = func() time.Time { return time.UnixMilli(1760520600000) }
	svc.newSuffix = func() string { return "abc123" }
	return svc, st, repos
}

func TestAuthorizeUpload(t *testing.T) {
	svc, _, _ := newUploadFixture(t)

	grant, err := svc.AuthorizeUpload(context.Background(), UploadRequest{
		UserID: userA, Filename: "Neon Frame.PNG", ContentType: "image/png", FileSize: 2048,
	})
	require.NoError(t, err)

	wantKey := "assets/" + userA + "/1760520600000-abc123.png"
	wantThumb := "thumbnails/" + userA + "/1760520600000-abc123-thumb.jpg"
	assert.Equal(t, wantKey, grant.AssetKey)
	assert.Equal(t, wantThumb, grant.ThumbnailKey)
	assert.Equal(t, "https://cdn.test/"+wantKey, grant.AssetURL)
	assert.Equal(t, "https://cdn.test/"+wantThumb, grant.ThumbnailURL)
	assert.Equal(t, "https://signed.test/put/"+wantKey+"?ct=image/png&exp=1h0m0s", grant.UploadURL)
}

func TestAuthorizeUpload_Validation(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  UploadRequest
		want error
	}{
		{"no session", UploadRequest{Filename: "a.png", ContentType: "image/png", FileSize: 1}, ErrUnauthenticated},
		{"blank filename", UploadRequest{UserID: userA, Filename: "  ", ContentType: "image/png", FileSize: 1}, ErrInvalidRequest},
		{"missing size", UploadRequest{UserID: userA, Filename: "a.png", ContentType: "image/png"}, ErrInvalidRequest},
		{"one byte over", UploadRequest{UserID: userA, Filename: "a.png", ContentType: "image/png", FileSize: domain.MaxUploadSize + 1}, ErrPayloadTooLarge},
		{"executable", UploadRequest{UserID: userA, Filename: "a.exe", ContentType: "application/x-msdownload", FileSize: 1}, ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AuthorizeUpload(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthorizeUpload_ExactlyMaxSizeAccepted(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	_, err := svc.AuthorizeUpload(context.Background(), UploadRequest{
		UserID: userA, Filename: "big.mp4", ContentType: "video/mp4", FileSize: domain.MaxUploadSize,
	})
	assert.NoError(t, err)
}

func TestAuthorizeUpload_EmptyContentTypeFallsBack(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	grant, err := svc.AuthorizeUpload(context.Background(), UploadRequest{
		UserID: userA, Filename: "pack.psd", FileSize: 10,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(grant.UploadURL, "ct="+domain.FallbackContentType))
	assert.True(t, strings.HasSuffix(grant.AssetKey, ".psd"))
}

func TestAuthorizeUpload_ContentTypeParametersIgnored(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	_, err := svc.AuthorizeUpload(context.Background(), UploadRequest{
		UserID: userA, Filename: "notes.txt", ContentType: "Text/Plain; charset=utf-8", FileSize: 10,
	})
	assert.NoError(t, err)
}

func TestAuthorizeUpload_PresignFailure(t *testing.T) {
	svc, st, _ := newUploadFixture(t)
	st.presignErr = errBoom
	_, err := svc.AuthorizeUpload(context.Background(), UploadRequest{
		UserID: userA, Filename: "a.png", ContentType: "image/png", FileSize: 1,
	})
	assert.ErrorIs(t, err, ErrUploadURLError)
}

func TestRandomSuffix(t *testing.T) {
	s := randomSuffix()
	assert.Len(t, s, keySuffixLength)
	assert.NotContains(t, s, "-")
}

func TestAuthorizeDelete(t *testing.T) {
	svc, st, repos := newUploadFixture(t)
	key := "assets/" + userA + "/1-abc123.png"
	thumb := domain.ThumbnailKey(key)
	seedAsset(t, repos, domain.Asset{ID: assetID, CreatorID: userA, FileKey: key})

	err := svc.AuthorizeDelete(context.Background(), DeleteRequest{UserID: userA, AssetKey: key, ThumbnailKey: thumb})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{key, thumb}, st.Deleted())
}

func TestAuthorizeDelete_Rejections(t *testing.T) {
	svc, st, repos := newUploadFixture(t)
	ctx := context.Background()
	key := "assets/" + userA + "/1-abc123.png"
	seedAsset(t, repos, domain.Asset{ID: assetID, CreatorID: userA, FileKey: key})

	assert.ErrorIs(t, svc.AuthorizeDelete(ctx, DeleteRequest{AssetKey: key}), ErrUnauthenticated)
	assert.ErrorIs(t, svc.AuthorizeDelete(ctx, DeleteRequest{UserID: userA}), ErrInvalidRequest)
	assert.ErrorIs(t, svc.AuthorizeDelete(ctx, DeleteRequest{UserID: userB, AssetKey: key}), ErrForbidden)
	assert.ErrorIs(t, svc.AuthorizeDelete(ctx, DeleteRequest{UserID: userA, AssetKey: "assets/" + userA + "/missing.png"}), ErrForbidden)
	assert.ErrorIs(t, svc.AuthorizeDelete(ctx, DeleteRequest{UserID: userA, AssetKey: key, ThumbnailKey: "thumbnails/" + userB + "/x-thumb.jpg"}), ErrForbidden)
	assert.Empty(t, st.Deleted())
}

func TestAuthorizeDelete_ThumbnailFailureIgnored(t *testing.T) {
	svc, st, repos := newUploadFixture(t)
	key := "assets/" + userA + "/1-abc123.png"
	thumb := domain.ThumbnailKey(key)
	seedAsset(t, repos, domain.Asset{ID: assetID, CreatorID: userA, FileKey: key})
	st.deleteErrOn = map[string]error{thumb: errBoom}

	require.NoError(t, svc.AuthorizeDelete(context.Background(), DeleteRequest{UserID: userA, AssetKey: key, ThumbnailKey: thumb}))
	assert.Equal(t, []string{key}, st.Deleted())
}

func TestAuthorizeDelete_AssetFailureSurfaces(t *testing.T) {
	svc, st, repos := newUploadFixture(t)
	key := "assets/" + userA + "/1-abc123.png"
	seedAsset(t, repos, domain.Asset{ID: assetID, CreatorID: userA, FileKey: key})
	st.deleteErrOn = map[string]error{key: errBoom}

	err := svc.AuthorizeDelete(context.Background(), DeleteRequest{UserID: userA, AssetKey: key})
	assert.ErrorIs(t, err, errBoom)
}
