package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret"
	testCookie = "sb-access-token"
	testUserID = "8f14e45f-ceea-4e7a-9b1d-7a2b3c4d5e6f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDownloads struct {
	authorize func(ctx context.Context, req service.DownloadRequest) (*service.DownloadResult, error)
	status    func(ctx context.Context, userID string) (*service.DownloadStatus, error)
}

func (f *fakeDownloads) AuthorizeAndRecordDownload(ctx context.Context, req service.DownloadRequest) (*service.DownloadResult, error) {
	return f.authorize(ctx, req)
}

func (f *fakeDownloads) CheckStatus(ctx context.Context, userID string) (*service.DownloadStatus, error) {
	return f.status(ctx, userID)
}

type fakeUploads struct {
	upload func(ctx context.Context, req service.UploadRequest) (*service.UploadGrant, error)
	remove func(ctx context.Context, req service.DeleteRequest) error
}

func (f *fakeUploads) AuthorizeUpload(ctx context.Context, req service.UploadRequest) (*service.UploadGrant, error) {
	return f.upload(ctx, req)
}

func (f *fakeUploads) AuthorizeDelete(ctx context.Context, req service.DeleteRequest) error {
	return f.remove(ctx, req)
}

type fakeEnrichment struct {
	enrich func(ctx context.Context, req service.EnrichRequest) (*service.EnrichmentResult, error)
}

func (f *fakeEnrichment) Enrich(ctx context.Context, req service.EnrichRequest) (*service.EnrichmentResult, error) {
	return f.enrich(ctx, req)
}

type fakeAssets struct {
	register func(ctx context.Context, req service.RegisterAssetRequest) (*domain.Asset, error)
	get      func(ctx context.Context, id string) (*domain.Asset, error)
}

func (f *fakeAssets) Register(ctx context.Context, req service.RegisterAssetRequest) (*domain.Asset, error) {
	return f.register(ctx, req)
}

func (f *fakeAssets) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return f.get(ctx, id)
}

// newTestRouter wires the full route table around the given services.
// Unset services are replaced with fakes that fail the test when called.
func newTestRouter(t *testing.T, cfg RouteConfig, services Services, limiter *IPRateLimiter) *gin.Engine {
	t.Helper()
	unexpected := func(name string) { t.Errorf("unexpected call to %s", name) }
	if services.Downloads == nil {
		services.Downloads = &fakeDownloads{
			authorize: func(context.Context, service.DownloadRequest) (*service.DownloadResult, error) {
				unexpected("AuthorizeAndRecordDownload")
				return nil, nil
			},
			status: func(context.Context, string) (*service.DownloadStatus, error) {
				unexpected("CheckStatus")
				return nil, nil
			},
		}
	}
	if services.Uploads == nil {
		services.Uploads = &fakeUploads{
			upload: func(context.Context, service.UploadRequest) (*service.UploadGrant, error) {
				unexpected("AuthorizeUpload")
				return nil, nil
			},
			remove: func(context.Context, service.DeleteRequest) error {
				unexpected("AuthorizeDelete")
				return nil
			},
		}
	}
	if services.Enrichment == nil {
		services.Enrichment = &fakeEnrichment{enrich: func(context.Context, service.EnrichRequest) (*service.EnrichmentResult, error) {
			unexpected("Enrich")
			return nil, nil
		}}
	}
	if services.Assets == nil {
		services.Assets = &fakeAssets{
			register: func(context.Context, service.RegisterAssetRequest) (*domain.Asset, error) {
				unexpected("Register")
				return nil, nil
			},
			get: func(context.Context, string) (*domain.Asset, error) {
				unexpected("GetByID")
				return nil, nil
			},
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	if cfg.CookieName == "" {
		cfg.CookieName = testCookie
	}

	router := gin.New()
	router.Use(Recovery(zap.NewNop()))
	SetupRoutes(router, cfg, services, limiter, zap.NewNop())
	return router
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := supabaseClaims{
		Email: "creator@viralpik.test",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validToken(t *testing.T) string {
	return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), testUserID, time.Now().Add(time.Hour))
}

func doJSON(router http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
