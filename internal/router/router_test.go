package router

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-media-share/internal/config"
	"go-media-share/internal/event"
	"go-media-share/internal/handler"
	"go-media-share/internal/middleware"
	"go-media-share/internal/model"
	"go-media-share/internal/security"
	"go-media-share/internal/service"
	"go-media-share/internal/storage"
	"go-media-share/internal/testutil"
)

const password = "Str0ng!Pass"

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Code string `json:"code"`
	} `json:"error"`
	Timestamp string `json:"timestamp"`
}

type testServer struct {
	*httptest.Server
	media *testutil.MediaStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := testutil.NewUserStore()
	mediaStore := testutil.NewMediaStore()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	tokens, err := security.NewTokenManager(security.TokenConfig{
		AccessSecret:  "router-access",
		RefreshSecret: "router-refresh",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	bus := event.NewBus()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	authService := service.NewAuthService(users, hasher, tokens, testutil.NewRevocationStore(), bus)
	mediaService := service.NewMediaService(mediaStore, users, blobs, service.MediaConfig{
		AllowedMIMETypes: []string{"image/jpeg"},
		MaxUploadSize:    64 << 10,
		ThumbnailRoot:    t.TempDir(),
	}, bus)

	cfg := &config.Config{
		CORSOrigins:         []string{"*"},
		RateLimitRPM:        -1,
		AuthRateLimitRPM:    -1,
		RequestTimeout:      10 * time.Second,
		TransferTimeout:     time.Minute,
		TransferIdleTimeout: 10 * time.Second,
	}

	registry := prometheus.NewRegistry()
	handlerSet := Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(service.NewUserService(users, hasher, bus)),
		Media:  handler.NewMediaHandler(mediaService),
		Audit:  handler.NewAuditHandler(service.NewAuditService(testutil.NewAuditStore())),
		Health: handler.NewHealthHandler(nil),
	}

	server := httptest.NewServer(New(cfg, middleware.NewAuthMiddleware(authService), handlerSet, middleware.NewMetrics(registry), registry))
	t.Cleanup(server.Close)
	return &testServer{Server: server, media: mediaStore}
}

func (s *testServer) do(t *testing.T, method string, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &parsed), string(raw))
	} else {
		parsed.Data = raw
	}
	return resp, parsed
}

type session struct {
	id      string
	access  string
	refresh string
}

func (s *testServer) signUp(t *testing.T, email string) session {
	t.Helper()

	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var user model.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))

	resp, env = s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokens model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	return session{id: user.ID, access: tokens.AccessToken, refresh: tokens.RefreshToken}
}

func (s *testServer) upload(t *testing.T, token string, fileName string, content []byte) (*http.Response, envelope) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/media/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return s.send(t, req)
}

func jpegFixture(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48)), nil))
	return buf.Bytes()
}

func TestSharingScenario(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	alice := s.signUp(t, "alice@example.com")
	bob := s.signUp(t, "bob@example.com")
	content := jpegFixture(t)

	resp, env := s.upload(t, alice.access, "cat.jpg", content)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "File uploaded successfully", env.Message)
	var media model.Media
	require.NoError(t, json.Unmarshal(env.Data, &media))
	assert.Equal(t, "image/jpeg", media.MimeType)

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID, nil, bob.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	resp, _ = s.do(t, http.MethodPut, "/api/v1/media/"+media.ID+"/permissions", model.SetPermissionsRequest{AllowedUserIDs: []string{bob.id}}, bob.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = s.do(t, http.MethodPost, "/api/v1/media/"+media.ID+"/permissions", model.SetPermissionsRequest{AllowedUserIDs: []string{bob.id, alice.id}}, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.MediaPermissions
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, []string{bob.id}, updated.AllowedUserIDs)
	assert.Equal(t, "alice@example.com", updated.Owner.Email)
	require.Len(t, updated.AllowedUsers, 1)
	assert.Equal(t, "bob@example.com", updated.AllowedUsers[0].Email)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID, nil, bob.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID+"/download", nil, bob.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, []byte(env.Data))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cat.jpg")

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID+"/thumbnail?size=32", nil, bob.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	thumb, _, err := image.DecodeConfig(bytes.NewReader(env.Data))
	require.NoError(t, err)
	assert.Equal(t, 32, thumb.Width)

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/my", nil, bob.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list model.MediaList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Items, 1)

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID+"/permissions", nil, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view model.MediaPermissions
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "alice@example.com", view.Owner.Email)
	require.Len(t, view.AllowedUsers, 1)
	assert.Equal(t, "bob@example.com", view.AllowedUsers[0].Email)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/media/"+media.ID, nil, bob.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/media/"+media.ID, nil, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, s.media.Len())

	resp, env = s.do(t, http.MethodGet, "/api/v1/media/"+media.ID, nil, bob.access)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestUploadValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	alice := s.signUp(t, "alice@example.com")

	resp, env := s.upload(t, alice.access, "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", env.Error.Code)

	resp, _ = s.upload(t, alice.access, "big.jpg", append(jpegFixture(t), make([]byte, 200<<10)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	assert.Equal(t, 0, s.media.Len())
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	carol := s.signUp(t, "carol@example.com")

	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{Email: "CAROL@example.com", Password: password}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: "carol@example.com", Password: "Wr0ng!Pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: "nobody@example.com", Password: password}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = s.do(t, http.MethodGet, "/api/v1/users/me", nil, carol.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me model.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, carol.id, me.ID)
	assert.NotContains(t, string(env.Data), "password")

	// a refresh token is not an access token
	resp, _ = s.do(t, http.MethodGet, "/api/v1/users/me", nil, carol.refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: carol.access}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Wrong token type", env.Message)

	resp, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: carol.refresh}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &rotated))

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: carol.refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", model.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", model.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	dave := s.signUp(t, "dave@example.com")

	resp, _ := s.do(t, http.MethodGet, "/api/v1/users", nil, dave.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/v1/audit", nil, dave.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", model.RegisterRequest{Email: "root@example.com", Password: password, Role: "admin"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_, env := s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Email: "root@example.com", Password: password}, "")
	var tokens model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	resp, env = s.do(t, http.MethodGet, "/api/v1/users", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list model.UserList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Users, 2)

	role := "admin"
	resp, env = s.do(t, http.MethodPatch, "/api/v1/users/"+dave.id, model.UpdateUserRequest{Role: &role}, tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var promoted model.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &promoted))
	assert.Equal(t, model.RoleAdmin, promoted.Role)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, env.Timestamp)

	resp, env = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "media_share_http_requests_total")
}
