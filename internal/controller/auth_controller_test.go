package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"steel-copilot-be/internal/dto"
	"steel-copilot-be/internal/pkg/logger"
	"steel-copilot-be/internal/pkg/serverutils"
	"steel-copilot-be/internal/service"
	"steel-copilot-be/internal/session"
	"steel-copilot-be/internal/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	authSvc := service.NewAuthService(
		service.NewUserDirectory(),
		storage.NewMemoryStore(),
		session.NewActiveTable(),
		session.NewBroadcaster(pubSub, logger.NewNopLogger()),
		nil,
		logger.NewNopLogger(),
		testSecret,
		7*24*time.Hour,
		time.Minute,
	)

	app := fiber.New()
	jwtMw := serverutils.JwtMiddleware(testSecret, authSvc.IsSessionActive)
	api := app.Group("/api")
	NewAuthController(authSvc).RegisterRoutes(api, jwtMw)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/login", dto.LoginRequest{
		Email:    "user@example.com",
		Password: "user123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["session_id"])
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/login", dto.LoginRequest{
		Email:    "user@example.com",
		Password: "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	assert.Equal(t, "invalid credentials", body["message"])
}

func TestLoginEndpointValidatesBody(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMeRequiresToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeWithFreshToken(t *testing.T) {
	app := newTestApp(t)

	loginResp := postJSON(t, app, "/api/auth/login", dto.LoginRequest{
		Email:    "user@example.com",
		Password: "user123",
	})
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	data := decodeEnvelope(t, loginResp)["data"].(map[string]interface{})
	token := data["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEvictedTokenIsRejected(t *testing.T) {
	app := newTestApp(t)

	first := postJSON(t, app, "/api/auth/login", dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	firstToken := decodeEnvelope(t, first)["data"].(map[string]interface{})["token"].(string)

	// Second login from elsewhere evicts the first session.
	second := postJSON(t, app, "/api/auth/login", dto.LoginRequest{Email: "user@example.com", Password: "user123"})
	require.Equal(t, http.StatusOK, second.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+firstToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
