package ginserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "shamsa/internal/app/services/auth"
	"shamsa/internal/app/services/messaging"
	"shamsa/internal/domain/feed"
	"shamsa/internal/domain/games"
	"shamsa/internal/domain/shop"
	"shamsa/internal/domain/user"
	"shamsa/internal/infra/config"
	"shamsa/internal/infra/obs"
	"shamsa/internal/infra/security"
	"shamsa/internal/infra/storage/memory"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	posts := memory.NewPostRepository()
	chatStore := memory.NewChatStore()

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
	manager := &messaging.Manager{
		Store:      chatStore,
		Identities: user.IdentityDirectory{Users: users},
	}
	t.Cleanup(manager.Close)

	metrics := obs.NewMetrics()
	authMW := AuthMiddleware{Service: authService}
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth:           AuthHandler{Service: authService, Sessions: manager},
		User:           UserHandler{Users: users},
		Feed:           FeedHandler{Service: &feed.Service{Posts: posts, Users: users}, Users: users},
		Chat:           ChatHandler{Sessions: manager, Metrics: metrics},
		Shop:           ShopHandler{Service: &shop.Service{Users: users}, Users: users},
		Games:          GamesHandler{Service: &games.Service{Users: users}},
		AuthMiddleware: authMW.Handle,
	})
	return server.Handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, handler http.Handler, email, name string) (id, token string) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":        email,
		"display_name": name,
		"password":     "supersecret",
		"age":          12,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func TestAuthFlow(t *testing.T) {
	handler := newTestServer(t)

	_, token := registerUser(t, handler, "flow@example.com", "Flow")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flow@example.com")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDirectMessageFlow(t *testing.T) {
	handler := newTestServer(t)

	bobID, _ := registerUser(t, handler, "bob@example.com", "Bob")
	_, aliceToken := registerUser(t, handler, "alice@example.com", "Alice")

	// Open a conversation with Bob and send a text message.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/chats/direct", aliceToken, map[string]any{
		"user_id": bobID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	require.NotEmpty(t, conv.ID)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+conv.ID+"/messages", aliceToken, map[string]any{
		"type": "text",
		"body": "hi bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sent struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/chats/"+conv.ID+"/messages", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hi bob")

	// Reply context: arm, send, observe the embedded snapshot.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+conv.ID+"/reply", aliceToken, map[string]any{
		"message_id": sent.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+conv.ID+"/messages", aliceToken, map[string]any{
		"type": "text",
		"body": "replying to myself",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reply_to"`)
	assert.Contains(t, rec.Body.String(), sent.ID)

	// Empty body is rejected.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+conv.ID+"/messages", aliceToken, map[string]any{
		"type": "text",
		"body": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The conversation list shows the latest preview.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/chats", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "replying to myself")
}

func TestChatEndpointsRequireAuth(t *testing.T) {
	handler := newTestServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/chats"},
		{http.MethodPost, "/api/v1/chats/direct"},
		{http.MethodGet, "/api/v1/posts"},
		{http.MethodGet, "/api/v1/shop/emojis"},
	} {
		rec := doJSON(t, handler, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, fmt.Sprintf("%s %s", route.method, route.path))
	}
}

func TestFeedFlow(t *testing.T) {
	handler := newTestServer(t)
	_, token := registerUser(t, handler, "poster@example.com", "Poster")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/posts", token, map[string]any{
		"content": "first post",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/posts/"+post.ID+"/like", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"liked":true`)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/posts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "first post")
	assert.Contains(t, rec.Body.String(), `"liked_by_me":true`)
}

func TestShopPurchaseOverHTTP(t *testing.T) {
	handler := newTestServer(t)
	_, token := registerUser(t, handler, "shopper@example.com", "Shopper")

	// A fresh account has no dragons.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/shop/purchase", token, map[string]any{
		"emoji_id": "clap",
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/shop/emojis", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dragons":0`)
}
