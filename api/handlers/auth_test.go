package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"messenger/api/middleware"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// роутер с настоящей авторизацией по токену
func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/auth/register", Register)
	r.POST("/api/v1/auth/login", Login)
	r.POST("/api/v1/auth/logout", Logout)

	authorized := r.Group("/api/v1/")
	authorized.Use(middleware.AuthMiddleware(AuthSvc))
	authorized.GET("conversations/list", ListConversationsHandler)
	return r
}

func TestAuthRoundtrip(t *testing.T) {
	setupHandlersTest(t)
	r := newAuthRouter()
	nickname := fmt.Sprintf("user_%s", gofakeit.LetterN(12))

	w := doJSON(t, r, "POST", "/api/v1/auth/register",
		map[string]string{"nickname": nickname, "password": "secret123"})
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "POST", "/api/v1/auth/login",
		map[string]string{"nickname": nickname, "password": "secret123"})
	require.Equal(t, 200, w.Code)
	token := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)

	// защищенный эндпоинт с токеном
	req, _ := http.NewRequest("GET", "/api/v1/conversations/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)

	// без токена отказ
	req, _ = http.NewRequest("GET", "/api/v1/conversations/list", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)

	// после logout токен мертв
	req, _ = http.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	req, _ = http.NewRequest("GET", "/api/v1/conversations/list", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, 401, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	setupHandlersTest(t)
	r := newAuthRouter()
	nickname := fmt.Sprintf("user_%s", gofakeit.LetterN(12))

	w := doJSON(t, r, "POST", "/api/v1/auth/register",
		map[string]string{"nickname": nickname, "password": "secret123"})
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "POST", "/api/v1/auth/login",
		map[string]string{"nickname": nickname, "password": "wrong"})
	assert.Equal(t, 401, w.Code)
}
