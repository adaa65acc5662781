package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"messenger/db"
	"messenger/models"
	"messenger/services"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupHandlersTest(t *testing.T) {
	t.Helper()
	require.NoError(t, db.ConnectTestDB())

	storage, err := services.NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)
	Init(services.NewLocalChangeFeed(), storage)

	gin.SetMode(gin.TestMode)
}

// newRouterAs собирает роутер с эмуляцией авторизации под конкретным
// пользователем, как в простых интеграционных тестах
func newRouterAs(userID int64) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", userID); c.Next() })

	r.GET("/api/v1/conversations/list", ListConversationsHandler)
	r.POST("/api/v1/conversations/:id/hide", HideConversationHandler)
	r.POST("/api/v1/conversations/:id/restore", RestoreConversationHandler)
	r.POST("/api/v1/conversations/:id/read", MarkReadHandler)
	r.POST("/api/v1/dialog/:user_id/send", SendMessageHandler)
	r.GET("/api/v1/dialog/:user_id/list", ListDialogHandler)
	r.POST("/api/v1/message/:id/edit", EditMessageHandler)
	r.POST("/api/v1/message/:id/delete", DeleteMessageHandler)
	r.POST("/api/v1/media/upload", UploadMediaHandler)
	r.GET("/api/v1/gifs/:shortcode", GetGifHandler)
	return r
}

func createHandlersUser(t *testing.T, permission models.MessagingPermission) *models.User {
	t.Helper()
	user := &models.User{
		Nickname:            fmt.Sprintf("%s_%s", gofakeit.Username(), gofakeit.LetterN(10)),
		Password:            "irrelevant",
		Role:                models.RoleUser,
		MessagingPermission: permission,
	}
	require.NoError(t, db.ORM.Create(user).Error)
	return user
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
