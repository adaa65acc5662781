package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"messenger/db"
	"messenger/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadFile(t *testing.T, r *gin.Engine, filename, mimeType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest("POST", "/api/v1/media/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadMediaAndSend(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	w := uploadFile(t, asA, "cat.png", "image/png", []byte("png-bytes"))
	require.Equal(t, 200, w.Code)
	url := decodeBody(t, w)["url"].(string)
	require.NotEmpty(t, url)

	// загрузка до отправки: готовый URL уходит в сообщение
	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", b.ID),
		map[string]string{"text": "look", "image_url": url})
	require.Equal(t, 200, w.Code)

	wList := doJSON(t, asA, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", b.ID), nil)
	require.Equal(t, 200, wList.Code)
	messages := decodeBody(t, wList)["messages"].([]interface{})
	require.Len(t, messages, 1)
	attachment := messages[0].(map[string]interface{})["attachment"].(map[string]interface{})
	assert.Equal(t, "image", attachment["kind"])
	assert.Equal(t, url, attachment["url"])
}

func TestUploadUnsupportedMimeRejected(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	w := uploadFile(t, asA, "evil.exe", "application/octet-stream", []byte{0x4d, 0x5a})
	assert.Equal(t, 400, w.Code)
}

func TestGetGifByShortcode(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	gif := &models.GifEntry{Shortcode: "lookup-me", PreviewURL: "/gifs/p.gif", OriginalURL: "/gifs/o.gif"}
	require.NoError(t, db.ORM.Create(gif).Error)

	w := doJSON(t, asA, "GET", "/api/v1/gifs/lookup-me", nil)
	require.Equal(t, 200, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "lookup-me", resp["shortcode"])
	assert.Equal(t, "/gifs/p.gif", resp["preview_url"])

	w = doJSON(t, asA, "GET", "/api/v1/gifs/missing", nil)
	assert.Equal(t, 404, w.Code)
}
