package handlers

import (
	"fmt"
	"testing"

	"messenger/db"
	"messenger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndListDialog(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)
	asB := newRouterAs(b.ID)

	w := doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", b.ID),
		map[string]string{"text": "Hello!"})
	require.Equal(t, 200, w.Code)
	resp := decodeBody(t, w)
	assert.NotZero(t, resp["message_id"])

	// обе стороны видят одно и то же сообщение
	wA := doJSON(t, asA, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", b.ID), nil)
	require.Equal(t, 200, wA.Code)
	respA := decodeBody(t, wA)
	assert.Len(t, respA["messages"], 1)

	wB := doJSON(t, asB, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", a.ID), nil)
	require.Equal(t, 200, wB.Code)
	respB := decodeBody(t, wB)
	assert.Len(t, respB["messages"], 1)
	assert.Equal(t, respA["conversation_id"], respB["conversation_id"])
}

func TestSendBlockedByPrivacy(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	closed := createHandlersUser(t, models.PermissionNobody)
	asA := newRouterAs(a.ID)

	w := doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", closed.ID),
		map[string]string{"text": "let me in"})
	assert.Equal(t, 403, w.Code)
}

func TestListDialogWithoutHistory(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	// просмотр несуществующего диалога его не создает
	w := doJSON(t, asA, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", b.ID), nil)
	require.Equal(t, 200, w.Code)
	resp := decodeBody(t, w)
	assert.Empty(t, resp["messages"])
	assert.Nil(t, resp["conversation_id"])
}

func TestEditAndDeleteMessage(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)
	asB := newRouterAs(b.ID)

	w := doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", b.ID),
		map[string]string{"text": "typo here"})
	require.Equal(t, 200, w.Code)
	messageID := int64(decodeBody(t, w)["message_id"].(float64))

	// чужое сообщение правке не подлежит
	w = doJSON(t, asB, "POST", fmt.Sprintf("/api/v1/message/%d/edit", messageID),
		map[string]string{"text": "hijack"})
	assert.Equal(t, 403, w.Code)

	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/message/%d/edit", messageID),
		map[string]string{"text": "fixed"})
	require.Equal(t, 200, w.Code)

	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/message/%d/delete", messageID),
		map[string]bool{"for_everyone": true})
	require.Equal(t, 200, w.Code)

	wB := doJSON(t, asB, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", a.ID), nil)
	require.Equal(t, 200, wB.Code)
	messages := decodeBody(t, wB)["messages"].([]interface{})
	require.Len(t, messages, 1)
	placeholder := messages[0].(map[string]interface{})
	assert.Equal(t, true, placeholder["deleted"])
	assert.Empty(t, placeholder["content"])
}

func TestHideAndRestoreConversation(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	w := doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", b.ID),
		map[string]string{"text": "soon hidden"})
	require.Equal(t, 200, w.Code)
	conversationID := int64(decodeBody(t, w)["conversation_id"].(float64))

	hasConv := func() bool {
		w := doJSON(t, asA, "GET", "/api/v1/conversations/list", nil)
		require.Equal(t, 200, w.Code)
		for _, item := range decodeBody(t, w)["conversations"].([]interface{}) {
			if int64(item.(map[string]interface{})["id"].(float64)) == conversationID {
				return true
			}
		}
		return false
	}
	require.True(t, hasConv())

	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/conversations/%d/hide", conversationID), nil)
	require.Equal(t, 200, w.Code)
	assert.False(t, hasConv())

	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/conversations/%d/restore", conversationID), nil)
	require.Equal(t, 200, w.Code)
	assert.True(t, hasConv())
}

func TestMarkReadEndpoint(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)
	asB := newRouterAs(b.ID)

	w := doJSON(t, asB, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", a.ID),
		map[string]string{"text": "unread"})
	require.Equal(t, 200, w.Code)
	conversationID := int64(decodeBody(t, w)["conversation_id"].(float64))

	w = doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/conversations/%d/read", conversationID), nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["marked_read"])

	// посторонний диалог читать нельзя
	outsider := createHandlersUser(t, models.PermissionOpen)
	asOutsider := newRouterAs(outsider.ID)
	w = doJSON(t, asOutsider, "POST", fmt.Sprintf("/api/v1/conversations/%d/read", conversationID), nil)
	assert.Equal(t, 403, w.Code)
}

func TestSendGifShortcode(t *testing.T) {
	setupHandlersTest(t)
	a := createHandlersUser(t, models.PermissionOpen)
	b := createHandlersUser(t, models.PermissionOpen)
	asA := newRouterAs(a.ID)

	gif := &models.GifEntry{Shortcode: "congrats", PreviewURL: "/gifs/p.gif", OriginalURL: "/gifs/o.gif"}
	require.NoError(t, db.ORM.Create(gif).Error)

	w := doJSON(t, asA, "POST", fmt.Sprintf("/api/v1/dialog/%d/send", b.ID),
		map[string]string{"text": "[gif:congrats]"})
	require.Equal(t, 200, w.Code)

	wList := doJSON(t, asA, "GET", fmt.Sprintf("/api/v1/dialog/%d/list", b.ID), nil)
	require.Equal(t, 200, wList.Code)
	messages := decodeBody(t, wList)["messages"].([]interface{})
	require.Len(t, messages, 1)
	attachment := messages[0].(map[string]interface{})["attachment"].(map[string]interface{})
	assert.Equal(t, "gif", attachment["kind"])
	assert.Equal(t, float64(gif.ID), attachment["gif_id"])
}
