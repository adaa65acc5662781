package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSNotifyHandler - глобальный нотификационный сокет пользователя:
// сюда приходят пуши о сообщениях в диалогах, которые сейчас не открыты
func WSNotifyHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	services.GlobalWSConnManager.Add(userID, conn)
	defer services.GlobalWSConnManager.Remove(userID, conn)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// viewCommand - команда окна диалога, приходит с клиента по сокету
type viewCommand struct {
	Action      string `json:"action"`
	Text        string `json:"text"`
	MediaB64    string `json:"media_b64"`
	MediaMime   string `json:"media_mime"`
	ReplyToID   *int64 `json:"reply_to_id"`
	ClientTag   string `json:"client_tag"`
	MessageID   int64  `json:"message_id"`
	ForEveryone bool   `json:"for_everyone"`
}

// WSDialogHandler открывает окно диалога: одна сессия на сокет,
// обновления уходят клиенту, команды приходят от него
func WSDialogHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherUserID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	ctx := c.Request.Context()
	session, err := services.OpenSession(ctx, services.SessionDeps{
		Conversations: ConversationsSvc,
		Messages:      MessagesSvc,
		Permissions:   PermissionsSvc,
		Shortcodes:    ShortcodesSvc,
		Storage:       StorageSvc,
		Feed:          Feed,
		ConnManager:   services.GlobalWSConnManager,
	}, userID, otherUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		session.Close()
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()
	defer session.Close()

	// обновления сессии уходят в сокет
	go func() {
		for update := range session.Updates() {
			data, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd viewCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			log.Println("Invalid view command:", err)
			continue
		}
		handleViewCommand(c, session, cmd)
	}
}

func handleViewCommand(c *gin.Context, session *services.Session, cmd viewCommand) {
	ctx := c.Request.Context()
	switch cmd.Action {
	case "send":
		req := services.SendRequest{
			Text:      cmd.Text,
			ReplyToID: cmd.ReplyToID,
			ClientTag: cmd.ClientTag,
		}
		if cmd.MediaB64 != "" {
			data, err := base64.StdEncoding.DecodeString(cmd.MediaB64)
			if err != nil {
				log.Println("Invalid media payload:", err)
				return
			}
			req.MediaData = data
			req.MediaMime = cmd.MediaMime
		}
		session.Send(ctx, req)
	case "typing":
		session.Typing()
	case "focus":
		session.MarkFocused(ctx)
	case "refresh":
		if err := session.Refresh(ctx); err != nil {
			log.Println("Refresh failed:", err)
		}
	case "edit_begin":
		if err := session.BeginEdit(cmd.MessageID); err != nil {
			log.Println("Edit rejected:", err)
		}
	case "edit_commit":
		if err := session.CommitEdit(ctx, cmd.Text); err != nil {
			log.Println("Edit failed:", err)
		}
	case "edit_cancel":
		session.CancelEdit()
	case "delete_request":
		if _, err := session.RequestDelete(cmd.MessageID); err != nil {
			log.Println("Delete rejected:", err)
		}
	case "delete_confirm":
		if err := session.ConfirmDelete(ctx, cmd.ForEveryone); err != nil {
			log.Println("Delete failed:", err)
		}
	case "delete_cancel":
		session.CancelDelete()
	default:
		log.Println("Unknown view command:", cmd.Action)
	}
}
