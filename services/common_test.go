package services

import (
	"context"
	"fmt"
	"testing"

	"messenger/db"
	"messenger/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, db.ConnectTestDB())
}

func testCtx() context.Context {
	return context.Background()
}

func createTestUser(t *testing.T, permission models.MessagingPermission) *models.User {
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

func createTestGif(t *testing.T, shortcode string) *models.GifEntry {
	t.Helper()
	gif := &models.GifEntry{
		Shortcode:   shortcode,
		PreviewURL:  gofakeit.URL(),
		OriginalURL: gofakeit.URL(),
	}
	require.NoError(t, db.ORM.Create(gif).Error)
	return gif
}

func createTestConversation(t *testing.T, a, b *models.User) *models.Conversation {
	t.Helper()
	conv, err := NewConversationService().GetOrCreate(testCtx(), a.ID, b.ID)
	require.NoError(t, err)
	return conv
}

func appendText(t *testing.T, ms *MessageService, conv *models.Conversation, senderID int64, text string) *models.Message {
	t.Helper()
	msg, err := ms.Append(testCtx(), conv, senderID, AppendPayload{Content: &text})
	require.NoError(t, err)
	return msg
}
