package services

import (
	"testing"
	"time"

	"messenger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProjectMessagePlainText(t *testing.T) {
	msg := &models.Message{ID: 1, SenderID: 10, Content: strPtr("hello")}

	dm := ProjectMessage(msg, 10)
	require.NotNil(t, dm)
	assert.Equal(t, "hello", dm.Content)
	assert.Equal(t, AttachmentNone, dm.Attachment.Kind)
	assert.False(t, dm.Deleted)
	assert.False(t, dm.Edited)
}

func TestProjectMessageHiddenForSenderOnly(t *testing.T) {
	msg := &models.Message{ID: 1, SenderID: 10, Content: strPtr("hi"), DeletedForSender: true}

	assert.Nil(t, ProjectMessage(msg, 10))
	assert.NotNil(t, ProjectMessage(msg, 20))
}

func TestProjectMessageHiddenForReceiverOnly(t *testing.T) {
	msg := &models.Message{ID: 1, SenderID: 10, Content: strPtr("hi"), DeletedForReceiver: true}

	assert.NotNil(t, ProjectMessage(msg, 10))
	assert.Nil(t, ProjectMessage(msg, 20))
}

func TestProjectMessageTombstoneDropsContentAndMedia(t *testing.T) {
	gifID := int64(7)
	replyTo := int64(3)
	msg := &models.Message{
		ID:        1,
		SenderID:  10,
		Content:   strPtr("gone"),
		GifID:     &gifID,
		ReplyToID: &replyTo,
		IsDeleted: true,
	}

	for _, viewer := range []int64{int64(10), int64(20)} {
		dm := ProjectMessage(msg, viewer)
		require.NotNil(t, dm)
		assert.True(t, dm.Deleted)
		assert.Empty(t, dm.Content)
		assert.Equal(t, AttachmentNone, dm.Attachment.Kind)
		// позиция и связь с ответами сохраняются
		require.NotNil(t, dm.ReplyToID)
		assert.Equal(t, replyTo, *dm.ReplyToID)
	}
}

func TestProjectMessageEditedFlag(t *testing.T) {
	now := time.Now()
	msg := &models.Message{ID: 1, SenderID: 10, Content: strPtr("v2"), EditedAt: &now}

	dm := ProjectMessage(msg, 20)
	require.NotNil(t, dm)
	assert.True(t, dm.Edited)
}

func TestMessageAttachmentKinds(t *testing.T) {
	img := "/media/a.png"
	vid := "/media/b.mp4"
	gifID := int64(42)

	assert.Equal(t, AttachmentImage, MessageAttachment(&models.Message{ImageURL: &img}).Kind)
	assert.Equal(t, AttachmentVideo, MessageAttachment(&models.Message{VideoURL: &vid}).Kind)

	att := MessageAttachment(&models.Message{GifID: &gifID})
	assert.Equal(t, AttachmentGif, att.Kind)
	assert.Equal(t, gifID, att.GifID)

	assert.Equal(t, AttachmentNone, MessageAttachment(&models.Message{}).Kind)
}

func TestProjectFiltersPerViewer(t *testing.T) {
	raw := []models.Message{
		{ID: 1, SenderID: 10, Content: strPtr("visible to both")},
		{ID: 2, SenderID: 10, Content: strPtr("hidden by sender"), DeletedForSender: true},
		{ID: 3, SenderID: 20, Content: strPtr("hidden by receiver"), DeletedForReceiver: true},
	}

	// для 10: свое скрытое (2) и чужое, скрытое от получателя (3), пропадают
	viewA := Project(raw, 10)
	require.Len(t, viewA, 1)
	assert.Equal(t, int64(1), viewA[0].ID)

	// для 20: оба скрытия чужой стороны невидимы
	viewB := Project(raw, 20)
	require.Len(t, viewB, 3)
}
