package services

import (
	"sync"
	"testing"

	"messenger/errs"
	"messenger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCanonicalPair(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	cs := NewConversationService()

	conv1, err := cs.GetOrCreate(testCtx(), a.ID, b.ID)
	require.NoError(t, err)
	conv2, err := cs.GetOrCreate(testCtx(), b.ID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, conv1.ID, conv2.ID)
	assert.Less(t, conv1.UserLoID, conv1.UserHiID)
}

func TestGetOrCreateSelfRejected(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)

	_, err := NewConversationService().GetOrCreate(testCtx(), a.ID, a.ID)
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	cs := NewConversationService()

	var wg sync.WaitGroup
	ids := make([]int64, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// обе стороны одновременно, в обоих порядках
			userA, userB := a.ID, b.ID
			if n%2 == 1 {
				userA, userB = b.ID, a.ID
			}
			conv, err := cs.GetOrCreate(testCtx(), userA, userB)
			if !assert.NoError(t, err) {
				return
			}
			ids[n] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestHideIsOneSided(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	cs := NewConversationService()
	conv := createTestConversation(t, a, b)
	ms := NewMessageService(cs, nil)
	appendText(t, ms, conv, a.ID, "hello")

	require.NoError(t, cs.Hide(testCtx(), conv.ID, a.ID))

	hidden, err := cs.IsHidden(testCtx(), conv.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, hidden)

	listA, err := cs.List(testCtx(), a.ID)
	require.NoError(t, err)
	for _, p := range listA {
		assert.NotEqual(t, conv.ID, p.ID)
	}

	// собеседник ничего не замечает
	listB, err := cs.List(testCtx(), b.ID)
	require.NoError(t, err)
	found := false
	for _, p := range listB {
		if p.ID == conv.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRestoreBringsConversationBack(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	cs := NewConversationService()
	conv := createTestConversation(t, a, b)

	require.NoError(t, cs.Hide(testCtx(), conv.ID, a.ID))

	// новая активность собеседника диалог не возвращает
	ms := NewMessageService(cs, nil)
	appendText(t, ms, conv, b.ID, "are you there?")
	hidden, err := cs.IsHidden(testCtx(), conv.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, hidden)

	require.NoError(t, cs.Restore(testCtx(), conv.ID, a.ID))
	hidden, err = cs.IsHidden(testCtx(), conv.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, hidden)
}

func TestHideByNonParticipantRejected(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	outsider := createTestUser(t, models.PermissionOpen)
	conv := createTestConversation(t, a, b)

	err := NewConversationService().Hide(testCtx(), conv.ID, outsider.ID)
	assert.True(t, errs.Is(err, errs.CodePermissionDenied))
}

func TestListUnreadCount(t *testing.T) {
	setupTestDB(t)
	a := createTestUser(t, models.PermissionOpen)
	b := createTestUser(t, models.PermissionOpen)
	cs := NewConversationService()
	conv := createTestConversation(t, a, b)
	ms := NewMessageService(cs, nil)

	appendText(t, ms, conv, b.ID, "one")
	appendText(t, ms, conv, b.ID, "two")
	appendText(t, ms, conv, a.ID, "own messages do not count")

	previews, err := cs.List(testCtx(), a.ID)
	require.NoError(t, err)
	var preview *ConversationPreview
	for i := range previews {
		if previews[i].ID == conv.ID {
			preview = &previews[i]
		}
	}
	require.NotNil(t, preview)
	assert.Equal(t, int64(2), preview.UnreadCount)
	assert.Equal(t, b.ID, preview.OtherUserID)

	_, err = ms.MarkRead(testCtx(), conv.ID, a.ID)
	require.NoError(t, err)

	previews, err = cs.List(testCtx(), a.ID)
	require.NoError(t, err)
	for _, p := range previews {
		if p.ID == conv.ID {
			assert.Equal(t, int64(0), p.UnreadCount)
		}
	}
}
