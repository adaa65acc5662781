package services

import (
	"testing"

	"messenger/db"
	"messenger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWholeMessageShortcode(t *testing.T) {
	setupTestDB(t)
	gif := createTestGif(t, "dance-party")
	ss := NewShortcodeService(NewGifCatalogService())

	res, err := ss.Resolve(testCtx(), "[gif:dance-party]", 1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, gif.ID, res.Gif.ID)
	assert.Empty(t, res.RemainingText)
}

func TestResolveEmbeddedShortcode(t *testing.T) {
	setupTestDB(t)
	gif := createTestGif(t, "thumbs_up")
	ss := NewShortcodeService(NewGifCatalogService())

	res, err := ss.Resolve(testCtx(), "nice work [gif:thumbs_up] see you tomorrow", 1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, gif.ID, res.Gif.ID)
	assert.Equal(t, "nice work see you tomorrow", res.RemainingText)
}

func TestResolveUnknownShortcodeSendsLiteralText(t *testing.T) {
	setupTestDB(t)
	ss := NewShortcodeService(NewGifCatalogService())

	res, err := ss.Resolve(testCtx(), "[gif:no-such-gif]", 1)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolvePlainTextUntouched(t *testing.T) {
	setupTestDB(t)
	ss := NewShortcodeService(NewGifCatalogService())

	res, err := ss.Resolve(testCtx(), "just a normal message", 1)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolveInvalidSlugIgnored(t *testing.T) {
	setupTestDB(t)
	createTestGif(t, "ok")
	ss := NewShortcodeService(NewGifCatalogService())

	// верхний регистр не входит в грамматику слага
	res, err := ss.Resolve(testCtx(), "[gif:OK]", 1)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolveIncrementsUsageCounter(t *testing.T) {
	setupTestDB(t)
	gif := createTestGif(t, "counted")
	ss := NewShortcodeService(NewGifCatalogService())

	res, err := ss.Resolve(testCtx(), "[gif:counted]", 1)
	require.NoError(t, err)
	require.NotNil(t, res)

	var stored models.GifEntry
	require.NoError(t, db.ORM.First(&stored, gif.ID).Error)
	assert.Equal(t, int64(1), stored.UsageCount)
}
