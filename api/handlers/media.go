package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 20 << 20 // 20 MB

// UploadMediaHandler принимает медиа-вложение до отправки сообщения
// и возвращает URL для последующего append
func UploadMediaHandler(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	url, err := StorageSvc.Upload(data, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetGifHandler резолвит шорткод в превью для панели выбора гифок
func GetGifHandler(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	code := c.Param("shortcode")
	gif, err := GifsSvc.FindByShortcode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"shortcode":    gif.Shortcode,
		"preview_url":  gif.PreviewURL,
		"original_url": gif.OriginalURL,
	})
}
