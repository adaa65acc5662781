package services

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"messenger/errs"
)

// ObjectStorage - хранилище медиа-вложений. Загрузка выполняется до append:
// неудачная загрузка отменяет отправку целиком, удачная загрузка с
// последующим неудачным append оставляет осиротевший объект (принятая цена).
type ObjectStorage interface {
	Upload(data []byte, mimeType string) (string, error)
}

var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// LocalStorage пишет объекты на диск, имя - от содержимого
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStorage) Upload(data []byte, mimeType string) (string, error) {
	ext, ok := mimeExtensions[mimeType]
	if !ok {
		return "", errs.UploadFailed(fmt.Errorf("unsupported mime type %q", mimeType))
	}
	if len(data) == 0 {
		return "", errs.UploadFailed(fmt.Errorf("empty upload"))
	}

	sum := sha1.Sum(data)
	name := hex.EncodeToString(sum[:]) + ext
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errs.UploadFailed(err)
	}
	return s.baseURL + "/" + name, nil
}

// IsVideoMime различает видео- и графические вложения
func IsVideoMime(mimeType string) bool {
	return mimeType == "video/mp4" || mimeType == "video/webm"
}
