package services

import (
	"context"
	"regexp"
	"strings"

	"messenger/errs"
	"messenger/models"
)

// Грамматика шорткода: [gif:slug]
var shortcodeRegex = regexp.MustCompile(`\[gif:([a-z0-9_-]+)\]`)
var wholeShortcodeRegex = regexp.MustCompile(`^\[gif:([a-z0-9_-]+)\]$`)

// ShortcodeResolution - результат разбора текста с шорткодом.
// RemainingText пуст, если все сообщение состояло из одного шорткода.
type ShortcodeResolution struct {
	Gif           *models.GifEntry
	RemainingText string
}

// ShortcodeService разбирает inline-шорткоды и резолвит их через каталог
type ShortcodeService struct {
	catalog *GifCatalogService
}

func NewShortcodeService(catalog *GifCatalogService) *ShortcodeService {
	return &ShortcodeService{catalog: catalog}
}

// Resolve ищет шорткод в тексте сообщения.
// Возвращает nil, если шорткода нет или он не известен каталогу -
// в этом случае текст отправляется как есть, буквально.
func (ss *ShortcodeService) Resolve(ctx context.Context, text string, userID int64) (*ShortcodeResolution, error) {
	trimmed := strings.TrimSpace(text)

	// Все сообщение - один шорткод
	if m := wholeShortcodeRegex.FindStringSubmatch(trimmed); m != nil {
		entry, err := ss.lookup(ctx, m[1])
		if entry == nil {
			return nil, err
		}
		ss.catalog.RecordUsage(ctx, entry.ID, userID)
		return &ShortcodeResolution{Gif: entry, RemainingText: ""}, nil
	}

	// Шорткод внутри текста: вырезаем вхождение, схлопываем пробелы
	loc := shortcodeRegex.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return nil, nil
	}
	code := trimmed[loc[2]:loc[3]]
	entry, err := ss.lookup(ctx, code)
	if entry == nil {
		return nil, err
	}

	remaining := trimmed[:loc[0]] + " " + trimmed[loc[1]:]
	remaining = strings.Join(strings.Fields(remaining), " ")

	ss.catalog.RecordUsage(ctx, entry.ID, userID)
	return &ShortcodeResolution{Gif: entry, RemainingText: remaining}, nil
}

// lookup трактует неизвестный шорткод как отсутствие совпадения
func (ss *ShortcodeService) lookup(ctx context.Context, code string) (*models.GifEntry, error) {
	entry, err := ss.catalog.FindByShortcode(ctx, code)
	if err != nil {
		if errs.Is(err, errs.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}
