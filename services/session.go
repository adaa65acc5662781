package services

import (
	"context"
	"log"
	"sort"
	"time"

	"messenger/errs"
	"messenger/models"
)

type SessionState string

const (
	SessionIdle             SessionState = "idle"
	SessionLoading          SessionState = "loading"
	SessionReady            SessionState = "ready"
	SessionSending          SessionState = "sending"
	SessionEditing          SessionState = "editing"
	SessionConfirmingDelete SessionState = "confirming_delete"
	SessionClosed           SessionState = "closed"
)

// TypingQuietInterval - пауза, после которой локальный флаг набора гаснет
const TypingQuietInterval = 3 * time.Second

// ViewUpdate - обновление, которое сессия пушит в открытое окно
type ViewUpdate struct {
	Type     string           `json:"type"` // snapshot | change | error
	Messages []DisplayMessage `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// SendRequest - исходящее сообщение. ClientTag защищает от повторной
// отправки еще не подтвержденного сообщения (идемпотентность контроллера).
type SendRequest struct {
	Text      string
	MediaData []byte
	MediaMime string
	ReplyToID *int64
	ClientTag string
}

// SessionDeps - коллабораторы, которые нужны контроллеру сессии
type SessionDeps struct {
	Conversations *ConversationService
	Messages      *MessageService
	Permissions   *PermissionService
	Shortcodes    *ShortcodeService
	Storage       ObjectStorage
	Feed          ChangeFeed
	ConnManager   *WSConnManager
}

// Session - контроллер одного открытого окна диалога. Один кооперативный
// цикл-актор обрабатывает и действия пользователя, и события фида как
// дискретные неперекрывающиеся задачи над одним локальным списком,
// поэтому блокировки внутри окна не нужны. Несколько окон согласуются
// только через хранилище и пропагатор.
type Session struct {
	viewerID int64
	conv     *models.Conversation
	deps     SessionDeps

	commands chan func()
	updates  chan ViewUpdate
	sub      Subscription

	// состояние ниже принадлежит циклу актора
	state       SessionState
	raw         []models.Message
	pendingTags map[string]bool
	typing      bool
	typingTimer *time.Timer
	editTarget  int64
	delTarget   int64
	closed      chan struct{}
}

// OpenSession открывает окно диалога viewerID <-> otherUserID.
// Гейт разрешений проверяется только для первого контакта: существующий
// диалог уже установленного контакта задним числом не блокируется.
func OpenSession(ctx context.Context, deps SessionDeps, viewerID, otherUserID int64) (*Session, error) {
	exists, err := deps.Conversations.Exists(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := deps.Permissions.CheckFirstContact(ctx, viewerID, otherUserID); err != nil {
			return nil, err
		}
	}

	s := &Session{
		viewerID:    viewerID,
		deps:        deps,
		commands:    make(chan func(), 32),
		updates:     make(chan ViewUpdate, 128),
		state:       SessionLoading,
		pendingTags: make(map[string]bool),
		closed:      make(chan struct{}),
	}

	conv, err := deps.Conversations.GetOrCreate(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, err
	}
	s.conv = conv

	// подписка до снапшота: событие может прийти раньше, чем listRaw
	// завершится, мердж по id это переживает
	sub, err := deps.Feed.Subscribe(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	s.sub = sub

	snapshot, err := deps.Messages.ListRaw(ctx, conv.ID)
	if err != nil {
		sub.Close()
		return nil, err
	}
	s.raw = MergeSnapshot(nil, snapshot)

	if _, err := deps.Messages.MarkRead(ctx, conv.ID, viewerID); err != nil {
		log.Printf("Failed to mark conversation %d read: %v", conv.ID, err)
	}
	markLocalRead(s.raw, viewerID)

	s.state = SessionReady
	if deps.ConnManager != nil {
		deps.ConnManager.MarkViewActive(viewerID, conv.ID)
	}

	s.typingTimer = time.NewTimer(TypingQuietInterval)
	if !s.typingTimer.Stop() {
		<-s.typingTimer.C
	}

	// снапшот уходит до старта актора: после go s.raw принадлежит циклу
	s.pushUpdate(ViewUpdate{Type: "snapshot", Messages: Project(s.raw, viewerID)})

	go s.loop(ctx)
	return s, nil
}

// loop - цикл актора. shutdown выполняется только внутри этого цикла,
// поэтому проверки состояния после каждой итерации достаточно: буфер
// событий фида после закрытия молча отбрасывается, а не обрабатывается
// поверх закрытого канала обновлений.
func (s *Session) loop(ctx context.Context) {
	for s.state != SessionClosed {
		select {
		case <-s.closed:
			return
		case cmd := <-s.commands:
			cmd()
		case event, ok := <-s.sub.Events():
			if !ok {
				continue
			}
			s.applyEvent(ctx, event)
		case err := <-s.sub.Err():
			s.resync(ctx, err)
		case <-s.typingTimer.C:
			s.typing = false
		}
	}
}

// Updates - канал обновлений для транспорта окна
func (s *Session) Updates() <-chan ViewUpdate { return s.updates }

// Conversation возвращает диалог этого окна
func (s *Session) Conversation() *models.Conversation { return s.conv }

// State возвращает текущее состояние машины
func (s *Session) State() SessionState {
	var state SessionState
	s.do(func() { state = s.state })
	return state
}

// Snapshot возвращает текущую проекцию для зрителя
func (s *Session) Snapshot() []DisplayMessage {
	var result []DisplayMessage
	s.do(func() { result = Project(s.raw, s.viewerID) })
	return result
}

// Typing сообщает о нажатии клавиши: флаг набора локален для окна
// и до собеседника не доходит
func (s *Session) Typing() {
	s.post(func() {
		s.typing = true
		if !s.typingTimer.Stop() {
			select {
			case <-s.typingTimer.C:
			default:
			}
		}
		s.typingTimer.Reset(TypingQuietInterval)
	})
}

// IsTyping возвращает локальный флаг набора
func (s *Session) IsTyping() bool {
	var typing bool
	s.do(func() { typing = s.typing })
	return typing
}

// Send отправляет сообщение: шорткод, затем загрузка медиа, затем append.
// Неудачная загрузка отменяет отправку целиком. Вызов не ждет завершения,
// повтор с тем же ClientTag в рамках сессии молча отбрасывается.
func (s *Session) Send(ctx context.Context, req SendRequest) {
	s.post(func() {
		if s.state == SessionClosed {
			return
		}
		if req.ClientTag != "" && s.pendingTags[req.ClientTag] {
			return
		}
		if req.ClientTag != "" {
			s.pendingTags[req.ClientTag] = true
		}
		s.state = SessionSending
		err := s.performSend(ctx, req)
		s.state = SessionReady
		if err != nil {
			// неудачную отправку можно повторить с тем же тегом
			delete(s.pendingTags, req.ClientTag)
			s.pushUpdate(ViewUpdate{Type: "error", Error: err.Error()})
		}
	})
}

func (s *Session) performSend(ctx context.Context, req SendRequest) error {
	payload := AppendPayload{ReplyToID: req.ReplyToID}
	text := req.Text

	// сперва шорткод: сбой резолвера не блокирует отправку текста
	if req.MediaData == nil && text != "" {
		resolution, err := s.deps.Shortcodes.Resolve(ctx, text, s.viewerID)
		if err != nil {
			log.Printf("Shortcode resolution failed, sending as plain text: %v", err)
		} else if resolution != nil {
			payload.Attachment = Attachment{Kind: AttachmentGif, GifID: resolution.Gif.ID}
			text = resolution.RemainingText
		}
	}

	if req.MediaData != nil {
		url, err := s.deps.Storage.Upload(req.MediaData, req.MediaMime)
		if err != nil {
			return errs.UploadFailed(err)
		}
		if IsVideoMime(req.MediaMime) {
			payload.Attachment = Attachment{Kind: AttachmentVideo, URL: url}
		} else {
			payload.Attachment = Attachment{Kind: AttachmentImage, URL: url}
		}
	}

	if text != "" {
		payload.Content = &text
	}

	msg, err := s.deps.Messages.Append(ctx, s.conv, s.viewerID, payload)
	if err != nil {
		// загруженный объект осиротел: фиксируем, не чистим
		if payload.Attachment.URL != "" {
			log.Printf("Orphaned upload after failed append: url=%s", payload.Attachment.URL)
			if QueueServiceInstance != nil {
				_ = QueueServiceInstance.Enqueue(ctx, BackgroundTask{
					Action: TaskOrphanUpload,
					URL:    payload.Attachment.URL,
					Reason: "append failed after upload",
				})
			}
		}
		return err
	}

	s.raw = ApplyChange(s.raw, ChangeEvent{
		Kind:           ChangeInsert,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Message:        msg,
	})
	s.pushProjection()

	s.dispatchNotification(ctx, msg, text)
	return nil
}

func (s *Session) dispatchNotification(ctx context.Context, msg *models.Message, text string) {
	otherID := s.conv.OtherParticipant(s.viewerID)
	if s.deps.ConnManager != nil && s.deps.ConnManager.IsViewActive(otherID, s.conv.ID) {
		return
	}
	err := PublishNotification(ctx, MessageNotification{
		UserID:         otherID,
		ConversationID: s.conv.ID,
		SenderID:       s.viewerID,
		Summary:        NotificationSummary(text),
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		log.Printf("Failed to dispatch notification for message %d: %v", msg.ID, err)
	}
}

// BeginEdit входит в режим правки собственного сообщения
func (s *Session) BeginEdit(messageID int64) error {
	var outErr error
	s.do(func() {
		if s.state != SessionReady {
			outErr = errs.Conflict("view is busy")
			return
		}
		msg := findByID(s.raw, messageID)
		if msg == nil {
			outErr = errs.NotFound("message not found")
			return
		}
		if msg.SenderID != s.viewerID {
			outErr = errs.PermissionDenied("only the sender can edit a message")
			return
		}
		s.state = SessionEditing
		s.editTarget = messageID
	})
	return outErr
}

// CommitEdit применяет правку; авторитетную проверку делает хранилище
func (s *Session) CommitEdit(ctx context.Context, newText string) error {
	var outErr error
	s.do(func() {
		if s.state != SessionEditing {
			outErr = errs.Conflict("no edit in progress")
			return
		}
		msg, err := s.deps.Messages.Edit(ctx, s.editTarget, s.viewerID, newText)
		s.state = SessionReady
		s.editTarget = 0
		if err != nil {
			outErr = err
			return
		}
		s.raw = ApplyChange(s.raw, ChangeEvent{
			Kind:           ChangeUpdate,
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Message:        msg,
		})
		s.pushProjection()
	})
	return outErr
}

// CancelEdit отбрасывает локальный черновик правки
func (s *Session) CancelEdit() {
	s.do(func() {
		if s.state == SessionEditing {
			s.state = SessionReady
			s.editTarget = 0
		}
	})
}

// RequestDelete открывает подтверждение удаления. CanDeleteForEveryone
// говорит окну, показывать ли второй вариант.
func (s *Session) RequestDelete(messageID int64) (bool, error) {
	var canForEveryone bool
	var outErr error
	s.do(func() {
		if s.state != SessionReady {
			outErr = errs.Conflict("view is busy")
			return
		}
		msg := findByID(s.raw, messageID)
		if msg == nil {
			outErr = errs.NotFound("message not found")
			return
		}
		s.state = SessionConfirmingDelete
		s.delTarget = messageID
		canForEveryone = msg.SenderID == s.viewerID
	})
	return canForEveryone, outErr
}

// ConfirmDelete выполняет выбранный вариант удаления. Отмены нет.
func (s *Session) ConfirmDelete(ctx context.Context, forEveryone bool) error {
	var outErr error
	s.do(func() {
		if s.state != SessionConfirmingDelete {
			outErr = errs.Conflict("no delete in progress")
			return
		}
		target := s.delTarget
		s.state = SessionReady
		s.delTarget = 0

		var err error
		if forEveryone {
			err = s.deps.Messages.SoftDeleteForEveryone(ctx, target, s.viewerID)
		} else {
			err = s.deps.Messages.SoftDeleteForMe(ctx, target, s.viewerID)
		}
		if err != nil {
			outErr = err
			return
		}
		if msg, err := s.deps.Messages.Get(ctx, target); err == nil {
			s.raw = ApplyChange(s.raw, ChangeEvent{
				Kind:           ChangeUpdate,
				ConversationID: msg.ConversationID,
				MessageID:      msg.ID,
				Message:        msg,
			})
		}
		s.pushProjection()
	})
	return outErr
}

// CancelDelete закрывает подтверждение без действий
func (s *Session) CancelDelete() {
	s.do(func() {
		if s.state == SessionConfirmingDelete {
			s.state = SessionReady
			s.delTarget = 0
		}
	})
}

// Refresh принудительно перечитывает снапшот из хранилища, подписку
// не трогает. Путь для клиента, подозревающего пропущенные события.
func (s *Session) Refresh(ctx context.Context) error {
	var outErr error
	s.do(func() {
		if s.state == SessionClosed {
			return
		}
		snapshot, err := s.deps.Messages.ListRaw(ctx, s.conv.ID)
		if err != nil {
			outErr = err
			return
		}
		s.raw = MergeSnapshot(s.raw, snapshot)
		s.pushProjection()
	})
	return outErr
}

// MarkFocused вызывается, когда окно вернуло фокус: дочитываем непрочитанное
func (s *Session) MarkFocused(ctx context.Context) {
	s.do(func() {
		if s.state == SessionClosed {
			return
		}
		if !hasUnread(s.raw, s.viewerID) {
			return
		}
		if _, err := s.deps.Messages.MarkRead(ctx, s.conv.ID, s.viewerID); err != nil {
			log.Printf("Failed to mark conversation %d read: %v", s.conv.ID, err)
			return
		}
		markLocalRead(s.raw, s.viewerID)
		s.pushProjection()
	})
}

// Flush - барьер: дожидается обработки всех ранее отправленных команд
func (s *Session) Flush() {
	s.do(func() {})
}

// Close завершает сессию и снимает подписку; подписки не должны утекать
// при переключении диалогов
func (s *Session) Close() {
	s.do(s.shutdown)
}

func (s *Session) shutdown() {
	if s.state == SessionClosed {
		return
	}
	s.state = SessionClosed
	s.sub.Close()
	s.typingTimer.Stop()
	if s.deps.ConnManager != nil {
		s.deps.ConnManager.MarkViewClosed(s.viewerID, s.conv.ID)
	}
	close(s.closed)
	close(s.updates)
}

func (s *Session) applyEvent(ctx context.Context, event ChangeEvent) {
	if event.ConversationID != s.conv.ID {
		return
	}
	s.raw = ApplyChange(s.raw, event)

	// входящее от собеседника при открытом окне сразу читается
	if event.Kind == ChangeInsert && event.Message != nil && event.Message.SenderID != s.viewerID {
		if _, err := s.deps.Messages.MarkRead(ctx, s.conv.ID, s.viewerID); err == nil {
			markLocalRead(s.raw, s.viewerID)
		}
	}
	s.pushProjection()
}

// resync выполняется при потере подписки: переподписка и полный повторный
// снапшот, смердженный теми же правилами дедупликации
func (s *Session) resync(ctx context.Context, cause error) {
	log.Printf("Change feed lost for conversation %d, resyncing: %v", s.conv.ID, cause)
	s.sub.Close()

	sub, err := s.deps.Feed.Subscribe(ctx, s.conv.ID)
	if err != nil {
		// без подписки окно жить не может: закрываемся, клиент переоткроет
		s.pushUpdate(ViewUpdate{Type: "error", Error: errs.SubscriptionLost(err).Error()})
		s.shutdown()
		return
	}
	s.sub = sub

	snapshot, err := s.deps.Messages.ListRaw(ctx, s.conv.ID)
	if err != nil {
		s.pushUpdate(ViewUpdate{Type: "error", Error: err.Error()})
		return
	}
	s.raw = MergeSnapshot(s.raw, snapshot)
	s.pushProjection()
}

func (s *Session) pushProjection() {
	s.pushUpdate(ViewUpdate{Type: "change", Messages: Project(s.raw, s.viewerID)})
}

func (s *Session) pushUpdate(update ViewUpdate) {
	select {
	case s.updates <- update:
	default:
		log.Printf("View update dropped for conversation %d: slow consumer", s.conv.ID)
	}
}

// do выполняет команду в цикле актора и ждет завершения
func (s *Session) do(fn func()) {
	done := make(chan struct{})
	select {
	case s.commands <- func() { fn(); close(done) }:
	case <-s.closed:
		fn()
		return
	}
	select {
	case <-done:
	case <-s.closed:
	}
}

// post отправляет команду без ожидания
func (s *Session) post(fn func()) {
	select {
	case s.commands <- fn:
	case <-s.closed:
	}
}

// --- чистый редьюсер локального состояния ---

// ApplyChange мерджит событие фида в локальный список: insert/update
// заменяют по id или вставляют, delete убирает безусловно, затем
// пересортировка по (created_at, id). Порядку прихода событий доверять
// нельзя - доставка at-least-once и не упорядочена относительно снапшота.
func ApplyChange(list []models.Message, event ChangeEvent) []models.Message {
	switch event.Kind {
	case ChangeInsert, ChangeUpdate:
		if event.Message == nil {
			return list
		}
		replaced := false
		for i := range list {
			if list[i].ID == event.Message.ID {
				list[i] = *event.Message
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, *event.Message)
		}
	case ChangeDelete:
		for i := range list {
			if list[i].ID == event.MessageID {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	sortMessages(list)
	return list
}

// MergeSnapshot объединяет текущее состояние со свежим снапшотом:
// дедупликация по id, снапшот авторитетнее, итог отсортирован
func MergeSnapshot(current, snapshot []models.Message) []models.Message {
	byID := make(map[int64]models.Message, len(current)+len(snapshot))
	for _, m := range current {
		byID[m.ID] = m
	}
	for _, m := range snapshot {
		byID[m.ID] = m
	}
	merged := make([]models.Message, 0, len(byID))
	for _, m := range byID {
		merged = append(merged, m)
	}
	sortMessages(merged)
	return merged
}

func sortMessages(list []models.Message) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func findByID(list []models.Message, id int64) *models.Message {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func hasUnread(list []models.Message, viewerID int64) bool {
	for i := range list {
		if list[i].SenderID != viewerID && !list[i].IsRead {
			return true
		}
	}
	return false
}

func markLocalRead(list []models.Message, viewerID int64) {
	for i := range list {
		if list[i].SenderID != viewerID {
			list[i].IsRead = true
		}
	}
}
