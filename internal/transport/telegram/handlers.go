package telegram

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"quiz-bot/internal/domain"
)

// HandleUpdate routes one update. Errors are logged; the user gets a short reply
// where one makes sense.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case isCommand(text, "start"):
		b.send(ctx, chatID, textGreeting, &SendOptions{ReplyMarkup: mainMenu()})
	case isCommand(text, "cancel"):
		b.cancelQuiz(ctx, chatID, userID)
	case text == buttonQuiz:
		b.startQuiz(ctx, chatID, userID)
	case text == buttonResults:
		b.showResults(ctx, chatID, userID)
	case text == buttonReference:
		b.showReference(ctx, chatID)
	default:
		b.log.Debug("message ignored", "user", userID, "text", text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		b.answer(ctx, cb.ID, "")
		return
	}
	userID := strconv.FormatInt(cb.From.ID, 10)

	switch {
	case strings.HasPrefix(cb.Data, callbackAnswer):
		b.recordAnswer(ctx, cb, userID, strings.TrimPrefix(cb.Data, callbackAnswer))
	case strings.HasPrefix(cb.Data, callbackNext):
		b.nextQuestion(ctx, cb, userID, strings.TrimPrefix(cb.Data, callbackNext))
	case strings.HasPrefix(cb.Data, callbackDocument):
		b.answer(ctx, cb.ID, "")
		b.sendDocument(ctx, cb.Message.Chat.ID, strings.TrimPrefix(cb.Data, callbackDocument))
	default:
		b.answer(ctx, cb.ID, "")
		b.log.Debug("callback ignored", "user", userID, "data", cb.Data)
	}
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, userID string) {
	if _, err := b.service.StartQuiz(ctx, userID); err != nil {
		b.log.Error("start quiz", "user", userID, "err", err)
		b.send(ctx, chatID, textTryLater, nil)
		return
	}
	question, progress, err := b.service.Current(ctx, userID)
	if err != nil {
		b.log.Error("current question", "user", userID, "err", err)
		b.send(ctx, chatID, textTryLater, nil)
		return
	}
	b.sendQuestion(ctx, chatID, question, progress.Attempt, progress.Index)
}

func (b *Bot) cancelQuiz(ctx context.Context, chatID int64, userID string) {
	if b.service.Cancel(ctx, userID) {
		b.send(ctx, chatID, textCancelled, &SendOptions{ReplyMarkup: mainMenu()})
		return
	}
	b.send(ctx, chatID, textNothingToCancel, nil)
}

func (b *Bot) recordAnswer(ctx context.Context, cb *CallbackQuery, userID, raw string) {
	attempt, nums, ok := parseCallback(raw, 2)
	if !ok {
		b.answer(ctx, cb.ID, textUnknownAnswer)
		return
	}

	progress, err := b.service.SubmitAnswerAt(ctx, userID, attempt, nums[0], nums[1])
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		b.answer(ctx, cb.ID, textNoActiveQuiz)
		return
	case errors.Is(err, domain.ErrUnknownAnswer):
		b.answer(ctx, cb.ID, textUnknownAnswer)
		return
	case err != nil:
		b.log.Error("record answer", "user", userID, "err", err)
		b.answer(ctx, cb.ID, textTryLater)
		return
	}
	b.answer(ctx, cb.ID, "")

	catalog := b.service.Catalog()
	question := catalog.Questions[progress.Index]
	err = b.client.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID,
		progressText(question, progress),
		&SendOptions{ParseMode: parseModeHTML, ReplyMarkup: answersKeyboard(question, progress.Attempt, progress.Index, progress.Selected)},
	)
	if err != nil && !notModified(err) {
		b.log.Warn("edit question message", "user", userID, "err", err)
	}
}

func (b *Bot) nextQuestion(ctx context.Context, cb *CallbackQuery, userID, raw string) {
	chatID := cb.Message.Chat.ID

	attempt, nums, ok := parseCallback(raw, 1)
	if !ok {
		b.answer(ctx, cb.ID, textNoActiveQuiz)
		return
	}
	result, err := b.service.AdvanceFrom(ctx, userID, attempt, nums[0])
	if errors.Is(err, domain.ErrInvalidState) {
		b.answer(ctx, cb.ID, textNoActiveQuiz)
		return
	}
	if err != nil {
		b.log.Error("advance", "user", userID, "err", err)
		b.answer(ctx, cb.ID, textTryLater)
		return
	}
	b.answer(ctx, cb.ID, "")

	// the previous question can no longer be answered
	if err := b.client.EditMessageReplyMarkup(ctx, chatID, cb.Message.MessageID, nil); err != nil && !notModified(err) {
		b.log.Warn("remove keyboard", "user", userID, "err", err)
	}

	if result.Next != nil {
		b.sendQuestion(ctx, chatID, *result.Next, result.Attempt, result.Index)
		return
	}
	if result.Finished != nil {
		text := reportText(*result.Finished, true)
		if !result.Finished.Persisted {
			text += textNotSaved
		}
		b.send(ctx, chatID, text, &SendOptions{ParseMode: parseModeHTML})
	}
}

func (b *Bot) showResults(ctx context.Context, chatID int64, userID string) {
	res, err := b.service.GetResults(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrResultsUnavailable):
		// nothing stored yet reads the same as an empty store
		b.log.Warn("results unavailable, showing empty results", "user", userID, "err", err)
		res = domain.UserResults{}
	case err != nil:
		b.log.Error("get results", "user", userID, "err", err)
		b.send(ctx, chatID, textTryLater, nil)
		return
	}
	b.send(ctx, chatID, resultsText(res), &SendOptions{ParseMode: parseModeHTML})
}

func (b *Bot) showReference(ctx context.Context, chatID int64) {
	docs := b.service.Catalog().Documents
	if len(docs) == 0 {
		b.send(ctx, chatID, textNoDocuments, nil)
		return
	}
	b.send(ctx, chatID, textChooseDocument, &SendOptions{ReplyMarkup: documentsKeyboard(docs)})
}

func (b *Bot) sendDocument(ctx context.Context, chatID int64, documentID string) {
	doc, err := b.service.Document(documentID)
	if err != nil {
		b.send(ctx, chatID, textDocumentMissing, nil)
		return
	}
	data, err := b.readAsset(doc.Path)
	if err != nil {
		b.log.Error("read document", "document", doc.ID, "path", doc.Path, "err", err)
		b.send(ctx, chatID, textDocumentMissing, nil)
		return
	}
	if err := b.client.SendDocument(ctx, chatID, path.Base(doc.Path), data); err != nil {
		b.log.Error("send document", "document", doc.ID, "err", err)
	}
}

// sendQuestion sends the optional image and then the question with its keyboard.
func (b *Bot) sendQuestion(ctx context.Context, chatID int64, q domain.Question, attempt string, index int) {
	if q.Options.ImagePath != "" {
		data, err := b.readAsset(q.Options.ImagePath)
		if err != nil {
			b.log.Warn("read question image", "question", q.ID, "path", q.Options.ImagePath, "err", err)
		} else if err := b.client.SendPhoto(ctx, chatID, path.Base(q.Options.ImagePath), data); err != nil {
			b.log.Warn("send question image", "question", q.ID, "err", err)
		}
	}
	b.send(ctx, chatID, questionText(q, index), &SendOptions{
		ParseMode:   parseModeHTML,
		ReplyMarkup: answersKeyboard(q, attempt, index, nil),
	})
}

func (b *Bot) readAsset(name string) ([]byte, error) {
	if b.assets == nil {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(b.assets, path.Clean(name))
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, opts *SendOptions) {
	if _, err := b.client.SendMessage(ctx, chatID, text, opts); err != nil {
		b.log.Warn("send message", "chat", chatID, "err", err)
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.client.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log.Debug("answer callback", "err", err)
	}
}

// isCommand matches "/name" and "/name@botname".
func isCommand(text, name string) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd == name
}
