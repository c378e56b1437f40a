package telegram

import (
	"context"
	"time"
)

// Update is one incoming event from getUpdates.
type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is a chat message.
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// CallbackQuery is a press of an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// ReplyKeyboardMarkup is the persistent keyboard under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

type KeyboardButton struct {
	Text string `json:"text"`
}

// SendOptions holds optional sendMessage/editMessageText parameters.
// ReplyMarkup is an *InlineKeyboardMarkup or a *ReplyKeyboardMarkup.
type SendOptions struct {
	ParseMode   string      `json:"parse_mode,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

// Client is the subset of the Bot API the bot uses.
type Client interface {
	// GetUpdates long-polls for up to timeout seconds. Pass offset = lastUpdateID + 1.
	GetUpdates(ctx context.Context, offset int, timeout int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) error
	// EditMessageReplyMarkup replaces the inline keyboard; nil removes it.
	EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
	SendDocument(ctx context.Context, chatID int64, fileName string, data []byte) error
	SendPhoto(ctx context.Context, chatID int64, fileName string, data []byte) error
}

const (
	timeoutSend   = 5 * time.Second
	timeoutUpload = 30 * time.Second

	parseModeHTML = "HTML"
)
