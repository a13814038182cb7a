// Package telegram is a minimal Telegram Bot API binding: long-polled
// updates in, JSON method calls out. Only the methods the bot actually
// uses are implemented.
package telegram

// Update is one long-poll result entry.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// ChatID returns the conversation an update belongs to, or 0 when the
// update carries neither a message nor a callback.
func (u Update) ChatID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// User is a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Chat is a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// Message is an inbound or sent message. Media fields are pointers so the
// content kind can be classified by presence.
type Message struct {
	MessageID int         `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Video     *Video      `json:"video,omitempty"`
	Voice     *Voice      `json:"voice,omitempty"`
	VideoNote *VideoNote  `json:"video_note,omitempty"`
	Document  *Document   `json:"document,omitempty"`
}

// PhotoSize is one resolution of a photo; the API sends smallest first.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LargestPhoto returns the file id of the highest-resolution variant.
func (m *Message) LargestPhoto() string {
	if len(m.Photo) == 0 {
		return ""
	}
	return m.Photo[len(m.Photo)-1].FileID
}

// Video is a video attachment.
type Video struct {
	FileID string `json:"file_id"`
}

// Voice is a voice note.
type Voice struct {
	FileID string `json:"file_id"`
}

// VideoNote is a round video message.
type VideoNote struct {
	FileID string `json:"file_id"`
}

// Document is a generic file attachment.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup is an inline keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one button; exactly one of CallbackData or URL
// should be set.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InputMedia is one entry of a media group. Type is "photo" or "video";
// Media is a file id (or URL).
type InputMedia struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}
