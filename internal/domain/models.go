package domain

import (
	"time"
)

// TextKind определяет вариант поля text сообщения: обычная строка
// или массив стилизованных фрагментов.
type TextKind int

const (
	// TextPlain - текст сообщения был обычной JSON-строкой.
	TextPlain TextKind = iota
	// TextStyled - текст сообщения был массивом стилизованных фрагментов.
	TextStyled
)

// Известные типы стилизации фрагментов текста в экспорте Telegram.
const (
	StylePlain         = "plain"
	StyleBold          = "bold"
	StyleItalic        = "italic"
	StyleStrikethrough = "strikethrough"
	StyleUnderline     = "underline"
	StyleCode          = "code"
	StylePre           = "pre"
	StyleLink          = "link"
	StyleMention       = "mention"
	StyleHashtag       = "hashtag"
	StyleBotCommand    = "bot_command"
	StyleEmail         = "email"
	StylePhone         = "phone"
	StyleSpoiler       = "spoiler"
)

// TextRun представляет один стилизованный фрагмент текста сообщения.
type TextRun struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
}

// MessageText - размеченное объединение двух форм поля text.
// Вариант выбирается один раз при декодировании по форме токена;
// все потребители сверяются с Kind, а не с динамическими типами.
type MessageText struct {
	Kind  TextKind  `json:"kind"`
	Plain string    `json:"plain,omitempty"`
	Runs  []TextRun `json:"runs,omitempty"`
}

// PlainString возвращает плоскую текстовую проекцию сообщения.
// Для стилизованного варианта это конкатенация текстов всех фрагментов
// в исходном порядке.
func (t MessageText) PlainString() string {
	if t.Kind == TextPlain {
		return t.Plain
	}
	var out string
	for _, r := range t.Runs {
		out += r.Text
	}
	return out
}

// Parts возвращает проекцию стилизованных фрагментов.
// Обычная непустая строка становится единственным фрагментом типа plain.
func (t MessageText) Parts() []TextRun {
	if t.Kind == TextStyled {
		return t.Runs
	}
	if t.Plain == "" {
		return nil
	}
	return []TextRun{{Text: t.Plain, Type: StylePlain}}
}

// Message представляет одно декодированное сообщение чата.
// Значение неизменяемо после декодирования; производные поля
// вычисляются чистыми методами-аксессорами.
type Message struct {
	ID           int         `json:"id"`
	Type         string      `json:"type"`
	Date         string      `json:"date"`
	DateUnixtime int64       `json:"date_unixtime,omitempty"`
	From         string      `json:"from"`
	FromID       string      `json:"from_id"`
	Text         MessageText `json:"text"`

	ReplyToMessageID int    `json:"reply_to_message_id,omitempty"`
	ForwardedFrom    string `json:"forwarded_from,omitempty"`

	Photo           string `json:"photo,omitempty"`
	File            string `json:"file,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	MediaType       string `json:"media_type,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	StickerEmoji    string `json:"sticker_emoji,omitempty"`

	// Поля служебных сообщений (имеют смысл только при Type == "service").
	Actor   string   `json:"actor,omitempty"`
	ActorID string   `json:"actor_id,omitempty"`
	Action  string   `json:"action,omitempty"`
	Title   string   `json:"title,omitempty"`
	Members []string `json:"members,omitempty"`
}

// dateLayout - формат даты в экспорте Telegram, без часового пояса.
const dateLayout = "2006-01-02T15:04:05"

// ParsedDate разрешает отметку времени сообщения.
// Предпочитается строка date; при неудаче используется date_unixtime;
// если не разобралось ничего, возвращается нулевое время.
// Метод чистый: одинаковые входные поля всегда дают одинаковый результат.
func (m Message) ParsedDate() time.Time {
	if m.Date != "" {
		if ts, err := time.Parse(dateLayout, m.Date); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, m.Date); err == nil {
			return ts.UTC()
		}
	}
	if m.DateUnixtime != 0 {
		return time.Unix(m.DateUnixtime, 0).UTC()
	}
	return time.Time{}
}

// DisplaySender возвращает отображаемое имя отправителя:
// from, а при его отсутствии - from_id.
func (m Message) DisplaySender() string {
	if m.From != "" {
		return m.From
	}
	return m.FromID
}

// PlainText возвращает плоскую текстовую проекцию сообщения.
func (m Message) PlainText() string {
	return m.Text.PlainString()
}

// IsServiceMessage сообщает, является ли запись служебным событием чата.
func (m Message) IsServiceMessage() bool {
	return m.Type == "service"
}

// IsReply сообщает, является ли сообщение ответом.
func (m Message) IsReply() bool {
	return m.ReplyToMessageID != 0
}

// IsForwarded сообщает, переслано ли сообщение.
func (m Message) IsForwarded() bool {
	return m.ForwardedFrom != ""
}

// HasMedia сообщает, несет ли сообщение вложение.
func (m Message) HasMedia() bool {
	return m.Photo != "" || m.File != ""
}

// MediaInfo описывает вложение сообщения для предпросмотра.
type MediaInfo struct {
	Type          string
	FilePath      string
	ThumbnailPath string
	Width         int
	Height        int
	FileSize      int64
	Duration      int
	StickerEmoji  string
	MimeType      string
}

// ChatMetadata - сводка по файлу экспорта, полученная структурным
// проходом без полного декодирования записей. Неизменяема после создания.
type ChatMetadata struct {
	FilePath          string
	ChatName          string
	TotalMessages     int
	FileSizeBytes     int64
	FileSizeMB        float64
	EstimatedMemoryMB float64
	FirstMessageDate  time.Time
	LastMessageDate   time.Time
}

// IsLargeFile сообщает, считается ли файл большим.
func (m ChatMetadata) IsLargeFile() bool {
	return m.FileSizeMB > 50
}

// IsVeryLargeFile сообщает, считается ли файл очень большим.
func (m ChatMetadata) IsVeryLargeFile() bool {
	return m.FileSizeMB > 200
}

// HasManyMessages сообщает, много ли в чате сообщений.
func (m ChatMetadata) HasManyMessages() bool {
	return m.TotalMessages > 10000
}

// LoadResult - итог полной загрузки файла экспорта: имя чата
// и упорядоченный список сообщений в порядке документа.
type LoadResult struct {
	ChatName string    `json:"chat_name"`
	Messages []Message `json:"messages"`
}
