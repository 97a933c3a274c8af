// Package services содержит прикладные сервисы просмотра чата:
// человекочитаемые проекции сообщений и поиск.
package services

import (
	"fmt"
	"strings"

	"telegram-chat-viewer/internal/domain"
)

// defaultReplyPreviewLength - максимальная длина предпросмотра ответа в рунах.
const defaultReplyPreviewLength = 50

// FormatServiceMessage возвращает человекочитаемое описание служебного
// события чата по actor и action сообщения.
func FormatServiceMessage(msg domain.Message) string {
	actor := msg.Actor
	switch msg.Action {
	case "create_group":
		return fmt.Sprintf("%s created the group %q", actor, msg.Title)
	case "edit_group_title":
		return fmt.Sprintf("%s changed the group name to %q", actor, msg.Title)
	case "edit_group_photo":
		return fmt.Sprintf("%s changed the group photo", actor)
	case "delete_group_photo":
		return fmt.Sprintf("%s removed the group photo", actor)
	case "invite_members":
		switch len(msg.Members) {
		case 0:
			return fmt.Sprintf("%s invited someone to the group", actor)
		case 1:
			return fmt.Sprintf("%s invited %s to the group", actor, msg.Members[0])
		default:
			return fmt.Sprintf("%s invited %s to the group", actor, strings.Join(msg.Members, ", "))
		}
	case "remove_members":
		switch len(msg.Members) {
		case 0:
			return fmt.Sprintf("%s removed someone from the group", actor)
		case 1:
			return fmt.Sprintf("%s removed %s from the group", actor, msg.Members[0])
		default:
			return fmt.Sprintf("%s removed %s from the group", actor, strings.Join(msg.Members, ", "))
		}
	case "join_group_by_link":
		return fmt.Sprintf("%s joined the group via invite link", actor)
	case "migrate_to_supergroup":
		return fmt.Sprintf("%s upgraded this group to a supergroup", actor)
	case "migrate_from_group":
		return "This supergroup was upgraded from a basic group"
	case "pin_message":
		return fmt.Sprintf("%s pinned a message", actor)
	case "unpin_message":
		return fmt.Sprintf("%s unpinned a message", actor)
	case "clear_history":
		return fmt.Sprintf("%s cleared the chat history", actor)
	case "phone_call":
		return fmt.Sprintf("%s made a call", actor)
	case "missed_call":
		return fmt.Sprintf("Missed call from %s", actor)
	default:
		return fmt.Sprintf("%s performed action: %s", actor, msg.Action)
	}
}

// ReplyPreviewText возвращает короткий предпросмотр исходного сообщения
// для строки ответа. Для сообщения без текста подбирается подпись по
// типу вложения.
func ReplyPreviewText(original *domain.Message, maxLength int) string {
	if original == nil {
		return "Original message not found"
	}
	// Меньше четырех рун не хватает даже на многоточие.
	if maxLength < 4 {
		maxLength = defaultReplyPreviewLength
	}

	text := original.PlainText()
	if text == "" {
		if original.HasMedia() {
			switch original.MediaType {
			case "photo":
				return "Photo"
			case "video", "video_file":
				return "Video"
			case "sticker":
				return "Sticker"
			case "voice_message":
				return "Voice message"
			case "video_message":
				return "Video message"
			case "animation":
				return "GIF"
			default:
				return "Media"
			}
		}
		return "Message"
	}

	// Обрезка по рунам, чтобы не разрезать многобайтовый символ.
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength-3]) + "..."
}

// MediaInfo собирает сведения о вложении сообщения для предпросмотра.
// Для сообщения без вложения возвращается nil.
func MediaInfo(msg domain.Message) *domain.MediaInfo {
	if !msg.HasMedia() {
		return nil
	}

	info := &domain.MediaInfo{
		ThumbnailPath: msg.Thumbnail,
		Width:         msg.Width,
		Height:        msg.Height,
		FileSize:      msg.FileSize,
		Duration:      msg.DurationSeconds,
		StickerEmoji:  msg.StickerEmoji,
		MimeType:      msg.MimeType,
	}

	switch {
	case msg.Photo != "":
		info.Type = "photo"
		info.FilePath = msg.Photo
	case msg.MediaType != "":
		info.Type = msg.MediaType
		info.FilePath = msg.File
	default:
		info.Type = "file"
		info.FilePath = msg.File
	}

	return info
}

// FormatFileSize возвращает размер в ближайшей читаемой единице.
// Нулевой размер дает пустую строку.
func FormatFileSize(sizeBytes int64) string {
	if sizeBytes == 0 {
		return ""
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(sizeBytes)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, units[unit])
}

// FormatDuration возвращает длительность вложения в формате MM:SS,
// а при часах - HH:MM:SS. Нулевая длительность дает пустую строку.
func FormatDuration(seconds int) string {
	if seconds == 0 {
		return ""
	}

	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
