package parser

import (
	"testing"

	"telegram-chat-viewer/internal/domain"
)

func TestDecodeMessage(t *testing.T) {
	dec := NewRecordDecoder()

	t.Run("декодирование обычного сообщения", func(t *testing.T) {
		raw := []byte(`{
			"id": 42,
			"type": "message",
			"date": "2023-05-15T10:30:00",
			"date_unixtime": "1684146600",
			"from": "Alice",
			"from_id": "user123",
			"text": "Привет!"
		}`)

		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.ID != 42 {
			t.Errorf("Ожидался ID 42, получен %d", msg.ID)
		}
		if msg.From != "Alice" {
			t.Errorf("Ожидался from 'Alice', получен %q", msg.From)
		}
		if msg.DateUnixtime != 1684146600 {
			t.Errorf("Ожидался unixtime 1684146600, получен %d", msg.DateUnixtime)
		}
		if msg.Text.Kind != domain.TextPlain || msg.PlainText() != "Привет!" {
			t.Errorf("Ожидался plain-текст 'Привет!', получено %+v", msg.Text)
		}
	})

	t.Run("текст-массив дает стилизованный вариант", func(t *testing.T) {
		raw := []byte(`{
			"id": 1,
			"text": ["см. ", {"type": "link", "text": "тут", "href": "https://example.com"}, "!"]
		}`)

		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.Text.Kind != domain.TextStyled {
			t.Fatalf("Ожидался стилизованный вариант, получен %v", msg.Text.Kind)
		}
		runs := msg.Text.Runs
		if len(runs) != 3 {
			t.Fatalf("Ожидалось 3 фрагмента, получено %d", len(runs))
		}
		if runs[0].Type != domain.StylePlain || runs[0].Text != "см. " {
			t.Errorf("Строковый элемент должен стать plain-фрагментом, получено %+v", runs[0])
		}
		if runs[1].Type != domain.StyleLink || runs[1].Href != "https://example.com" {
			t.Errorf("Ожидался link-фрагмент с href, получено %+v", runs[1])
		}
		if msg.PlainText() != "см. тут!" {
			t.Errorf("Ожидалось 'см. тут!', получено %q", msg.PlainText())
		}
	})

	t.Run("неизвестные поля игнорируются", func(t *testing.T) {
		raw := []byte(`{"id": 7, "text": "ok", "some_future_field": {"nested": [1, 2, 3]}}`)
		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.ID != 7 || msg.PlainText() != "ok" {
			t.Errorf("Известные поля потеряны: %+v", msg)
		}
	})

	t.Run("null в текстовом поле дает пустую строку", func(t *testing.T) {
		raw := []byte(`{"id": 1, "from": null, "text": null}`)
		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.From != "" || msg.PlainText() != "" {
			t.Errorf("Ожидались пустые значения, получено %+v", msg)
		}
	})

	t.Run("тип по умолчанию - message", func(t *testing.T) {
		msg, err := dec.DecodeMessage([]byte(`{"id": 1, "text": "x"}`))
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.Type != "message" {
			t.Errorf("Ожидался тип 'message', получен %q", msg.Type)
		}
	})

	t.Run("служебное сообщение с участниками", func(t *testing.T) {
		raw := []byte(`{
			"id": 5,
			"type": "service",
			"actor": "Alice",
			"action": "invite_members",
			"members": ["Bob", "Carol"]
		}`)
		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if !msg.IsServiceMessage() {
			t.Error("Ожидалось служебное сообщение")
		}
		if len(msg.Members) != 2 || msg.Members[0] != "Bob" {
			t.Errorf("Ожидались участники [Bob Carol], получено %v", msg.Members)
		}
	})

	t.Run("нечисловая строка в числовом поле не отбрасывает запись", func(t *testing.T) {
		msg, err := dec.DecodeMessage([]byte(`{"id": "abc", "text": "x"}`))
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if msg.ID != 0 {
			t.Errorf("Ожидался ID 0, получен %d", msg.ID)
		}
	})

	t.Run("не-объект дает ошибку", func(t *testing.T) {
		if _, err := dec.DecodeMessage([]byte(`"строка"`)); err == nil {
			t.Error("Ожидалась ошибка для записи не-объекта")
		}
	})

	t.Run("поля вложения", func(t *testing.T) {
		raw := []byte(`{
			"id": 9,
			"file": "files/video.mp4",
			"media_type": "video_file",
			"mime_type": "video/mp4",
			"duration_seconds": 125,
			"width": 1280,
			"height": 720,
			"file_size": 10485760
		}`)
		msg, err := dec.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if !msg.HasMedia() {
			t.Error("Ожидалось вложение")
		}
		if msg.DurationSeconds != 125 || msg.FileSize != 10485760 {
			t.Errorf("Поля вложения потеряны: %+v", msg)
		}
	})
}
