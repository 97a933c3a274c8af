package services

import (
	"strings"

	"telegram-chat-viewer/internal/domain"
)

// SearchMessages возвращает сообщения, текст или отправитель которых
// содержит искомую подстроку без учета регистра. Порядок результатов
// совпадает с порядком документа.
func SearchMessages(messages []domain.Message, term string) []domain.Message {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	lower := strings.ToLower(term)

	var results []domain.Message
	for _, msg := range messages {
		if strings.Contains(strings.ToLower(msg.PlainText()), lower) ||
			strings.Contains(strings.ToLower(msg.DisplaySender()), lower) {
			results = append(results, msg)
		}
	}
	return results
}

// FindOriginalMessage находит сообщение по идентификатору для построения
// предпросмотра ответа. Возвращает nil, если сообщение не найдено.
func FindOriginalMessage(messages []domain.Message, replyToID int) *domain.Message {
	for i := range messages {
		if messages[i].ID == replyToID {
			return &messages[i]
		}
	}
	return nil
}
