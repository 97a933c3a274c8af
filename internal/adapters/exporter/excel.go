package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"telegram-chat-viewer/internal/core/services"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/ports"
)

// ExcelExporter реализует интерфейс Exporter для выгрузки чата в XLSX.
// Строки пишутся потоковым писателем: выгрузка большого чата не требует
// материализации всей книги в памяти.
type ExcelExporter struct {
	filePath string
}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter(filePath string) ports.Exporter {
	return &ExcelExporter{filePath: filePath}
}

// Export записывает сообщения чата в XLSX-файл в порядке документа.
func (e *ExcelExporter) Export(chatName string, messages []domain.Message) error {
	if e.filePath == "" {
		return fmt.Errorf("не указан путь к файлу выгрузки")
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("не удалось создать потоковый писатель: %w", err)
	}

	header := []interface{}{"ID", "Date", "Sender", "Type", "Text", "Media", "File Size", "Duration", "Reply To", "Forwarded From"}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("не удалось записать заголовок: %w", err)
	}

	for i, msg := range messages {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("не удалось вычислить адрес ячейки: %w", err)
		}

		text := msg.PlainText()
		if msg.IsServiceMessage() {
			text = services.FormatServiceMessage(msg)
		}

		var mediaType, fileSize, duration string
		if info := services.MediaInfo(msg); info != nil {
			mediaType = info.Type
			fileSize = services.FormatFileSize(info.FileSize)
			duration = services.FormatDuration(info.Duration)
		}

		var date string
		if ts := msg.ParsedDate(); !ts.IsZero() {
			date = ts.Format("2006-01-02 15:04:05")
		}

		var replyTo interface{}
		if msg.IsReply() {
			replyTo = msg.ReplyToMessageID
		}

		row := []interface{}{
			msg.ID,
			date,
			msg.DisplaySender(),
			msg.Type,
			text,
			mediaType,
			fileSize,
			duration,
			replyTo,
			msg.ForwardedFrom,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("не удалось записать строку %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("не удалось завершить потоковую запись: %w", err)
	}

	if err := f.SetSheetName(sheet, sanitizeSheetName(chatName)); err != nil {
		return fmt.Errorf("не удалось переименовать лист: %w", err)
	}

	if err := f.SaveAs(e.filePath); err != nil {
		return fmt.Errorf("не удалось сохранить файл %s: %w", e.filePath, err)
	}
	return nil
}

// sanitizeSheetName приводит имя чата к допустимому имени листа:
// не длиннее 31 символа и без запрещенных знаков.
func sanitizeSheetName(name string) string {
	if name == "" {
		return "Chat"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
		if len(out) == 31 {
			break
		}
	}
	return string(out)
}
