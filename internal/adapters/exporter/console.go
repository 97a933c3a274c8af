// Package exporter содержит адаптеры вывода загруженного чата.
package exporter

import (
	"fmt"
	"io"
	"os"

	"telegram-chat-viewer/internal/core/services"
	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода чата в консоль.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{out: os.Stdout}
}

// NewConsoleExporterTo создает ConsoleExporter с указанным приемником вывода.
func NewConsoleExporterTo(w io.Writer) ports.Exporter {
	return &ConsoleExporter{out: w}
}

// Export выводит сообщения чата в порядке документа.
func (e *ConsoleExporter) Export(chatName string, messages []domain.Message) error {
	fmt.Fprintf(e.out, "--- %s ---\n", chatName)
	if len(messages) == 0 {
		fmt.Fprintln(e.out, "No messages found.")
		return nil
	}

	for _, msg := range messages {
		ts := msg.ParsedDate()
		stamp := "????-??-?? ??:??:??"
		if !ts.IsZero() {
			stamp = ts.Format("2006-01-02 15:04:05")
		}

		if msg.IsServiceMessage() {
			fmt.Fprintf(e.out, "[%s] * %s\n", stamp, services.FormatServiceMessage(msg))
			continue
		}

		line := fmt.Sprintf("[%s] %s: %s", stamp, msg.DisplaySender(), msg.PlainText())
		if msg.IsForwarded() {
			line += fmt.Sprintf(" (forwarded from %s)", msg.ForwardedFrom)
		}
		if info := services.MediaInfo(msg); info != nil {
			line += fmt.Sprintf(" [%s", info.Type)
			if size := services.FormatFileSize(info.FileSize); size != "" {
				line += " " + size
			}
			line += "]"
		}
		fmt.Fprintln(e.out, line)
	}

	fmt.Fprintf(e.out, "--- %d messages ---\n", len(messages))
	return nil
}
