package domain

// StreamingLoad - ленивая последовательность порций сообщений.
// Последовательность однопроходная и не перезапускаемая: порции читаются
// из канала Chunks в порядке документа, последняя порция может быть короче.
// Потребитель вправе бросить чтение в любой момент между порциями,
// отменив контекст, переданный при создании последовательности.
type StreamingLoad struct {
	// ChatName - имя чата, определенное структурным проходом.
	ChatName string
	// TotalMessages - оценка общего числа сообщений из структурного прохода.
	TotalMessages int
	// Chunks закрывается производителем после последней порции.
	Chunks <-chan []Message

	errc <-chan error
	err  error
	done bool
}

// NewStreamingLoad собирает последовательность из канала порций и канала
// финальной ошибки. В errc производитель кладет ровно одно значение
// (возможно nil) после закрытия канала порций.
func NewStreamingLoad(chatName string, total int, chunks <-chan []Message, errc <-chan error) *StreamingLoad {
	return &StreamingLoad{
		ChatName:      chatName,
		TotalMessages: total,
		Chunks:        chunks,
		errc:          errc,
	}
}

// Err возвращает ошибку, завершившую поток.
// Вызывать только после того, как канал Chunks закрыт или брошен.
func (s *StreamingLoad) Err() error {
	if !s.done {
		s.err = <-s.errc
		s.done = true
	}
	return s.err
}
