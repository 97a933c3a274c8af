package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

// ErrStructural - фатальная для всей загрузки ошибка: корневой JSON
// не разбирается или не соответствует ни одной из принимаемых форм.
var ErrStructural = errors.New("недопустимая структура файла экспорта")

// DefaultChatName используется, когда в документе нет свойства name.
const DefaultChatName = "Imported Chat"

// defaultScanBufferSize - размер буфера потокового токенного ридера.
const defaultScanBufferSize = 65536

// ScanResult - итог структурного прохода по файлу экспорта.
type ScanResult struct {
	ChatName     string
	MessageCount int
	// Диапазон date_unixtime по всем сообщениям; нули, если поле не встречалось.
	FirstUnix int64
	LastUnix  int64
}

// FileSegment описывает участок массива сообщений для одного воркера:
// полуинтервал индексов [Start, End) и число сообщений в нем.
// Сегменты создаются при разбиении и не переживают вызов загрузки.
type FileSegment struct {
	Start        int
	End          int
	MessageCount int
}

// minSegmentMessages - нижняя граница размера сегмента: более мелкое
// разбиение не окупает накладные расходы параллельного пути.
const minSegmentMessages = 1000

// StructuralScanner выполняет один прямой проход по JSON-токенам,
// отслеживая вложенность и принадлежность массиву сообщений, без
// материализации содержимого записей.
//
// Принимаются две формы корня: объект со свойством messages и голый
// массив записей. Форма определяется по первому токену, а не объявляется.
type StructuralScanner struct {
	bufSize int
}

// NewStructuralScanner создает новый экземпляр StructuralScanner.
func NewStructuralScanner() *StructuralScanner {
	return &StructuralScanner{bufSize: defaultScanBufferSize}
}

// Scan извлекает имя чата, число сообщений и диапазон отметок времени.
// Имя чата - первое строковое свойство name на глубине 1 документа.
func (s *StructuralScanner) Scan(r io.Reader) (*ScanResult, error) {
	dec := jx.Decode(r, s.bufSize)
	res := &ScanResult{ChatName: DefaultChatName}

	switch dec.Next() {
	case jx.Object:
		sawMessages := false
		nameSet := false
		err := dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
			switch string(key) {
			case "name":
				if !nameSet && dec.Next() == jx.String {
					name, err := dec.Str()
					if err != nil {
						return err
					}
					res.ChatName = name
					nameSet = true
					return nil
				}
				return dec.Skip()
			case "messages":
				if dec.Next() != jx.Array {
					return fmt.Errorf("%w: свойство messages не является массивом", ErrStructural)
				}
				sawMessages = true
				return s.scanMessages(dec, res)
			default:
				return dec.Skip()
			}
		})
		if err != nil {
			return nil, wrapStructural(err)
		}
		if !sawMessages {
			return nil, fmt.Errorf("%w: корневой объект не содержит массива messages", ErrStructural)
		}
	case jx.Array:
		// Голый массив: весь документ трактуется как последовательность сообщений.
		if err := s.scanMessages(dec, res); err != nil {
			return nil, wrapStructural(err)
		}
	default:
		return nil, fmt.Errorf("%w: ожидался объект или массив в корне документа", ErrStructural)
	}

	return res, nil
}

// scanMessages считает объекты массива сообщений и собирает диапазон
// date_unixtime, не декодируя остальные поля.
func (s *StructuralScanner) scanMessages(dec *jx.Decoder, res *ScanResult) error {
	return dec.Arr(func(dec *jx.Decoder) error {
		if dec.Next() != jx.Object {
			return dec.Skip()
		}
		res.MessageCount++
		return dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
			if string(key) != "date_unixtime" {
				return dec.Skip()
			}
			v, err := decodeUnixtime(dec)
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			if res.FirstUnix == 0 || v < res.FirstUnix {
				res.FirstUnix = v
			}
			if v > res.LastUnix {
				res.LastUnix = v
			}
			return nil
		})
	})
}

// CollectRaw выделяет сырые байтовые срезы всех записей массива сообщений
// без их декодирования. Срезы ссылаются на data и не копируются, поэтому
// data обязан оставаться неизменным до конца работы с результатом.
func (s *StructuralScanner) CollectRaw(data []byte) (string, []jx.Raw, error) {
	dec := jx.DecodeBytes(data)
	chatName := DefaultChatName
	var elems []jx.Raw

	collect := func(dec *jx.Decoder) error {
		return dec.Arr(func(dec *jx.Decoder) error {
			raw, err := dec.Raw()
			if err != nil {
				return err
			}
			if raw.Type() == jx.Object {
				elems = append(elems, raw)
			}
			return nil
		})
	}

	switch dec.Next() {
	case jx.Object:
		sawMessages := false
		nameSet := false
		err := dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
			switch string(key) {
			case "name":
				if !nameSet && dec.Next() == jx.String {
					name, err := dec.Str()
					if err != nil {
						return err
					}
					chatName = name
					nameSet = true
					return nil
				}
				return dec.Skip()
			case "messages":
				if dec.Next() != jx.Array {
					return fmt.Errorf("%w: свойство messages не является массивом", ErrStructural)
				}
				sawMessages = true
				return collect(dec)
			default:
				return dec.Skip()
			}
		})
		if err != nil {
			return "", nil, wrapStructural(err)
		}
		if !sawMessages {
			return "", nil, fmt.Errorf("%w: корневой объект не содержит массива messages", ErrStructural)
		}
	case jx.Array:
		if err := collect(dec); err != nil {
			return "", nil, wrapStructural(err)
		}
	default:
		return "", nil, fmt.Errorf("%w: ожидался объект или массив в корне документа", ErrStructural)
	}

	return chatName, elems, nil
}

// Partition делит последовательность из total сообщений на сегменты
// примерно равного размера для workers воркеров. Размер сегмента не
// опускается ниже minSegmentMessages, поэтому сегментов может получиться
// меньше, чем воркеров.
func (s *StructuralScanner) Partition(total, workers int) []FileSegment {
	if total <= 0 || workers <= 0 {
		return nil
	}
	size := (total + workers - 1) / workers
	if size < minSegmentMessages {
		size = minSegmentMessages
	}
	var segments []FileSegment
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		segments = append(segments, FileSegment{
			Start:        start,
			End:          end,
			MessageCount: end - start,
		})
	}
	return segments
}

// wrapStructural помечает ошибку токенного ридера как структурную,
// если она еще не помечена.
func wrapStructural(err error) error {
	if errors.Is(err, ErrStructural) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStructural, err)
}
