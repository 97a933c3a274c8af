package parser

import (
	"fmt"
	"strconv"

	"github.com/go-faster/jx"

	"telegram-chat-viewer/internal/domain"
	"telegram-chat-viewer/internal/ports"
)

// JxRecordDecoder реализует интерфейс RecordDecoder поверх токенного
// JSON-ридера. Декодер терпим к отсутствующим и альтернативным полям:
// запись отбрасывается только если сам объект не разбирается.
type JxRecordDecoder struct{}

// NewRecordDecoder создает новый экземпляр JxRecordDecoder.
func NewRecordDecoder() ports.RecordDecoder {
	return &JxRecordDecoder{}
}

// DecodeMessage преобразует один JSON-объект записи в сообщение.
// Функция чистая: без побочных эффектов и без общего состояния.
func (p *JxRecordDecoder) DecodeMessage(raw []byte) (domain.Message, error) {
	dec := jx.DecodeBytes(raw)
	if dec.Next() != jx.Object {
		return domain.Message{}, fmt.Errorf("запись не является JSON-объектом")
	}

	var msg domain.Message
	if err := dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := decodeFlexibleInt(dec)
			if err != nil {
				return err
			}
			msg.ID = v
			return nil
		case "type":
			return decodeStringInto(dec, &msg.Type)
		case "date":
			return decodeStringInto(dec, &msg.Date)
		case "date_unixtime":
			v, err := decodeUnixtime(dec)
			if err != nil {
				return err
			}
			msg.DateUnixtime = v
			return nil
		case "from":
			return decodeStringInto(dec, &msg.From)
		case "from_id":
			return decodeStringInto(dec, &msg.FromID)
		case "text":
			text, err := decodeText(dec)
			if err != nil {
				return err
			}
			msg.Text = text
			return nil
		case "reply_to_message_id":
			v, err := decodeFlexibleInt(dec)
			if err != nil {
				return err
			}
			msg.ReplyToMessageID = v
			return nil
		case "forwarded_from":
			return decodeStringInto(dec, &msg.ForwardedFrom)
		case "photo":
			return decodeStringInto(dec, &msg.Photo)
		case "file":
			return decodeStringInto(dec, &msg.File)
		case "thumbnail":
			return decodeStringInto(dec, &msg.Thumbnail)
		case "media_type":
			return decodeStringInto(dec, &msg.MediaType)
		case "mime_type":
			return decodeStringInto(dec, &msg.MimeType)
		case "duration_seconds":
			v, err := decodeFlexibleInt(dec)
			if err != nil {
				return err
			}
			msg.DurationSeconds = v
			return nil
		case "width":
			v, err := decodeFlexibleInt(dec)
			if err != nil {
				return err
			}
			msg.Width = v
			return nil
		case "height":
			v, err := decodeFlexibleInt(dec)
			if err != nil {
				return err
			}
			msg.Height = v
			return nil
		case "file_size":
			v, err := decodeUnixtime(dec)
			if err != nil {
				return err
			}
			msg.FileSize = v
			return nil
		case "sticker_emoji":
			return decodeStringInto(dec, &msg.StickerEmoji)
		case "actor":
			return decodeStringInto(dec, &msg.Actor)
		case "actor_id":
			return decodeStringInto(dec, &msg.ActorID)
		case "action":
			return decodeStringInto(dec, &msg.Action)
		case "title":
			return decodeStringInto(dec, &msg.Title)
		case "members":
			members, err := decodeMembers(dec)
			if err != nil {
				return err
			}
			msg.Members = members
			return nil
		default:
			return dec.Skip()
		}
	}); err != nil {
		return domain.Message{}, fmt.Errorf("не удалось декодировать запись сообщения: %w", err)
	}

	if msg.Type == "" {
		msg.Type = "message"
	}
	return msg, nil
}

// decodeText выбирает вариант объединения по форме токена:
// строка дает TextPlain, массив - TextStyled.
func decodeText(dec *jx.Decoder) (domain.MessageText, error) {
	switch dec.Next() {
	case jx.String:
		s, err := dec.Str()
		if err != nil {
			return domain.MessageText{}, err
		}
		return domain.MessageText{Kind: domain.TextPlain, Plain: s}, nil
	case jx.Array:
		var runs []domain.TextRun
		if err := dec.Arr(func(dec *jx.Decoder) error {
			switch dec.Next() {
			case jx.String:
				s, err := dec.Str()
				if err != nil {
					return err
				}
				runs = append(runs, domain.TextRun{Text: s, Type: domain.StylePlain})
				return nil
			case jx.Object:
				run := domain.TextRun{Type: domain.StylePlain}
				if err := dec.ObjBytes(func(dec *jx.Decoder, key []byte) error {
					switch string(key) {
					case "text":
						return decodeStringInto(dec, &run.Text)
					case "type":
						return decodeStringInto(dec, &run.Type)
					case "href":
						return decodeStringInto(dec, &run.Href)
					default:
						return dec.Skip()
					}
				}); err != nil {
					return err
				}
				if run.Type == "" {
					run.Type = domain.StylePlain
				}
				runs = append(runs, run)
				return nil
			default:
				return dec.Skip()
			}
		}); err != nil {
			return domain.MessageText{}, err
		}
		return domain.MessageText{Kind: domain.TextStyled, Runs: runs}, nil
	case jx.Null:
		if err := dec.Null(); err != nil {
			return domain.MessageText{}, err
		}
		return domain.MessageText{Kind: domain.TextPlain}, nil
	default:
		// Прочие скаляры приводятся к строковому представлению, как в исходном формате.
		raw, err := dec.Raw()
		if err != nil {
			return domain.MessageText{}, err
		}
		return domain.MessageText{Kind: domain.TextPlain, Plain: raw.String()}, nil
	}
}

// decodeStringInto читает строковое значение; null и значения другого
// типа дают пустую строку вместо ошибки.
func decodeStringInto(dec *jx.Decoder, dst *string) error {
	switch dec.Next() {
	case jx.String:
		s, err := dec.Str()
		if err != nil {
			return err
		}
		*dst = s
		return nil
	case jx.Null:
		return dec.Null()
	default:
		return dec.Skip()
	}
}

// decodeFlexibleInt читает целое, записанное числом или строкой.
func decodeFlexibleInt(dec *jx.Decoder) (int, error) {
	switch dec.Next() {
	case jx.Number:
		return dec.Int()
	case jx.String:
		s, err := dec.Str()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			// Нечисловая строка в числовом поле не делает запись непригодной.
			return 0, nil
		}
		return v, nil
	case jx.Null:
		return 0, dec.Null()
	default:
		return 0, dec.Skip()
	}
}

// decodeUnixtime читает 64-битное целое: в экспорте date_unixtime
// и file_size встречаются и числом, и строкой.
func decodeUnixtime(dec *jx.Decoder) (int64, error) {
	switch dec.Next() {
	case jx.Number:
		return dec.Int64()
	case jx.String:
		s, err := dec.Str()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, nil
		}
		return v, nil
	case jx.Null:
		return 0, dec.Null()
	default:
		return 0, dec.Skip()
	}
}

// decodeMembers читает список имен участников служебного сообщения,
// пропуская элементы нестрокового типа.
func decodeMembers(dec *jx.Decoder) ([]string, error) {
	if dec.Next() != jx.Array {
		return nil, dec.Skip()
	}
	var members []string
	if err := dec.Arr(func(dec *jx.Decoder) error {
		if dec.Next() != jx.String {
			return dec.Skip()
		}
		s, err := dec.Str()
		if err != nil {
			return err
		}
		members = append(members, s)
		return nil
	}); err != nil {
		return nil, err
	}
	return members, nil
}
