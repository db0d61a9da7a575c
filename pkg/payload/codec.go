package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTrailingData 表示顶层值之后还有多余内容。
var ErrTrailingData = errors.New("payload: unexpected data after top-level value")

// Parse 将 JSON 文本解析为 Value，映射保留键的出现顺序，数字保留原始字面量。
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return decodeList(dec)
		case '{':
			return decodeMap(dec)
		}
		return Value{}, fmt.Errorf("payload: unexpected delimiter %q", rune(t))
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("payload: unexpected token %T", tok)
}

func decodeList(dec *json.Decoder) (Value, error) {
	items := []Value{}
	for dec.More() {
		item, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	// 消费 ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return List(items...), nil
}

func decodeMap(dec *json.Decoder) (Value, error) {
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("payload: object key must be a string, got %T", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: val})
	}
	// 消费 '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Map(fields...), nil
}

// MarshalJSON 按出现顺序输出映射的键。
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return writeString(buf, v.str)
	case KindNumber:
		if v.num == "" {
			buf.WriteString("0")
			return nil
		}
		buf.WriteString(v.num.String())
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("payload: unknown kind %d", v.kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
