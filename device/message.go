package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bemasher/rtl5800/parse"
)

// A Value is one interpreted field of a status byte.
type Value struct {
	Name  string
	Value string
}

// Message is a decoded status report from one sensor.
type Message struct {
	ID     uint32
	Status uint8
	Type   string
	Fields []Value
}

// Decode interprets a validated frame's status byte with t's field table.
func Decode(f parse.Frame, t Type) Message {
	msg := Message{
		ID:     f.DeviceID(),
		Status: f.Status(),
		Type:   t.Name,
	}

	for _, field := range t.Fields {
		msg.Fields = append(msg.Fields, Value{field.Name, field.Value(msg.Status)})
	}

	return msg
}

func (msg Message) DeviceID() uint32 {
	return msg.ID
}

func (msg Message) StatusByte() uint8 {
	return msg.Status
}

func (msg Message) TypeName() string {
	return msg.Type
}

// Field returns the named field's value.
func (msg Message) Field(name string) (string, bool) {
	for _, v := range msg.Fields {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the payload with the id and raw byte first, followed by
// the type's fields in table order.
func (msg Message) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	write := func(key, value string) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	buf.WriteByte('{')
	if err := write("device_id", parse.FormatID(msg.ID)); err != nil {
		return nil, err
	}
	if err := write("b", fmt.Sprintf("%02X", msg.Status)); err != nil {
		return nil, err
	}
	for _, v := range msg.Fields {
		if err := write(v.Name, v.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (msg Message) String() string {
	fields := make([]string, len(msg.Fields))
	for idx, v := range msg.Fields {
		fields[idx] = v.Name + ":" + v.Value
	}
	if len(fields) == 0 {
		return fmt.Sprintf("{ID:%s B:%02X}", parse.FormatID(msg.ID), msg.Status)
	}
	return fmt.Sprintf("{ID:%s B:%02X %s}", parse.FormatID(msg.ID), msg.Status, strings.Join(fields, " "))
}

func (msg Message) Record() (r []string) {
	r = append(r, parse.FormatID(msg.ID))
	r = append(r, fmt.Sprintf("%02X", msg.Status))
	for _, v := range msg.Fields {
		r = append(r, v.Name+"="+v.Value)
	}
	return
}
