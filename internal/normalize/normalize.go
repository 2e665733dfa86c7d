// Package normalize converts raw remote documents into canonical messages.
// Every extraction degrades to a fixed default instead of failing: a malformed
// document still yields a usable Message.
package normalize

import (
	"strings"
	"time"

	"github.com/kagangtuya-star/cclog-plus/internal/model"
)

// Value is one field of a remote document. Exactly one of the members is set;
// the document API encodes scalars and nested maps this way.
type Value struct {
	StringValue    string      `json:"stringValue,omitempty"`
	TimestampValue string      `json:"timestampValue,omitempty"`
	MapValue       *MapValue   `json:"mapValue,omitempty"`
	IntegerValue   string      `json:"integerValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
}

// MapValue is a nested field bag.
type MapValue struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

// ArrayValue is a list of values.
type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

// Document is one remote chat-log document. Name is a path-like resource id
// that encodes the room id; CreateTime is the server creation timestamp.
type Document struct {
	Name       string           `json:"name"`
	CreateTime string           `json:"createTime"`
	Fields     map[string]Value `json:"fields,omitempty"`
}

// stringAt walks a path of alternating field names through nested map values
// and returns the stringValue at the leaf, or fallback if any hop is missing.
func stringAt(fields map[string]Value, path []string, fallback string) string {
	for i, key := range path {
		v, ok := fields[key]
		if !ok {
			return fallback
		}
		if i == len(path)-1 {
			if v.StringValue == "" {
				return fallback
			}
			return v.StringValue
		}
		if v.MapValue == nil {
			return fallback
		}
		fields = v.MapValue.Fields
	}
	return fallback
}

// RoomIDFromName extracts the room id segment from a document resource name
// (.../documents/rooms/<roomId>/messages/<messageId>).
func RoomIDFromName(name string) string {
	parts := strings.Split(name, "/")
	if len(parts) > 6 {
		return parts[6]
	}
	return ""
}

var dicePath = []string{"extend", "roll", "result"}

// Normalize converts a remote document into a canonical Message. It is total:
// missing or malformed fields fall back to documented defaults and an
// unparsable timestamp falls back to the current time.
func Normalize(doc Document) model.Message {
	fields := doc.Fields
	from := stringAt(fields, []string{"from"}, "")
	diceResult := stringAt(fields, dicePath, "")

	msg := model.Message{
		ID:          doc.Name,
		RoomID:      RoomIDFromName(doc.Name),
		Nickname:    stringAt(fields, []string{"name"}, model.DefaultNickname),
		IMUserID:    from,
		UniformID:   "Seal:" + from,
		Color:       stringAt(fields, []string{"color"}, model.DefaultColor),
		ChannelID:   stringAt(fields, []string{"channel"}, model.DefaultChannelID),
		ChannelName: stringAt(fields, []string{"channelName"}, model.DefaultChannelName),
		IconURL:     stringAt(fields, []string{"iconUrl"}, ""),
		Text:        stringAt(fields, []string{"text"}, ""),
		DiceResult:  diceResult,
		IsDice:      diceResult != "",
		TimestampMs: resolveTimestamp(doc),
	}

	if id := stringAt(fields, []string{"commandId"}, ""); id != "" {
		msg.CommandID = &id
	}
	if raw := stringAt(fields, []string{"rawMsgId"}, ""); raw != "" {
		msg.RawMsgID = &raw
	}
	msg.CommandInfo = commandInfo(fields)

	return msg
}

// commandInfo flattens the roll field bag into plain string values so it
// round-trips through JSON storage and the interchange export.
func commandInfo(fields map[string]Value) map[string]interface{} {
	extend, ok := fields["extend"]
	if !ok || extend.MapValue == nil {
		return nil
	}
	roll, ok := extend.MapValue.Fields["roll"]
	if !ok || roll.MapValue == nil {
		return nil
	}
	info := make(map[string]interface{}, len(roll.MapValue.Fields))
	for k, v := range roll.MapValue.Fields {
		switch {
		case v.StringValue != "":
			info[k] = v.StringValue
		case v.BooleanValue != nil:
			info[k] = *v.BooleanValue
		case v.IntegerValue != "":
			info[k] = v.IntegerValue
		}
	}
	if len(info) == 0 {
		return nil
	}
	return info
}

// resolveTimestamp resolves the message time in order: nested createdAt field,
// the document's own createTime, then the current time.
func resolveTimestamp(doc Document) int64 {
	raw := ""
	if v, ok := doc.Fields["createdAt"]; ok {
		if v.TimestampValue != "" {
			raw = v.TimestampValue
		} else if v.StringValue != "" {
			raw = v.StringValue
		}
	}
	if raw == "" {
		raw = doc.CreateTime
	}
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UnixMilli()
		}
	}
	return time.Now().UnixMilli()
}
