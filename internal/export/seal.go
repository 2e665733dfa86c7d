package export

import "github.com/kagangtuya-star/cclog-plus/internal/model"

// InterchangeVersion is the format version written in exported documents.
const InterchangeVersion = 105

// Interchange is the portable log format consumed by downstream bots.
type Interchange struct {
	Version int               `json:"version"`
	Items   []InterchangeItem `json:"items"`
}

// InterchangeItem is one message in the interchange format. Time is epoch
// seconds; Message folds the dice result into the body text.
type InterchangeItem struct {
	Nickname    string                 `json:"nickname"`
	IMUserID    string                 `json:"imUserId"`
	UniformID   string                 `json:"uniformId"`
	Time        int64                  `json:"time"`
	Message     string                 `json:"message"`
	IsDice      bool                   `json:"isDice"`
	CommandID   *string                `json:"commandId"`
	CommandInfo map[string]interface{} `json:"commandInfo"`
	RawMsgID    *string                `json:"rawMsgId"`
}

// ToInterchange converts messages to the interchange format, preserving order.
func ToInterchange(messages []model.Message) Interchange {
	items := make([]InterchangeItem, len(messages))
	for i, m := range messages {
		body := m.Text
		if m.DiceResult != "" {
			body = m.Text + " " + m.DiceResult
		}
		items[i] = InterchangeItem{
			Nickname:    m.Nickname,
			IMUserID:    m.IMUserID,
			UniformID:   m.UniformID,
			Time:        m.TimestampMs / 1000,
			Message:     body,
			IsDice:      m.IsDice,
			CommandID:   m.CommandID,
			CommandInfo: m.CommandInfo,
			RawMsgID:    m.RawMsgID,
		}
	}
	return Interchange{Version: InterchangeVersion, Items: items}
}
