package model

// KeywordMode selects how filter keywords are interpreted.
type KeywordMode string

const (
	KeywordModePlain KeywordMode = "plain"
	KeywordModeRegex KeywordMode = "regex"
)

// Defaults applied when a remote document omits a display attribute.
const (
	DefaultChannelID   = "main"
	DefaultChannelName = "主频道"
	DefaultNickname    = "NONAME"
	DefaultColor       = "#ffffff"
)

// Message is the canonical store-resident representation of one remote document.
// The id is the document's full resource path and is unique across rooms.
type Message struct {
	ID          string                 `json:"id"                    gorm:"primaryKey"`
	RoomID      string                 `json:"roomId"                gorm:"not null;index;index:idx_messages_room_ts,priority:1;index:idx_messages_room_channel,priority:1;index:idx_messages_room_nickname,priority:1"`
	ChannelID   string                 `json:"channelId"             gorm:"not null;index;index:idx_messages_room_channel,priority:2"`
	ChannelName string                 `json:"channelName"           gorm:"not null;index"`
	Nickname    string                 `json:"nickname"              gorm:"not null;index;index:idx_messages_room_nickname,priority:2"`
	Color       string                 `json:"color"                 gorm:"not null"`
	IconURL     string                 `json:"iconUrl"`
	Text        string                 `json:"text"`
	DiceResult  string                 `json:"diceResult"`
	IsDice      bool                   `json:"isDice"                gorm:"not null;index"`
	CommandID   *string                `json:"commandId"             gorm:"index"`
	CommandInfo map[string]interface{} `json:"commandInfo"           gorm:"type:text;serializer:json"`
	RawMsgID    *string                `json:"rawMsgId"`
	TimestampMs int64                  `json:"timestampMs"           gorm:"not null;index;index:idx_messages_room_ts,priority:2"`
	IMUserID    string                 `json:"imUserId"`
	UniformID   string                 `json:"uniformId"`
}

func (Message) TableName() string { return "messages" }

// Room tracks sync metadata for one chat session.
type Room struct {
	RoomID       string `json:"roomId"       gorm:"primaryKey"`
	Title        string `json:"title"        gorm:"not null;index"`
	LastSyncedAt int64  `json:"lastSyncedAt" gorm:"not null;index"`
	MessageCount int64  `json:"messageCount" gorm:"not null;index"`
	Note         string `json:"note"`
}

func (Room) TableName() string { return "rooms" }

// FilterSpec narrows a room query. Zero value matches everything.
// Start/End are inclusive epoch-millisecond bounds; Channels holds channel
// ids and Roles holds nicknames, empty sets impose no restriction; Keywords
// are ANDed.
type FilterSpec struct {
	Start         *int64      `json:"start"         form:"start"`
	End           *int64      `json:"end"           form:"end"`
	Channels      []string    `json:"channels"      form:"channels"`
	Roles         []string    `json:"roles"         form:"roles"`
	Keywords      []string    `json:"keywords"      form:"keywords"`
	KeywordMode   KeywordMode `json:"keywordMode"   form:"keywordMode"`
	CaseSensitive bool        `json:"caseSensitive" form:"caseSensitive"`
}

// ImageStatus is the lifecycle state of a cached image entry.
type ImageStatus string

const (
	// ImageStatusEmbedded means the entry holds a self-contained data URI.
	ImageStatusEmbedded ImageStatus = "embedded"
	// ImageStatusAbsent means the source returned 404; treated as
	// intentionally missing and never fetched again.
	ImageStatusAbsent ImageStatus = "absent"
	// ImageStatusFallback means the fetch failed for another reason; the
	// original URL is passed through unchanged.
	ImageStatusFallback ImageStatus = "fallback"
)

// ImageEntry is the resolved cache state for one source URL.
type ImageEntry struct {
	Status ImageStatus `json:"status"`
	// Value is the data URI for embedded entries, empty for absent entries,
	// and the original URL for fallback entries.
	Value string `json:"value"`
	// Attempts counts fetches performed for this URL.
	Attempts int `json:"attempts"`
}

// Resolved returns the display source for the entry.
func (e ImageEntry) Resolved() string { return e.Value }

// Terminal reports whether the entry should not be fetched again.
// Fallback entries stay retryable until the attempt budget is exhausted.
func (e ImageEntry) Terminal(maxAttempts int) bool {
	switch e.Status {
	case ImageStatusEmbedded, ImageStatusAbsent:
		return true
	case ImageStatusFallback:
		return e.Attempts >= maxAttempts
	default:
		return false
	}
}

// SyncProgress is emitted after each committed sync page.
type SyncProgress struct {
	FetchedCount int    `json:"fetchedCount"`
	Message      string `json:"message"`
}

// SyncState is the per-room sync machine state.
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateFailed  SyncState = "failed"
)
