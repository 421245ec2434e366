package hub

import "encoding/json"

// Inbound event names.
const (
	EventIdentify      = "identify"
	EventJoinRoom      = "joinRoom"
	EventSendMessage   = "sendMessage"
	EventDeleteMessage = "deleteMessage"
)

// Outbound event names.
const (
	EventPresenceSnapshot = "presenceSnapshot"
	EventRoomHistory      = "roomHistory"
	EventMessageReceived  = "messageReceived"
	EventMessageDeleted   = "messageDeleted"
)

// Envelope frames every event on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// IdentifyPayload binds a connection to a user.
type IdentifyPayload struct {
	UserID string `json:"userId"`
}

// JoinRoomPayload subscribes the connection to the room shared with another
// user.
type JoinRoomPayload struct {
	SelfID  string `json:"selfId"`
	OtherID string `json:"otherId"`
}

// SendMessagePayload carries a new message. SenderName is a display-name
// snapshot taken at send time; it is stored as-is and never re-resolved.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
	MediaRef   string `json:"mediaRef,omitempty"`
}

// DeleteMessagePayload requests deletion of a message by id. The participant
// ids are only used to derive the room for the broadcast.
type DeleteMessagePayload struct {
	MessageID  uint   `json:"messageId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
