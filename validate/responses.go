package validate

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// BaseResponse is the envelope every chat API response carries.
type BaseResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}

// Pagination holds list paging fields.
type Pagination struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// UserRef identifies the author of a message or owner of a room.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Message is a chat message.
type Message struct {
	ID          string  `json:"_id"`
	RoomID      string  `json:"rid"`
	Text        string  `json:"msg"`
	Timestamp   string  `json:"ts"`
	User        UserRef `json:"u"`
	UpdatedAt   string  `json:"_updatedAt"`
	ThreadID    string  `json:"tmid,omitempty"`
	ThreadCount int     `json:"tcount,omitempty"`
	Pinned      bool    `json:"pinned,omitempty"`
	EditedAt    string  `json:"editedAt,omitempty"`
}

// Room is a channel, group or direct conversation.
type Room struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name,omitempty"`
	DisplayName string  `json:"fname,omitempty"`
	Type        string  `json:"t"`
	Messages    int     `json:"msgs"`
	UsersCount  int     `json:"usersCount"`
	Owner       UserRef `json:"u"`
	Timestamp   string  `json:"ts"`
	ReadOnly    bool    `json:"ro,omitempty"`
	Topic       string  `json:"topic,omitempty"`
	UpdatedAt   string  `json:"_updatedAt"`
}

// MessagesResponse is returned by history and search operations.
type MessagesResponse struct {
	BaseResponse
	Pagination
	Messages []Message `json:"messages"`
}

// ChannelsResponse is returned by room listing operations.
type ChannelsResponse struct {
	BaseResponse
	Pagination
	Channels []Room `json:"channels"`
}

// SendMessageResponse is returned by message posting operations.
type SendMessageResponse struct {
	BaseResponse
	Message Message `json:"message"`
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func stringType() *jsonschema.Schema  { return &jsonschema.Schema{Type: "string"} }
func numberType() *jsonschema.Schema  { return &jsonschema.Schema{Type: "number"} }
func booleanType() *jsonschema.Schema { return &jsonschema.Schema{Type: "boolean"} }

func arrayOf(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: items}
}

// Each builder returns a fresh tree; resolved schemas must not share nodes.

func userRefSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"_id":      stringType(),
		"username": stringType(),
		"name":     stringType(),
	}, "_id", "username")
}

func messageSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"_id":        stringType(),
		"rid":        stringType(),
		"msg":        stringType(),
		"ts":         stringType(),
		"u":          userRefSchema(),
		"_updatedAt": stringType(),
		"tmid":       stringType(),
		"tcount":     numberType(),
		"pinned":     booleanType(),
		"editedAt":   stringType(),
	}, "_id", "rid", "msg", "ts", "u", "_updatedAt")
}

func roomSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"_id":        stringType(),
		"name":       stringType(),
		"fname":      stringType(),
		"t":          {Type: "string", Enum: []any{"c", "p", "d", "l"}},
		"msgs":       numberType(),
		"usersCount": numberType(),
		"u":          userRefSchema(),
		"ts":         stringType(),
		"ro":         booleanType(),
		"topic":      stringType(),
		"_updatedAt": stringType(),
	}, "_id", "t", "msgs", "usersCount", "u", "ts", "_updatedAt")
}

func baseProps() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"success":   booleanType(),
		"error":     stringType(),
		"errorType": stringType(),
	}
}

func listSchema(field string, items *jsonschema.Schema) *jsonschema.Schema {
	props := baseProps()
	props[field] = arrayOf(items)
	props["count"] = numberType()
	props["offset"] = numberType()
	props["total"] = numberType()
	return object(props, "success", field, "count", "offset", "total")
}

// Response schemas. Unknown properties are allowed.
var (
	BaseResponseSchema        = MustSchema[BaseResponse]("base response", object(baseProps(), "success"))
	MessageSchema             = MustSchema[Message]("message", messageSchema())
	RoomSchema                = MustSchema[Room]("room", roomSchema())
	MessagesResponseSchema    = MustSchema[MessagesResponse]("messages response", listSchema("messages", messageSchema()))
	ChannelsResponseSchema    = MustSchema[ChannelsResponse]("channels response", listSchema("channels", roomSchema()))
	SendMessageResponseSchema = MustSchema[SendMessageResponse]("send message response", sendMessageSchema())
)

func sendMessageSchema() *jsonschema.Schema {
	props := baseProps()
	props["message"] = messageSchema()
	return object(props, "success", "message")
}

// IsSuccessResponse reports whether data is an envelope with success=true.
func IsSuccessResponse(data []byte) bool {
	if BaseResponseSchema.Check(data) != nil {
		return false
	}
	var base BaseResponse
	return json.Unmarshal(data, &base) == nil && base.Success
}

// APIError extracts the error message from a success=false envelope,
// preferring "error" over "errorType".
func APIError(data []byte) (string, bool) {
	if BaseResponseSchema.Check(data) != nil {
		return "", false
	}
	var base BaseResponse
	if err := json.Unmarshal(data, &base); err != nil || base.Success {
		return "", false
	}
	if base.Error != "" {
		return base.Error, true
	}
	return base.ErrorType, base.ErrorType != ""
}
