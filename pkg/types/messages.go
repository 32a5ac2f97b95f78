package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client -> Server
//
//   <action>[,<json payload>]
//
//   join:    {"gameType": string, "roomId": string, "playerId": string, "name": string, "spectate": bool}
//   start, quit, inspect: no payload
//   any module action: object (by name), array (by position), scalar (single argument) or nothing
//
// Server -> Client
//
//   update,{"varType": "game"|"player"|"private", "key": string, "value": any, "player": string}
//   error,{"code": string, "message": string, "action": string}
//   joined,{"roomId": string, "playerId": string, "gameType": string}
//   new_room,<roomId>
//   closed_room,<roomId>
//   rooms,[<roomId>...]

const (
	PrefixUpdate     = "update"
	PrefixError      = "error"
	PrefixJoined     = "joined"
	PrefixNewRoom    = "new_room"
	PrefixClosedRoom = "closed_room"
	PrefixRooms      = "rooms"
)

const ActionJoin = "join"

var ErrEmptyMessage = errors.New("empty message")
var ErrBadPayload = errors.New("payload is not valid json")

// Inbound is one parsed client message.
type Inbound struct {
	Action  string
	Payload json.RawMessage
}

func ParseInbound(raw string) (Inbound, error) {
	action, payload, _ := strings.Cut(raw, ",")
	action = strings.TrimSpace(action)
	if action == "" {
		return Inbound{}, ErrEmptyMessage
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Inbound{Action: action}, nil
	}
	if !json.Valid([]byte(payload)) {
		return Inbound{}, ErrBadPayload
	}
	return Inbound{Action: action, Payload: json.RawMessage(payload)}, nil
}

type Join struct {
	GameType string `json:"gameType,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	Spectate bool   `json:"spectate,omitempty"`
}

type Joined struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId,omitempty"`
	GameType string `json:"gameType"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Frame joins a prefix and a raw body.
func Frame(prefix, body string) string { return prefix + "," + body }

// Encode frames v as json under prefix.
func Encode(prefix string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Frame(prefix, string(b)), nil
}
