package websocket

import (
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/power"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeHotplug       MessageType = "hotplug"
	MessageTypePower         MessageType = "power"
	MessageTypeWakeoutLength MessageType = "wakeout_length"

	// Full dumpstate, sent after registration and on request
	MessageTypeSnapshot MessageType = "snapshot"

	// System messages
	MessageTypeSystemState MessageType = "system_state"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// SystemStateData represents a lifecycle state change
type SystemStateData struct {
	State    string `json:"state"`
	Previous string `json:"previous_state"`
}

type WakeoutLengthData struct {
	LengthUs int `json:"length_us"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Events keep their own timestamps so the journal and the stream agree.

func NewHotplugMessage(ev board.HotplugEvent) Message {
	return Message{Type: MessageTypeHotplug, Timestamp: ev.Timestamp, Data: ev}
}

func NewPowerMessage(ev power.PowerEvent) Message {
	return Message{Type: MessageTypePower, Timestamp: ev.Timestamp, Data: ev}
}

func NewSnapshotMessage(snapshots []board.InterfaceSnapshot) Message {
	return NewMessage(MessageTypeSnapshot, snapshots)
}

func NewWakeoutLengthMessage(lengthUs int) Message {
	return NewMessage(MessageTypeWakeoutLength, WakeoutLengthData{LengthUs: lengthUs})
}

func NewSystemStateMessage(newState, previousState string) Message {
	return NewMessage(MessageTypeSystemState, SystemStateData{
		State:    newState,
		Previous: previousState,
	})
}
