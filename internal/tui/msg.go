package tui

import "tasksync/internal/tasksync"

// Msg is the sealed interface for task manager messages.
type Msg interface {
	sealed()
}

// MsgStarted is sent after the initial remote load, successful or not.
type MsgStarted struct{}

func (MsgStarted) sealed() {}

// MsgTaskChanged is sent when an add, toggle or delete completes.
type MsgTaskChanged struct {
	Err error
	Op  string
}

func (MsgTaskChanged) sealed() {}

// MsgReconnected is sent when a reconnect attempt completes.
type MsgReconnected struct {
	OK bool
}

func (MsgReconnected) sealed() {}

// MsgSynced is sent when a local to backend sync completes.
type MsgSynced struct {
	Err    error
	Report tasksync.SyncReport
}

func (MsgSynced) sealed() {}
