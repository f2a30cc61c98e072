package constants

import "time"

// Message types accepted from clients.
const (
	MsgStartSession  = "start_session"
	MsgKeystroke     = "keystroke"
	MsgHeartbeat     = "heartbeat"
	MsgFinishSession = "finish_session"
)

// Message types sent to clients.
const (
	MsgSessionStarted     = "session_started"
	MsgKeystrokeProcessed = "keystroke_processed"
	MsgHeartbeatAck       = "heartbeat_ack"
	MsgMetricsUpdate      = "metrics_update"
	MsgSessionEnded       = "session_ended"
	MsgError              = "error"
)

// Defaults applied when the config file leaves a value unset.
const (
	DefaultAddr              = ":8080"
	DefaultBroadcastInterval = 30 * time.Second
	DefaultKeystrokeLogCap   = 5000
)
