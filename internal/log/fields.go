package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldProfile   = "profile"
	FieldPath      = "path"
	FieldHost      = "host"
	FieldPort      = "port"
	FieldChannel   = "channel"
	FieldChannels  = "channels"
	FieldDevice    = "device"
	FieldStep      = "step"
	FieldURL       = "url"
	FieldCommand   = "command"
)
