package protocol

// Shared on-air vocabulary of the anti-theft application. Every node and
// collector must agree on these values bit for bit.
const (
	// Alert delivery modes (bitmask)
	Broadcast AlertMode = 4

	// Detection triggers (bitmask)
	LowBattery DetectMask = 1

	// Message-type tags
	AMSettings  = 54
	AMTheft     = 99 // reserved, no payload layout here
	AMAlert     = 22
	DisSettings = 42 // reserved, settings echo
	ColAlerts   = 11 // reserved, alerts collection

	// Cold-start configuration
	DefaultAlert         = Broadcast
	DefaultDetect        = LowBattery
	DefaultCheckInterval = 1000 // collaborator time unit, conventionally ms
)

// Record sizes on the wire.
//
//	Settings: Alert(1) | Detect(1) | CheckInterval(2) | TargetID(2) | Duration(2)
//	Alert:    StolenID(2) | VoltageData(2) | PacketID(2) | Path1..6(12) | IgnoredID(2)
//
// All multi-byte fields are big-endian, no padding.
const (
	SettingsSize = 8
	AlertSize    = 20

	// PathLength is the number of trailing hops carried in an alert.
	PathLength = 6
)
