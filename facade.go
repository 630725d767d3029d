// Package antitheft provides a façade over the protocol and transport layers
// for mote firmware and host tools.
package antitheft

import (
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

// The radio driver is chosen by build tag:
// - constructors_nrf.go - for embedded platforms (//go:build tinygo || baremetal)
// - constructors_host.go - for development/testing (//go:build !tinygo && !baremetal)

type (
	NodeID     = protocol.NodeID
	Settings   = protocol.Settings
	Alert      = protocol.Alert
	AlertMode  = protocol.AlertMode
	DetectMask = protocol.DetectMask
	Node       = transport.Node
)

var (
	ErrShortInput     = protocol.ErrShortInput
	ErrTrailingBytes  = protocol.ErrTrailingBytes
	ErrTimeout        = transport.ErrTimeout
	ErrInvalidChannel = transport.ErrInvalidChannel
)

const (
	Broadcast  = protocol.Broadcast
	LowBattery = protocol.LowBattery

	AMSettings  = protocol.AMSettings
	AMTheft     = protocol.AMTheft
	AMAlert     = protocol.AMAlert
	DisSettings = protocol.DisSettings
	ColAlerts   = protocol.ColAlerts
)

func DefaultSettings() Settings { return protocol.DefaultSettings() }
