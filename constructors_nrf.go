//go:build tinygo || baremetal

// This file is built only for embedded targets (using real radio hardware).
package antitheft

import (
	"github.com/ystepanoff/antitheft/driver/nrf"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

func NewNode(id protocol.NodeID) *transport.Node {
	return transport.NewNode(id, nrf.New())
}
