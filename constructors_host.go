//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based testing).
package antitheft

import (
	"github.com/ystepanoff/antitheft/driver/stub"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

var air = stub.NewMedium()

// NewNode returns a node on the process-wide simulated air, so every node
// created here hears the others.
func NewNode(id protocol.NodeID) *transport.Node {
	n := transport.NewNode(id, air.Attach())
	n.SetLogger(util.Logger{})
	return n
}
