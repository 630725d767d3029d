package gateway

import (
	"context"
	"math/rand"

	"github.com/ystepanoff/antitheft/driver/stub"
	"github.com/ystepanoff/antitheft/internal/util"
	"github.com/ystepanoff/antitheft/protocol"
	"github.com/ystepanoff/antitheft/transport"
)

// SimOptions configures motes simulated on a stub medium.
type SimOptions struct {
	Count         int
	FirstID       protocol.NodeID
	Channel       uint8 // must match the gateway's channel
	CheckInterval uint16
	LowVoltage    uint16
}

// StartSimulation attaches opts.Count motes to medium. Each mote runs its
// self-check against a noisy battery reading and relays each alert once,
// unless it came from the mote it was told to ignore.
func StartSimulation(ctx context.Context, medium *stub.Medium, opts SimOptions) []*transport.Node {
	nodes := make([]*transport.Node, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id := opts.FirstID + protocol.NodeID(i)
		n := transport.NewNode(id, medium.Attach())
		n.SetLogger(util.Logger{})
		if err := n.SetChannel(opts.Channel); err != nil {
			util.LogError("[sim] mote %d: %v", id, err)
			continue
		}
		if err := n.Initialise(); err != nil {
			util.LogError("[sim] mote %d: %v", id, err)
			continue
		}

		s := protocol.DefaultSettings()
		s.CheckInterval = opts.CheckInterval
		n.ApplySettings(s)

		seen := make(map[uint32]struct{})
		n.OnAlert(func(from protocol.NodeID, a protocol.Alert) {
			if ignored := n.IgnoredID(); a.StolenID == n.ID() || (ignored != 0 && from == ignored) {
				return
			}
			key := uint32(a.StolenID)<<16 | uint32(a.PacketID)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			if err := n.ForwardAlert(a); err != nil {
				util.LogWarning("[sim] mote %d forward: %v", n.ID(), err)
			}
		})

		low := int(opts.LowVoltage)
		n.StartCheckTask(ctx, func() uint16 {
			return uint16(max(0, low-200+rand.Intn(1000)))
		}, opts.LowVoltage)
		n.Listen(ctx)
		nodes = append(nodes, n)
	}
	util.LogInfo("[sim] %d motes attached", len(nodes))
	return nodes
}
