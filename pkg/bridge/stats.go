package bridge

import (
	"sync/atomic"
	"time"

	"github.com/haivivi/callbridge/pkg/audio/pcm"
)

// Stats counts relayed traffic. Byte counts are μ-law bytes on the
// telephony side.
type Stats struct {
	InboundFrames  int64 `json:"inbound_frames"`
	InboundBytes   int64 `json:"inbound_bytes"`
	OutboundFrames int64 `json:"outbound_frames"`
	OutboundBytes  int64 `json:"outbound_bytes"`
	Dropped        int64 `json:"dropped"`
}

// InboundDuration is the caller audio relayed to the model.
func (s Stats) InboundDuration() time.Duration {
	return pcm.L16Mono8K.Duration(s.InboundBytes * 2)
}

// OutboundDuration is the model audio relayed to the caller.
func (s Stats) OutboundDuration() time.Duration {
	return pcm.L16Mono8K.Duration(s.OutboundBytes * 2)
}

type counters struct {
	inFrames, inBytes   atomic.Int64
	outFrames, outBytes atomic.Int64
	dropped             atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		InboundFrames:  c.inFrames.Load(),
		InboundBytes:   c.inBytes.Load(),
		OutboundFrames: c.outFrames.Load(),
		OutboundBytes:  c.outBytes.Load(),
		Dropped:        c.dropped.Load(),
	}
}
