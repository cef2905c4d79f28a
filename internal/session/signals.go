package session

import (
	"strconv"

	"ipsguard/internal/bus"
	"ipsguard/internal/collector"
)

// Emitter hands outbound signals to the transport. Emit must not block.
type Emitter interface {
	Emit(channel, payload string)
}

type signals struct {
	emit Emitter
}

func (s *signals) send(channel, payload string) {
	if s.emit != nil {
		s.emit.Emit(channel, payload)
	}
}

func (s *signals) NotifyUnblock(addr string) {
	s.send(bus.ChannelUnblock, addr)
}

func (s *signals) SignalToggle(name collector.Name) {
	s.send(bus.ChannelCollector, string(name))
}

func (s *signals) SignalAvoidBlocking(avoid bool) {
	s.send(bus.ChannelAvoidBlocking, strconv.FormatBool(avoid))
}
