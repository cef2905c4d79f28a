package pipeline

import (
	"context"
	"testing"
	"time"

	"ipsguard/internal/bus"
	"ipsguard/internal/bus/memory"
	"ipsguard/pkg/models"
)

type recordingSink struct {
	alerts []*models.AlertEvent
	blocks []string
	order  []string
}

func (r *recordingSink) Alert(ctx context.Context, event *models.AlertEvent) error {
	r.alerts = append(r.alerts, event)
	r.order = append(r.order, bus.ChannelAlert)
	return nil
}

func (r *recordingSink) Block(ctx context.Context, addr string) error {
	r.blocks = append(r.blocks, addr)
	r.order = append(r.order, bus.ChannelBlock)
	return nil
}

func TestReadLoopDecodesInBusOrder(t *testing.T) {
	sink := &recordingSink{}
	p := NewBusPipeline(memory.New(1), sink, NewOutbox(1))

	in := make(chan bus.Message, 8)
	in <- bus.Message{Channel: bus.ChannelAlert, Payload: []byte(`{"Method":"SYN","Protocol":"TCP","Attacker_ip":"10.0.0.5","Target_port":"80","Message":"flood"}`)}
	in <- bus.Message{Channel: bus.ChannelBlock, Payload: []byte("10.0.0.5")}
	in <- bus.Message{Channel: bus.ChannelAlert, Payload: []byte(`{"Method":"SYN"}`)}
	in <- bus.Message{Channel: bus.ChannelBlock, Payload: []byte("   ")}
	in <- bus.Message{Channel: "other", Payload: []byte("x")}
	in <- bus.Message{Channel: bus.ChannelAlert, Payload: []byte(`{"Method":"AI","Protocol":"UDP","Attacker_ip":"10.0.0.6","Target_port":53}`)}
	close(in)

	p.readLoop(context.Background(), in)

	if len(sink.alerts) != 2 || len(sink.blocks) != 1 {
		t.Fatalf("expected 2 alerts and 1 block, got %d and %d", len(sink.alerts), len(sink.blocks))
	}
	want := []string{bus.ChannelAlert, bus.ChannelBlock, bus.ChannelAlert}
	for i := range want {
		if sink.order[i] != want[i] {
			t.Fatalf("unexpected order: %v", sink.order)
		}
	}
	if sink.alerts[1].TargetPort != "53" {
		t.Fatalf("unexpected second alert: %+v", sink.alerts[1])
	}
}

func TestWriteLoopPublishesOutbox(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := memory.New(8)
	sub, err := b.Subscribe(ctx, bus.ChannelUnblock, bus.ChannelAvoidBlocking)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	outbox := NewOutbox(4)
	outbox.Emit(bus.ChannelUnblock, "10.0.0.5")
	outbox.Emit(bus.ChannelAvoidBlocking, "true")

	p := NewBusPipeline(b, &recordingSink{}, outbox)
	loopCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		p.writeLoop(loopCtx)
		close(done)
	}()

	var got []bus.Message
	for len(got) < 2 {
		select {
		case msg := <-sub:
			got = append(got, msg)
		case <-ctx.Done():
			t.Fatalf("timed out, received %+v", got)
		}
	}
	stop()
	<-done

	if got[0].Channel != bus.ChannelUnblock || string(got[0].Payload) != "10.0.0.5" {
		t.Fatalf("unexpected first signal: %+v", got[0])
	}
	if got[1].Channel != bus.ChannelAvoidBlocking || string(got[1].Payload) != "true" {
		t.Fatalf("unexpected second signal: %+v", got[1])
	}
}

func TestOutboxDropsWhenFull(t *testing.T) {
	o := NewOutbox(1)
	o.Emit(bus.ChannelUnblock, "10.0.0.5")
	o.Emit(bus.ChannelUnblock, "10.0.0.6")
	if o.Pending() != 1 {
		t.Fatalf("expected 1 pending signal, got %d", o.Pending())
	}
}
