package bot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func componentEvent(messageID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			Message: &discordgo.Message{ID: messageID},
		},
	}
}

func TestDispatchRoutesToCollector(t *testing.T) {
	cs := newCollectorSet()
	c := cs.Register(context.Background(), "m1")
	defer c.Stop()

	if !cs.Dispatch(componentEvent("m1")) {
		t.Fatalf("dispatch refused a registered message")
	}
	select {
	case i := <-c.Events():
		if i.Message.ID != "m1" {
			t.Fatalf("wrong message: %s", i.Message.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never arrived")
	}
}

func TestDispatchUnknownMessage(t *testing.T) {
	cs := newCollectorSet()
	if cs.Dispatch(componentEvent("nope")) {
		t.Fatalf("dispatch accepted an unregistered message")
	}
	if cs.Dispatch(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}) {
		t.Fatalf("dispatch accepted an interaction without a message")
	}
}

func TestStopUnregisters(t *testing.T) {
	cs := newCollectorSet()
	c := cs.Register(context.Background(), "m1")
	c.Stop()

	deadline := time.Now().Add(time.Second)
	for cs.Dispatch(componentEvent("m1")) {
		if time.Now().After(deadline) {
			t.Fatalf("stopped collector still receiving events")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestContextCancelStopsCollector(t *testing.T) {
	cs := newCollectorSet()
	ctx, cancel := context.WithCancel(context.Background())
	c := cs.Register(ctx, "m1")
	cancel()

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatalf("collector not stopped by context")
	}
}

func TestRegisterReplacesStaleCollector(t *testing.T) {
	cs := newCollectorSet()
	old := cs.Register(context.Background(), "m1")
	fresh := cs.Register(context.Background(), "m1")
	defer fresh.Stop()

	select {
	case <-old.done:
	case <-time.After(time.Second):
		t.Fatalf("old collector not stopped on replacement")
	}

	if !cs.Dispatch(componentEvent("m1")) {
		t.Fatalf("dispatch refused after replacement")
	}
	select {
	case <-fresh.Events():
	case <-old.events:
		t.Fatalf("event went to the stale collector")
	case <-time.After(time.Second):
		t.Fatalf("event never arrived")
	}
}
