package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// collector receives the component interactions for one message. The
// owning command drains Events on its own goroutine; the set drops the
// collector once Stop is called or the parent context ends.
type collector struct {
	events chan *discordgo.InteractionCreate
	stop   sync.Once
	done   chan struct{}
}

func (c *collector) Events() <-chan *discordgo.InteractionCreate {
	return c.events
}

func (c *collector) Stop() {
	c.stop.Do(func() { close(c.done) })
}

// collectorSet routes component interactions to the collector registered
// for the interaction's message.
type collectorSet struct {
	mu        sync.Mutex
	byMessage map[string]*collector
}

func newCollectorSet() *collectorSet {
	return &collectorSet{byMessage: make(map[string]*collector)}
}

// Register creates a collector for messageID and tears it down when ctx
// ends or the collector is stopped.
func (cs *collectorSet) Register(ctx context.Context, messageID string) *collector {
	c := &collector{
		events: make(chan *discordgo.InteractionCreate, 8),
		done:   make(chan struct{}),
	}
	cs.mu.Lock()
	if old, ok := cs.byMessage[messageID]; ok {
		old.Stop()
	}
	cs.byMessage[messageID] = c
	cs.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.done:
		}
		cs.mu.Lock()
		if cs.byMessage[messageID] == c {
			delete(cs.byMessage, messageID)
		}
		cs.mu.Unlock()
	}()
	return c
}

// Dispatch hands a component interaction to its collector. Returns false
// when no collector is listening on that message.
func (cs *collectorSet) Dispatch(i *discordgo.InteractionCreate) bool {
	if i.Message == nil {
		return false
	}
	cs.mu.Lock()
	c, ok := cs.byMessage[i.Message.ID]
	cs.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case c.events <- i:
		return true
	case <-c.done:
		return false
	case <-time.After(time.Second):
		// slow consumer, drop the event
		return false
	}
}
