package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Command is one slash command. Execute runs on its own goroutine with a
// context that is canceled on shutdown.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Execute(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error
}

// Registry is the static command table built at startup.
type Registry struct {
	byName map[string]Command
	order  []Command
}

func NewRegistry(commands ...Command) *Registry {
	r := &Registry{byName: make(map[string]Command, len(commands))}
	for _, c := range commands {
		r.byName[c.Name()] = c
		r.order = append(r.order, c)
	}
	return r
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Declarations builds the application command payloads for registration.
func (r *Registry) Declarations() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, &discordgo.ApplicationCommand{
			Name:        c.Name(),
			Description: c.Description(),
			Options:     c.Options(),
		})
	}
	return out
}
