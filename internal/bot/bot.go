// Package bot is the chat-platform face of the marketplace: a slash
// command dispatcher, a static command registry, and per-message component
// collectors for the paged market views.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"critterbot/internal/catalog"
	"critterbot/internal/config"
	"critterbot/internal/market"
	"critterbot/internal/player"
	"critterbot/internal/syncq"
)

// Deps carries everything the commands need. Built once in main and
// passed down; no package-level state.
type Deps struct {
	Cfg     config.BotConfig
	Log     *slog.Logger
	Gateway market.Gateway
	Ledger  market.Ledger
	Catalog *catalog.Catalog
	Queue   *syncq.Queue
	Daily   *player.DailyService
	Players *player.Service
}

type Bot struct {
	deps       Deps
	session    *discordgo.Session
	registry   *Registry
	collectors *collectorSet
	wg         sync.WaitGroup
}

func New(deps Deps) (*Bot, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	session, err := discordgo.New("Bot " + deps.Cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	b := &Bot{
		deps:       deps,
		session:    session,
		collectors: newCollectorSet(),
	}
	b.registry = NewRegistry(
		newMarketCommand(b),
		newDailyCommand(b),
		newProfileCommand(b),
	)
	return b, nil
}

// Run connects, registers the commands, and serves interactions until ctx
// is canceled. Collector goroutines are waited out on the way down.
func (b *Bot) Run(ctx context.Context) error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.dispatch(ctx, s, i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer b.session.Close()

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", b.registry.Declarations()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.deps.Log.Info("bot connected", "user", b.session.State.User.Username)

	<-ctx.Done()
	b.wg.Wait()
	return ctx.Err()
}

func (b *Bot) dispatch(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := b.registry.Lookup(name)
		if !ok {
			b.deps.Log.Warn("unknown command", "name", name)
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := cmd.Execute(ctx, s, i); err != nil {
				b.deps.Log.Error("command failed", "name", name, "user_id", interactionUserID(i), "err", err)
				replyError(s, i, err)
			}
		}()
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		if !b.collectors.Dispatch(i) {
			// view expired, ack so the client stops spinning
			_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredMessageUpdate,
			})
		}
	}
}

func (b *Bot) newMarketSession(userID, interactionID string) *market.Session {
	cfg := market.SessionConfig{
		PageSize:      b.deps.Cfg.PageSize,
		OrdersPerPage: b.deps.Cfg.OrdersPerPage,
		ListingTTL:    b.deps.Cfg.ListingTTL,
		MaxOrders:     b.deps.Cfg.MaxOrders,
		MaxPrice:      b.deps.Cfg.MaxPrice,
	}
	return market.NewSession(cfg, b.deps.Gateway, b.deps.Ledger, b.deps.Catalog,
		TextRenderer{}, b.deps.Queue, b.deps.Log, userID, interactionID)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func replyText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func replyError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	_ = replyText(s, i, "something went wrong: "+err.Error(), true)
}

func codeBlock(att market.Attachment) string {
	return "```\n" + string(att.Body) + "```"
}
