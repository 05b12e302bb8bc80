package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type profileCommand struct {
	bot *Bot
}

func newProfileCommand(b *Bot) *profileCommand {
	return &profileCommand{bot: b}
}

func (c *profileCommand) Name() string        { return "profile" }
func (c *profileCommand) Description() string { return "Show your stats and powerups" }

func (c *profileCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type: discordgo.ApplicationCommandOptionBoolean, Name: "notifications",
			Description: "Turn daily reminders on or off",
		},
	}
}

func (c *profileCommand) Execute(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	userID := interactionUserID(i)

	for _, o := range i.ApplicationCommandData().Options {
		if o.Name == "notifications" {
			on := o.BoolValue()
			if err := c.bot.deps.Players.SetNotifications(ctx, userID, on); err != nil {
				return err
			}
			state := "off"
			if on {
				state = "on"
			}
			return replyText(s, i, "daily reminders are now "+state, true)
		}
	}

	p, err := c.bot.deps.Players.Profile(ctx, userID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "bucks: %d\n", p.Bucks)
	fmt.Fprintf(&b, "streak: %d  multiplier: %dx (best %dx)\n", p.Streak, p.Multiplier, p.HighestMulti)
	fmt.Fprintf(&b, "dailies claimed: %d\n", p.NumDailies)
	if p.LastDaily > 0 {
		fmt.Fprintf(&b, "last daily: %s\n", time.UnixMilli(p.LastDaily).UTC().Format("2006-01-02 15:04 UTC"))
	}
	fmt.Fprintf(&b, "multi boost: %d held (%d used)\n", p.MultiBoost.Total, p.MultiBoost.Used)
	fmt.Fprintf(&b, "extra chance: %d held (%d used)", p.ExtraChance.Total, p.ExtraChance.Used)
	return replyText(s, i, "```\n"+b.String()+"\n```", true)
}
