package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"critterbot/internal/player"
)

type dailyCommand struct {
	bot *Bot
}

func newDailyCommand(b *Bot) *dailyCommand {
	return &dailyCommand{bot: b}
}

func (c *dailyCommand) Name() string        { return "daily" }
func (c *dailyCommand) Description() string { return "Claim your daily critter" }

func (c *dailyCommand) Options() []*discordgo.ApplicationCommandOption {
	return nil
}

func (c *dailyCommand) Execute(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	userID := interactionUserID(i)
	result, err := c.bot.deps.Daily.Claim(ctx, userID, i.ID)
	if err != nil {
		if errors.Is(err, player.ErrDailyClaimed) {
			return replyText(s, i, "you already claimed today, come back after midnight UTC", true)
		}
		return err
	}

	var b strings.Builder
	for _, item := range result.Items {
		tier, _ := c.bot.deps.Catalog.Tier(item.Tier)
		fmt.Fprintf(&b, "you found a %s %s", strings.ToLower(tier.Name), item.Name)
		if item.Edition != 0 {
			fmt.Fprintf(&b, " (edition #%d)", item.Edition)
		}
		fmt.Fprintf(&b, " worth %d bucks\n", item.Score)
	}
	fmt.Fprintf(&b, "streak %d, multiplier %dx", result.Streak, result.Multiplier)
	if result.UsedBoost {
		b.WriteString(", multi boost spent")
	}
	if result.UsedExtra {
		b.WriteString(", extra chance spent")
	}
	return replyText(s, i, b.String(), false)
}
