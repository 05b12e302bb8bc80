package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"critterbot/internal/market"
	"critterbot/internal/market/nameindex"
)

type marketCommand struct {
	bot *Bot
}

func newMarketCommand(b *Bot) *marketCommand {
	return &marketCommand{bot: b}
}

func (c *marketCommand) Name() string        { return "market" }
func (c *marketCommand) Description() string { return "Browse and trade on the critter market" }

func (c *marketCommand) Options() []*discordgo.ApplicationCommandOption {
	itemOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "item",
		Description: "Item name", Required: true,
	}
	quantityOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionInteger, Name: "quantity",
		Description: "How many", Required: true,
	}
	editionOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionInteger, Name: "edition",
		Description: "Edition serial, for unique items",
	}
	return []*discordgo.ApplicationCommandOption{
		{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "view",
			Description: "Open the market overview",
		},
		{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "buy",
			Description: "Buy instantly from the cheapest sell offers",
			Options:     []*discordgo.ApplicationCommandOption{itemOpt, quantityOpt, editionOpt},
		},
		{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "sell",
			Description: "Sell instantly into the best buy offers",
			Options:     []*discordgo.ApplicationCommandOption{itemOpt, quantityOpt, editionOpt},
		},
		{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "order",
			Description: "Place a standing buy or sell offer",
			Options: []*discordgo.ApplicationCommandOption{
				itemOpt,
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "side",
					Description: "Offer side", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "buy", Value: "buy"},
						{Name: "sell", Value: "sell"},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "price",
					Description: "Bucks per unit", Required: true,
				},
				quantityOpt,
				editionOpt,
			},
		},
		{
			Type: discordgo.ApplicationCommandOptionSubCommand, Name: "claim",
			Description: "Collect the filled part of one of your orders",
			Options: []*discordgo.ApplicationCommandOption{
				itemOpt,
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "side",
					Description: "Order side", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "buy", Value: "buy"},
						{Name: "sell", Value: "sell"},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "listed_at",
					Description: "Listing timestamp shown on your orders page", Required: true,
				},
			},
		},
	}
}

func (c *marketCommand) Execute(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub := i.ApplicationCommandData().Options[0]
	userID := interactionUserID(i)
	sess := c.bot.newMarketSession(userID, i.ID)

	switch sub.Name {
	case "view":
		return c.runView(ctx, s, i, sess)
	case "buy":
		return c.runInsta(ctx, s, i, sess, sub, market.SideInstaBuy)
	case "sell":
		return c.runInsta(ctx, s, i, sess, sub, market.SideInstaSell)
	case "order":
		return c.runOrder(ctx, s, i, sess, sub)
	case "claim":
		return c.runClaim(ctx, s, i, sess, sub)
	}
	return fmt.Errorf("unknown subcommand %q", sub.Name)
}

func (c *marketCommand) runView(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session) error {
	if err := sess.Open(ctx); err != nil {
		return err
	}
	att, err := sess.Render(ctx)
	if err != nil {
		return err
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    codeBlock(att),
			Components: c.sessionComponents(sess, false),
		},
	})
	if err != nil {
		return err
	}
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		return err
	}

	col := c.bot.collectors.Register(ctx, msg.ID)
	c.bot.wg.Add(1)
	go c.collectLoop(ctx, s, i, sess, col, msg.ID)
	return nil
}

// collectLoop drives one open market view: apply each button press to the
// session, re-render, and shut the view down after the idle window.
func (c *marketCommand) collectLoop(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session, col *collector, messageID string) {
	defer c.bot.wg.Done()
	defer col.Stop()

	idle := c.bot.deps.Cfg.CollectorIdle
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.disable(s, i, sess)
			return
		case <-timer.C:
			c.disable(s, i, sess)
			return
		case ev := <-col.Events():
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)

			if interactionUserID(ev) != interactionUserID(i) {
				_ = replyText(s, ev, "this market view belongs to someone else, open your own with /market view", true)
				continue
			}
			if ev.Type == discordgo.InteractionMessageComponent && ev.MessageComponentData().CustomID == "market:page" {
				if err := openPageModal(s, ev); err != nil {
					c.bot.deps.Log.Error("page modal failed", "message_id", messageID, "err", err)
				}
				continue
			}
			var err error
			if ev.Type == discordgo.InteractionModalSubmit {
				sess.Jump(modalPageValue(ev.ModalSubmitData()))
			} else {
				err = c.apply(ctx, sess, ev)
			}
			if err != nil {
				c.bot.deps.Log.Error("market view update failed", "message_id", messageID, "err", err)
				_ = replyText(s, ev, "could not update the view: "+err.Error(), true)
				continue
			}
			att, err := sess.Render(ctx)
			if err != nil {
				c.bot.deps.Log.Error("market render failed", "message_id", messageID, "err", err)
				continue
			}
			_ = s.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseUpdateMessage,
				Data: &discordgo.InteractionResponseData{
					Content:    codeBlock(att),
					Components: c.sessionComponents(sess, false),
				},
			})
		}
	}
}

func (c *marketCommand) apply(ctx context.Context, sess *market.Session, ev *discordgo.InteractionCreate) error {
	data := ev.MessageComponentData()
	switch data.CustomID {
	case "market:overview":
		sess.SetView(market.ViewOverview)
	case "market:item":
		sess.SetView(market.ViewItemDetail)
	case "market:orders":
		sess.SetView(market.ViewUserOrders)
	case "market:prev":
		sess.Prev()
	case "market:next":
		sess.Next()
	case "market:refresh":
		return sess.Refresh(ctx)
	case "market:edition":
		if len(data.Values) > 0 {
			ed, err := strconv.ParseInt(data.Values[0], 10, 64)
			if err == nil {
				sess.SelectEdition(ed)
			}
		}
	}
	return nil
}

func (c *marketCommand) disable(s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session) {
	components := c.sessionComponents(sess, true)
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Components: &components,
	})
}

// sessionComponents builds the component rows for the session's current
// view, adding the edition select when the detail view has serials to pick.
func (c *marketCommand) sessionComponents(sess *market.Session, disabled bool) []discordgo.MessageComponent {
	out := viewComponents(sess.State().View, disabled)
	if sess.State().View != market.ViewItemDetail {
		return out
	}
	detail, err := sess.ItemDetailPayload()
	if err != nil || len(detail.Editions) == 0 {
		return out
	}
	return append(out, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			CustomID:    "market:edition",
			Placeholder: "Edition",
			Options:     editionOptions(detail.Editions, sess.State().Edition),
			Disabled:    disabled,
		},
	}})
}

// editionOptions lists the pickable serials behind an "any" entry. A
// select menu holds at most 25 options.
func editionOptions(editions []int64, selected int64) []discordgo.SelectMenuOption {
	opts := []discordgo.SelectMenuOption{{Label: "Any edition", Value: "0", Default: selected == 0}}
	for _, ed := range editions {
		if len(opts) == 25 {
			break
		}
		opts = append(opts, discordgo.SelectMenuOption{
			Label:   fmt.Sprintf("Edition #%d", ed),
			Value:   strconv.FormatInt(ed, 10),
			Default: ed == selected,
		})
	}
	return opts
}

func openPageModal(s *discordgo.Session, ev *discordgo.InteractionCreate) error {
	return s.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "market:jump",
			Title:    "Go to page",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "page",
						Label:     "Page number or item name",
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: 64,
					},
				}},
			},
		},
	})
}

// modalPageValue pulls the page input out of a jump modal submission.
// Components arrive from the wire as pointers.
func modalPageValue(data discordgo.ModalSubmitInteractionData) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if in, ok := comp.(*discordgo.TextInput); ok && in.CustomID == "page" {
				return in.Value
			}
		}
	}
	return ""
}

func viewComponents(active market.View, disabled bool) []discordgo.MessageComponent {
	viewButton := func(label, id string, v market.View) discordgo.Button {
		style := discordgo.SecondaryButton
		if v == active {
			style = discordgo.PrimaryButton
		}
		return discordgo.Button{Label: label, Style: style, CustomID: id, Disabled: disabled}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			viewButton("Overview", "market:overview", market.ViewOverview),
			viewButton("Item", "market:item", market.ViewItemDetail),
			viewButton("My Orders", "market:orders", market.ViewUserOrders),
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Prev", Style: discordgo.SecondaryButton, CustomID: "market:prev", Disabled: disabled},
			discordgo.Button{Label: "Next", Style: discordgo.SecondaryButton, CustomID: "market:next", Disabled: disabled},
			discordgo.Button{Label: "Page", Style: discordgo.SecondaryButton, CustomID: "market:page", Disabled: disabled},
			discordgo.Button{Label: "Refresh", Style: discordgo.SecondaryButton, CustomID: "market:refresh", Disabled: disabled},
		}},
	}
}

func (c *marketCommand) runInsta(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session, sub *discordgo.ApplicationCommandInteractionDataOption, side market.Side) error {
	key, ok := c.resolveItem(optString(sub, "item"))
	if !ok {
		return replyText(s, i, "no item matches that name", true)
	}
	quantity := optInt(sub, "quantity")
	edition := optInt(sub, "edition")

	var err error
	var verb string
	if side == market.SideInstaBuy {
		verb = "bought"
		err = sess.InstaBuy(ctx, key, quantity, edition)
	} else {
		verb = "sold"
		err = sess.InstaSell(ctx, key, quantity, edition)
	}
	if err != nil {
		return c.replyMarketError(s, i, err)
	}
	name, _ := c.bot.deps.Catalog.DisplayName(key.Type, key.ID)
	return replyText(s, i, fmt.Sprintf("%s %d x %s", verb, quantity, name), false)
}

func (c *marketCommand) runOrder(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	key, ok := c.resolveItem(optString(sub, "item"))
	if !ok {
		return replyText(s, i, "no item matches that name", true)
	}
	side := market.SideInstaBuy // a standing sell offer serves insta-buyers
	if optString(sub, "side") == "buy" {
		side = market.SideInstaSell
	}
	price := optInt(sub, "price")
	quantity := optInt(sub, "quantity")
	var editions []int64
	if ed := optInt(sub, "edition"); ed != 0 {
		editions = []int64{ed}
	}

	if err := sess.PlaceListing(ctx, key, side, price, quantity, editions); err != nil {
		return c.replyMarketError(s, i, err)
	}
	name, _ := c.bot.deps.Catalog.DisplayName(key.Type, key.ID)
	return replyText(s, i, fmt.Sprintf("order placed: %s %d x %s at %d bucks each",
		optString(sub, "side"), quantity, name, price), false)
}

func (c *marketCommand) runClaim(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *market.Session, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	key, ok := c.resolveItem(optString(sub, "item"))
	if !ok {
		return replyText(s, i, "no item matches that name", true)
	}
	side := market.SideInstaBuy
	if optString(sub, "side") == "buy" {
		side = market.SideInstaSell
	}
	if err := sess.ClaimOrder(ctx, key, side, optInt(sub, "listed_at")); err != nil {
		return c.replyMarketError(s, i, err)
	}
	return replyText(s, i, "claimed", false)
}

func (c *marketCommand) replyMarketError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) error {
	var msg string
	switch {
	case errors.Is(err, market.ErrInsufficientBucks):
		msg = "you do not have enough bucks for that"
	case errors.Is(err, market.ErrListingUnavailable):
		msg = "nothing on the market matches that right now"
	case errors.Is(err, market.ErrItemNotFound):
		msg = "that item has no listings"
	case errors.Is(err, market.ErrOrderLimit):
		msg = "you already have the maximum number of open orders"
	case errors.Is(err, market.ErrPriceLimit):
		msg = "that price is over the market cap"
	case errors.Is(err, market.ErrNothingToClaim):
		msg = "nothing to claim on that order"
	case errors.Is(err, market.ErrEditionListed):
		msg = "that edition is already on the market"
	case errors.Is(err, market.ErrInvalidListing):
		msg = "price and quantity must be positive"
	default:
		return err
	}
	return replyText(s, i, msg, true)
}

// resolveItem matches free-form input against catalog ids and display
// names, normalized the same way the market name index normalizes.
func (c *marketCommand) resolveItem(input string) (market.ItemKey, bool) {
	query := nameindex.Normalize(input)
	if query == "" {
		return market.ItemKey{}, false
	}
	cat := c.bot.deps.Catalog
	for _, t := range cat.ItemTypes() {
		for _, id := range cat.ItemIDs(t) {
			if nameindex.Normalize(id) == query {
				return market.ItemKey{Type: t, ID: id}, true
			}
			if name, ok := cat.DisplayName(t, id); ok && nameindex.Normalize(name) == query {
				return market.ItemKey{Type: t, ID: id}, true
			}
		}
	}
	return market.ItemKey{}, false
}

func optString(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range sub.Options {
		if o.Name == name {
			return o.StringValue()
		}
	}
	return ""
}

func optInt(sub *discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, o := range sub.Options {
		if o.Name == name {
			return o.IntValue()
		}
	}
	return 0
}
