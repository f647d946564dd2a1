// Package bot is the command surface: it gates incoming chat messages,
// dispatches the closed set of sub-actions and renders travel query results
// as platform-neutral replies.
package bot

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/format"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/resolver"
	"github.com/Mephiles/torn-travelbot/store"
)

const footerText = "Brought to you by: Mephiles [2087524]"

// Message is an incoming chat message, already stripped to the fields the
// command surface needs.
type Message struct {
	ChannelID   string
	ChannelName string
	AuthorID    string
	Content     string
}

// Field is one name/value block of an embed reply.
type Field struct {
	Name  string
	Value string
}

// Embed is a platform-neutral rich reply. The gateway maps it onto the
// transport's widget format.
type Embed struct {
	Author      string
	Title       string
	Description string
	Fields      []Field
	Footer      string
}

// Reply is the bot's answer to one message. Notices are plain texts sent
// before the payload; exactly one of Plain, Embed or Pages carries the
// payload, and a reply of notices alone is valid (aborted query).
type Reply struct {
	Notices []string
	Plain   string
	Embed   *Embed
	Pages   *format.Pages
}

// Bot wires the resolver and formatter behind the chat command grammar.
type Bot struct {
	config    *config.Config
	resolver  *resolver.Resolver
	formatter *format.Formatter
	catalog   *store.Catalog
	stocks    *store.Stock
	ring      *logring.Ring
	log       *logger.Log
}

// New creates the command surface.
func New(cfg *config.Config, res *resolver.Resolver, fmtr *format.Formatter, catalog *store.Catalog, stocks *store.Stock, ring *logring.Ring) *Bot {
	return &Bot{
		config:    cfg,
		resolver:  res,
		formatter: fmtr,
		catalog:   catalog,
		stocks:    stocks,
		ring:      ring,
		log:       logger.GetLogger(),
	}
}

// Handle processes one message. The second return is false when the message
// is not addressed to the bot: wrong channel, wrong prefix or wrong command
// word. Such messages get no reply at all.
func (b *Bot) Handle(msg Message) (*Reply, bool) {
	cfg := b.config.Travelbot

	if msg.ChannelName != cfg.ChannelName {
		return nil, false
	}
	if msg.Content == "" || !strings.HasPrefix(msg.Content, cfg.CommandPrefix) {
		return nil, false
	}

	args := strings.Fields(strings.TrimPrefix(msg.Content, cfg.CommandPrefix))
	if len(args) == 0 || args[0] != cfg.Command {
		return nil, false
	}

	var sub, option string
	if len(args) > 1 {
		sub = args[1]
	}
	if len(args) > 2 {
		option = args[2]
	}

	traceID := uuid.New().String()
	log := b.log.WithComponent("bot").WithFields(logger.Fields{
		"trace_id":    traceID,
		"author_id":   msg.AuthorID,
		"sub_command": sub,
		"option":      option,
	})

	if sub == "" {
		log.Debug("message without sub-command")
		return &Reply{Plain: fmt.Sprintf("Missing command. Try '%s%s help' to see commands.", cfg.CommandPrefix, cfg.Command)}, true
	}

	b.ring.Append(fmt.Sprintf("Arguments: [%s]. Command: [%s]. Sub-command: [%s]. CommandOptions: [%s]",
		strings.Join(args, ","), args[0], sub, option))

	switch sub {
	case "ping":
		log.Debug("ping")
		return &Reply{Plain: "Pong!"}, true
	case "isbotup":
		log.Debug("isbotup")
		return &Reply{Plain: "Oops.. sorry.. it's not what it looks like.. What can I help you with?"}, true
	case "help", "?":
		log.Debug("help page requested")
		return b.helpReply(), true
	case "logs":
		log.Debug("logs requested")
		return b.logsReply(option), true
	}

	return b.queryReply(log, sub, option), true
}

func (b *Bot) helpReply() *Reply {
	cfg := b.config.Travelbot
	invoke := cfg.CommandPrefix + cfg.Command

	template := fmt.Sprintf("%s [location][',' or ':' or ''] [item]", invoke)
	examples := []string{
		invoke + " South-Africa",
		invoke + " cayman-islands",
		invoke + " ci",
		invoke + " mexico xanax",
		invoke + " uk, Xanax",
		invoke + " cayman: xanax",
		invoke + " switzerland, xanax",
		invoke + " Xanax",
	}

	return &Reply{Embed: &Embed{
		Author: cfg.Name + " - Help",
		Fields: []Field{{
			Name: template,
			Value: strings.Join(examples, "\n") +
				"\n------------------\nPlease write all country/item names that have spaces using hyphens",
		}},
		Footer: footerText,
	}}
}

func (b *Bot) logsReply(option string) *Reply {
	cfg := b.config.Travelbot

	entries, count := b.ring.TailArg(option)
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.Stamp+" - "+entry.Message)
	}
	body := strings.Join(lines, "\n")
	if body == "" {
		body = "No logs yet."
	}

	return &Reply{Embed: &Embed{
		Author: cfg.Name + " - Info",
		Fields: []Field{{
			Name:  fmt.Sprintf("%s logs (last %d)", cfg.Name, count),
			Value: body,
		}},
		Footer: footerText,
	}}
}

// queryReply is the default path: integrity-check both snapshots, resolve the
// tokens and format the answer. Integrity failures abort the query with
// operator-contact notices but never crash the process.
func (b *Bot) queryReply(log *logger.Entry, sub, option string) *Reply {
	cfg := b.config.Travelbot

	reply := &Reply{}
	if cfg.Debug {
		reply.Notices = append(reply.Notices,
			fmt.Sprintf("%s is currently under construction. Unexpected responses may occur.", cfg.Name))
	}

	verified := true
	if !b.catalog.Snapshot().Loaded() {
		log.Warn("query against unloaded item catalog")
		reply.Notices = append(reply.Notices, "ERROR: ITEMLIST integrity check failed. Please contact Mephiles[2087524].")
		verified = false
	}
	if !b.stocks.Snapshot().Loaded() {
		log.Warn("query against unloaded stock data")
		reply.Notices = append(reply.Notices, "ERROR: YATA_DATA integrity check failed. Please contact Mephiles[2087524].")
		verified = false
	}
	if !verified {
		return reply
	}

	result := b.resolver.Resolve(resolver.Normalize(sub), resolver.Normalize(option))
	log.WithFields(logger.Fields{
		"kind":         result.Kind.String(),
		"country_key":  result.CountryKey,
		"country_name": result.CountryName,
		"item_name":    result.ItemName,
	}).Info("travel query resolved")
	b.ring.Append(fmt.Sprintf("Query resolved: kind=%s country=%s item=%s",
		result.Kind, result.CountryKey, result.ItemName))
	logger.IncrementQuery(len(sub) + len(option))

	switch result.Kind {
	case resolver.CountryOnly:
		pages, ok := b.formatter.Country(result.CountryKey)
		if !ok {
			reply.Embed = b.emptyCountryEmbed(result.CountryName)
			return reply
		}
		reply.Pages = pages
	case resolver.CountryAndItem:
		record, ok := b.formatter.CountryItem(result.CountryKey, result.ItemName)
		if !ok {
			reply.Embed = b.emptyCountryEmbed(result.CountryName)
			return reply
		}
		reply.Embed = b.recordsEmbed(result.CountryName, []format.Record{record}, true)
	case resolver.ItemOnly:
		records := b.formatter.Item(result.ItemName)
		reply.Embed = b.recordsEmbed(result.ItemName, records, true)
	default:
		reply.Plain = "Could not find Country/Item with that name."
	}
	return reply
}

// emptyCountryEmbed answers a country+item query whose item is not stocked
// there, and a country query absent from the snapshot.
func (b *Bot) emptyCountryEmbed(heading string) *Embed {
	return &Embed{
		Author: b.config.Travelbot.Name + " - " + heading,
		Fields: []Field{{Name: "No items found", Value: "Item not available in this country."}},
		Footer: footerText,
	}
}

// recordsEmbed renders item records as embed fields. withTimestamp adds the
// per-record update time, shown on single-country answers; the cross-country
// item listing shows it too, matching the single-item field layout.
func (b *Bot) recordsEmbed(heading string, records []format.Record, withTimestamp bool) *Embed {
	embed := &Embed{
		Author: b.config.Travelbot.Name + " - " + heading,
		Footer: footerText,
	}
	for _, record := range records {
		embed.Fields = append(embed.Fields, Field{Name: record.Label, Value: RecordBody(record, withTimestamp)})
	}
	return embed
}

// RecordBody renders one stock record's field text. The gateway reuses it for
// page navigation redraws, which omit the timestamp lines.
func RecordBody(record format.Record, withTimestamp bool) string {
	lines := []string{
		"Cost: $" + format.WithCommas(record.Cost),
		"Profit: " + record.Profit,
		"Quantity: " + format.WithCommas(int64(record.Quantity)),
	}
	if withTimestamp {
		lines = append(lines,
			"Updated: "+record.Updated,
			"("+record.TimeAgo+")")
	}
	return strings.Join(lines, "\n")
}

// PageEmbed renders one page of a country listing. The description carries
// the snapshot's update time; per-record timestamps are omitted on pages.
func (b *Bot) PageEmbed(pages *format.Pages) *Embed {
	page := pages.Current()
	embed := &Embed{
		Author:      b.config.Travelbot.Name + " - " + pages.CountryName,
		Title:       page.Title,
		Description: "Updated: " + pages.Updated + "\n(" + pages.TimeAgo + ")",
		Footer:      footerText,
	}
	for _, record := range page.Records {
		embed.Fields = append(embed.Fields, Field{Name: record.Label, Value: RecordBody(record, false)})
	}
	return embed
}
