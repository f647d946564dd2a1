// Package gateway maintains the Discord gateway session: identify, heartbeat,
// event dispatch into the command surface and reply delivery over the REST
// API, including reaction-driven page navigation.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mephiles/torn-travelbot/bot"
	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/format"
	"github.com/Mephiles/torn-travelbot/logger"
)

const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatAck = 11

	emojiPrev = "◀"
	emojiNext = "▶"

	reconnectDelay = 5 * time.Second
)

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

type readyData struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

type messageCreateData struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
}

type reactionAddData struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     struct {
		Name string `json:"name"`
	} `json:"emoji"`
}

type channelData struct {
	Name string `json:"name"`
}

// pageSession tracks a paginated country listing message so later reactions
// can navigate it. Only the original requester may flip pages.
type pageSession struct {
	pages     *format.Pages
	channelID string
	authorID  string
}

// Gateway owns the websocket session. The session reconnects until the
// context is cancelled.
type Gateway struct {
	config *config.Config
	bot    *bot.Bot
	rest   *restClient
	log    *logger.Log

	ctx     context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	ownUserID    string
	sequence     int64
	sessions     map[string]*pageSession
	channelNames map[string]string
}

// New creates a gateway for the command surface.
func New(cfg *config.Config, b *bot.Bot) *Gateway {
	return &Gateway{
		config:       cfg,
		bot:          b,
		rest:         newRESTClient(cfg),
		log:          logger.GetLogger(),
		sessions:     make(map[string]*pageSession),
		channelNames: make(map[string]string),
	}
}

// Start connects to the gateway and keeps the session alive until the
// context is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return fmt.Errorf("gateway already running")
	}
	g.running = true
	g.ctx = ctx
	g.mu.Unlock()

	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"operation": "Start"})
	if !g.config.Discord.Enabled {
		log.Warn("discord gateway is disabled")
		return fmt.Errorf("discord gateway is disabled")
	}
	if g.config.Discord.Token == "" {
		return fmt.Errorf("discord token is not configured")
	}

	log.WithFields(logger.Fields{"url": g.config.Discord.GatewayURL}).Info("starting discord gateway")
	g.wg.Add(1)
	go g.session()
	log.Info("discord gateway started successfully")
	return nil
}

// Stop waits for the session goroutine to finish.
func (g *Gateway) Stop() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
	g.log.WithComponent("gateway").Info("stopping discord gateway")
	g.wg.Wait()
	g.log.WithComponent("gateway").Info("discord gateway stopped")
}

// session handles the websocket lifecycle and reconnection.
func (g *Gateway) session() {
	defer g.wg.Done()
	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"worker": "session"})

	for {
		if g.ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(g.config.Discord.GatewayURL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect gateway, retrying")
			select {
			case <-time.After(reconnectDelay):
				continue
			case <-g.ctx.Done():
				return
			}
		}

		if err := g.run(conn); err != nil {
			log.WithError(err).Warn("gateway session ended, reconnecting")
		}
		conn.Close()

		select {
		case <-time.After(time.Second):
		case <-g.ctx.Done():
			return
		}
	}
}

// run drives one connected session: hello, identify, heartbeat loop, event
// dispatch. It returns when the connection breaks or the context is done.
func (g *Gateway) run(conn *websocket.Conn) error {
	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"worker": "session"})

	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloBody helloData
	if err := json.Unmarshal(hello.D, &helloBody); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.config.Discord.Token,
			"intents": g.config.Discord.Intents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": g.config.Travelbot.Name,
				"device":  g.config.Travelbot.Name,
			},
		},
	}
	if err := conn.WriteJSON(identify); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)

	heartbeat := time.NewTicker(time.Duration(helloBody.HeartbeatInterval) * time.Millisecond)
	go func() {
		defer heartbeat.Stop()
		for {
			select {
			case <-done:
				return
			case <-g.ctx.Done():
				return
			case <-heartbeat.C:
				g.mu.Lock()
				seq := g.sequence
				g.mu.Unlock()
				writeMu.Lock()
				err := conn.WriteJSON(payload{Op: opHeartbeat, S: &seq})
				writeMu.Unlock()
				if err != nil {
					log.WithError(err).Warn("heartbeat write failed")
					return
				}
			}
		}
	}()

	for {
		if g.ctx.Err() != nil {
			return nil
		}

		var event payload
		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if event.S != nil {
			g.mu.Lock()
			g.sequence = *event.S
			g.mu.Unlock()
		}

		switch event.Op {
		case opHeartbeat:
			g.mu.Lock()
			seq := g.sequence
			g.mu.Unlock()
			writeMu.Lock()
			conn.WriteJSON(payload{Op: opHeartbeat, S: &seq})
			writeMu.Unlock()
		case opHeartbeatAck:
			// nothing to do
		case opDispatch:
			g.dispatch(event)
		}
	}
}

func (g *Gateway) dispatch(event payload) {
	log := g.log.WithComponent("gateway")

	switch event.T {
	case "READY":
		var ready readyData
		if err := json.Unmarshal(event.D, &ready); err != nil {
			log.WithError(err).Warn("failed to decode ready event")
			return
		}
		g.mu.Lock()
		g.ownUserID = ready.User.ID
		g.mu.Unlock()
		log.WithFields(logger.Fields{"user_id": ready.User.ID}).Info("gateway session ready")
	case "MESSAGE_CREATE":
		var msg messageCreateData
		if err := json.Unmarshal(event.D, &msg); err != nil {
			log.WithError(err).Warn("failed to decode message event")
			return
		}
		g.handleMessage(msg)
	case "MESSAGE_REACTION_ADD":
		var reaction reactionAddData
		if err := json.Unmarshal(event.D, &reaction); err != nil {
			log.WithError(err).Warn("failed to decode reaction event")
			return
		}
		g.handleReaction(reaction)
	}
}

// channelName resolves and caches a channel's name. Gating happens on the
// name, the gateway only delivers ids.
func (g *Gateway) channelName(channelID string) string {
	g.mu.Lock()
	name, ok := g.channelNames[channelID]
	g.mu.Unlock()
	if ok {
		return name
	}

	var channel channelData
	if err := g.rest.do(g.ctx, "GET", "/channels/"+channelID, nil, &channel); err != nil {
		g.log.WithComponent("gateway").WithError(err).WithFields(logger.Fields{"channel_id": channelID}).
			Warn("failed to resolve channel name")
		return ""
	}

	g.mu.Lock()
	g.channelNames[channelID] = channel.Name
	g.mu.Unlock()
	return channel.Name
}

func (g *Gateway) handleMessage(msg messageCreateData) {
	if msg.Author.Bot {
		return
	}

	reply, ok := g.bot.Handle(bot.Message{
		ChannelID:   msg.ChannelID,
		ChannelName: g.channelName(msg.ChannelID),
		AuthorID:    msg.Author.ID,
		Content:     msg.Content,
	})
	if !ok || reply == nil {
		return
	}
	g.deliver(msg.ChannelID, msg.Author.ID, reply)
}

// deliver sends a reply: notices first, then the payload.
func (g *Gateway) deliver(channelID, authorID string, reply *bot.Reply) {
	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"channel_id": channelID})

	for _, notice := range reply.Notices {
		if err := g.rest.sendText(g.ctx, channelID, notice); err != nil {
			log.WithError(err).Warn("failed to send notice")
		}
	}

	switch {
	case reply.Plain != "":
		if err := g.rest.sendText(g.ctx, channelID, reply.Plain); err != nil {
			log.WithError(err).Warn("failed to send reply")
		}
	case reply.Embed != nil:
		if _, err := g.rest.sendEmbed(g.ctx, channelID, reply.Embed); err != nil {
			log.WithError(err).Warn("failed to send embed")
		}
	case reply.Pages != nil:
		g.deliverPages(channelID, authorID, reply.Pages)
	}
}

func (g *Gateway) deliverPages(channelID, authorID string, pages *format.Pages) {
	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"channel_id": channelID})

	messageID, err := g.rest.sendEmbed(g.ctx, channelID, g.bot.PageEmbed(pages))
	if err != nil {
		log.WithError(err).Warn("failed to send page embed")
		return
	}

	g.mu.Lock()
	g.sessions[messageID] = &pageSession{pages: pages, channelID: channelID, authorID: authorID}
	g.mu.Unlock()

	g.addPageReactions(channelID, messageID, pages)
}

func (g *Gateway) addPageReactions(channelID, messageID string, pages *format.Pages) {
	log := g.log.WithComponent("gateway").WithFields(logger.Fields{"message_id": messageID})
	if pages.HasPrev() {
		if err := g.rest.react(g.ctx, channelID, messageID, emojiPrev); err != nil {
			log.WithError(err).Warn("failed to add page reaction")
		}
	}
	if pages.HasNext() {
		if err := g.rest.react(g.ctx, channelID, messageID, emojiNext); err != nil {
			log.WithError(err).Warn("failed to add page reaction")
		}
	}
}

// handleReaction flips a tracked page listing. Reactions from other users,
// the bot itself or on untracked messages are ignored.
func (g *Gateway) handleReaction(reaction reactionAddData) {
	if reaction.Emoji.Name != emojiPrev && reaction.Emoji.Name != emojiNext {
		return
	}

	g.mu.Lock()
	session, ok := g.sessions[reaction.MessageID]
	ownUserID := g.ownUserID
	g.mu.Unlock()
	if !ok || reaction.UserID == ownUserID || reaction.UserID != session.authorID {
		return
	}

	if reaction.Emoji.Name == emojiPrev {
		session.pages.Prev()
	} else {
		session.pages.Next()
	}

	log := g.log.WithComponent("gateway").WithFields(logger.Fields{
		"message_id": reaction.MessageID,
		"page":       session.pages.Index(),
	})
	if err := g.rest.editEmbed(g.ctx, session.channelID, reaction.MessageID, g.bot.PageEmbed(session.pages)); err != nil {
		log.WithError(err).Warn("failed to edit page embed")
		return
	}
	if err := g.rest.clearReactions(g.ctx, session.channelID, reaction.MessageID); err != nil {
		log.WithError(err).Warn("failed to clear page reactions")
	}
	g.addPageReactions(session.channelID, reaction.MessageID, session.pages)
}
