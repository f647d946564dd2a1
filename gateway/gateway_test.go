package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Mephiles/torn-travelbot/bot"
	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/format"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/resolver"
	"github.com/Mephiles/torn-travelbot/store"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			buf := make([]byte, 4096)
			n, _ := r.Body.Read(buf)
			body = buf[:n]
		}
		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		api.mu.Unlock()

		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(apiMessageRef{ID: "msg-1", ChannelID: "chan-1"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (api *fakeAPI) recorded() []recordedRequest {
	api.mu.Lock()
	defer api.mu.Unlock()
	out := make([]recordedRequest, len(api.requests))
	copy(out, api.requests)
	return out
}

func testGatewayConfig(apiBase string) *config.Config {
	return &config.Config{
		Travelbot: config.TravelbotConfig{
			Name:             "TravelBot",
			Command:          "travel",
			CommandPrefix:    "!",
			ChannelName:      "travel-info",
			DefaultLogsCount: 10,
		},
		Reader: config.ReaderConfig{
			Timeout: 5 * time.Second,
			RateLimit: config.RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         10,
			},
		},
		Discord: config.DiscordConfig{
			Enabled: true,
			Token:   "bot-token",
			APIBase: apiBase,
		},
	}
}

func testPages(t *testing.T, cfg *config.Config) (*bot.Bot, *format.Pages) {
	t.Helper()

	catalog := store.NewCatalog()
	stocks := store.NewStock()
	catalog.Replace(models.CatalogSnapshot{
		Items: map[int]models.Item{
			206: {ID: 206, Name: "Xanax", MarketValue: 830_000, Category: models.CategoryDrug},
		},
		FetchedAt: time.Unix(1000, 0),
	})
	stocks.Replace(models.StockSnapshot{
		Countries: map[string]models.CountryStock{
			"mex": {
				UpdatedAt: time.Unix(1000, 0).UTC(),
				Entries: []models.StockEntry{
					{ItemID: 206, Name: "Xanax", Cost: 530_000, Quantity: 3, Category: models.CategoryDrug},
				},
			},
		},
		FetchedAt: time.Unix(1000, 0),
	})

	fmtr := format.New(catalog, stocks)
	b := bot.New(cfg, resolver.New(catalog), fmtr, catalog, stocks, logring.New(10, nil))

	pages, ok := fmtr.Country("mex")
	if !ok {
		t.Fatal("country listing not built")
	}
	return b, pages
}

func TestRESTClientSendText(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(testGatewayConfig(api.server.URL))

	if err := client.sendText(context.Background(), "chan-1", "Pong!"); err != nil {
		t.Fatalf("sendText: %v", err)
	}

	requests := api.recorded()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	req := requests[0]
	if req.Method != http.MethodPost || req.Path != "/channels/chan-1/messages" {
		t.Errorf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bot bot-token" {
		t.Errorf("authorization = %q", req.Auth)
	}
	var msg apiMessage
	if err := json.Unmarshal(req.Body, &msg); err != nil || msg.Content != "Pong!" {
		t.Errorf("body = %s", req.Body)
	}
}

func TestRESTClientSendEmbed(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(testGatewayConfig(api.server.URL))

	id, err := client.sendEmbed(context.Background(), "chan-1", &bot.Embed{
		Author: "TravelBot - Mexico",
		Fields: []bot.Field{{Name: "Xanax", Value: "Cost: $530,000"}},
		Footer: "Brought to you by: Mephiles [2087524]",
	})
	if err != nil {
		t.Fatalf("sendEmbed: %v", err)
	}
	if id != "msg-1" {
		t.Errorf("message id = %q", id)
	}

	var msg apiMessage
	if err := json.Unmarshal(api.recorded()[0].Body, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(msg.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(msg.Embeds))
	}
	embed := msg.Embeds[0]
	if embed.Author == nil || embed.Author.Name != "TravelBot - Mexico" {
		t.Errorf("author = %+v", embed.Author)
	}
	if embed.Color != embedColor {
		t.Errorf("color = %#x", embed.Color)
	}
	if embed.Footer == nil || embed.Footer.Text != "Brought to you by: Mephiles [2087524]" {
		t.Errorf("footer = %+v", embed.Footer)
	}
}

func TestRESTClientReactEscapesEmoji(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(testGatewayConfig(api.server.URL))

	if err := client.react(context.Background(), "chan-1", "msg-1", emojiNext); err != nil {
		t.Fatalf("react: %v", err)
	}

	want := "/channels/chan-1/messages/msg-1/reactions/" + url.PathEscape(emojiNext) + "/@me"
	if got := api.recorded()[0].Path; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestDeliverPagesRegistersSession(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testGatewayConfig(api.server.URL)
	b, pages := testPages(t, cfg)

	g := New(cfg, b)
	g.ctx = context.Background()

	g.deliverPages("chan-1", "author-1", pages)

	if _, ok := g.sessions["msg-1"]; !ok {
		t.Fatal("page session not registered")
	}

	requests := api.recorded()
	// First page of four: send plus a single forward reaction.
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if requests[1].Method != http.MethodPut {
		t.Errorf("second request = %s %s, want reaction PUT", requests[1].Method, requests[1].Path)
	}
}

func TestHandleReactionFlipsPage(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testGatewayConfig(api.server.URL)
	b, pages := testPages(t, cfg)

	g := New(cfg, b)
	g.ctx = context.Background()
	g.ownUserID = "bot-user"
	g.sessions["msg-1"] = &pageSession{pages: pages, channelID: "chan-1", authorID: "author-1"}

	react := func(userID, emoji string) {
		g.handleReaction(reactionAddData{
			UserID:    userID,
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Emoji:     struct{ Name string `json:"name"` }{Name: emoji},
		})
	}

	// Other users and the bot itself are ignored.
	react("stranger", emojiNext)
	react("bot-user", emojiNext)
	if pages.Index() != 0 || len(api.recorded()) != 0 {
		t.Fatal("unauthorized reactions must not navigate")
	}

	react("author-1", emojiNext)
	if pages.Index() != 1 {
		t.Errorf("index = %d, want 1", pages.Index())
	}

	requests := api.recorded()
	if len(requests) < 2 {
		t.Fatalf("requests = %d, want edit + reaction maintenance", len(requests))
	}
	if requests[0].Method != http.MethodPatch {
		t.Errorf("first request = %s, want PATCH", requests[0].Method)
	}
	if requests[1].Method != http.MethodDelete {
		t.Errorf("second request = %s, want DELETE", requests[1].Method)
	}

	// Back to the first page clamps there.
	react("author-1", emojiPrev)
	react("author-1", emojiPrev)
	if pages.Index() != 0 {
		t.Errorf("index = %d, want 0 after clamped prev", pages.Index())
	}
}
