package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/Mephiles/torn-travelbot/bot"
	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logger"
)

const embedColor = 0x0099ff

// wire shapes for the message REST endpoints.
type apiEmbed struct {
	Author      *apiEmbedAuthor `json:"author,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color"`
	Fields      []apiEmbedField `json:"fields,omitempty"`
	Footer      *apiEmbedFooter `json:"footer,omitempty"`
}

type apiEmbedAuthor struct {
	Name string `json:"name"`
}

type apiEmbedFooter struct {
	Text string `json:"text"`
}

type apiEmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiMessage struct {
	Content string     `json:"content,omitempty"`
	Embeds  []apiEmbed `json:"embeds,omitempty"`
}

type apiMessageRef struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func toAPIEmbed(embed *bot.Embed) apiEmbed {
	out := apiEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embedColor,
	}
	if embed.Author != "" {
		out.Author = &apiEmbedAuthor{Name: embed.Author}
	}
	if embed.Footer != "" {
		out.Footer = &apiEmbedFooter{Text: embed.Footer}
	}
	for _, field := range embed.Fields {
		out.Fields = append(out.Fields, apiEmbedField{Name: field.Name, Value: field.Value})
	}
	return out
}

// restClient wraps the messaging REST API behind a shared rate limiter.
type restClient struct {
	base    string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

func newRESTClient(cfg *config.Config) *restClient {
	return &restClient{
		base:  cfg.Discord.APIBase,
		token: cfg.Discord.Token,
		client: &http.Client{
			Timeout: cfg.Reader.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.Reader.RateLimit.RequestsPerSecond), cfg.Reader.RateLimit.BurstSize),
		log:     logger.GetLogger(),
	}
}

func (c *restClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// sendText posts a plain text message.
func (c *restClient) sendText(ctx context.Context, channelID, content string) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", apiMessage{Content: content}, nil)
}

// sendEmbed posts an embed and returns the created message id, needed to
// attach page navigation reactions.
func (c *restClient) sendEmbed(ctx context.Context, channelID string, embed *bot.Embed) (string, error) {
	var created apiMessageRef
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages",
		apiMessage{Embeds: []apiEmbed{toAPIEmbed(embed)}}, &created)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// editEmbed replaces a message's embed in place.
func (c *restClient) editEmbed(ctx context.Context, channelID, messageID string, embed *bot.Embed) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID,
		apiMessage{Embeds: []apiEmbed{toAPIEmbed(embed)}}, nil)
}

// react adds the bot's own reaction to a message.
func (c *restClient) react(ctx context.Context, channelID, messageID, emoji string) error {
	return c.do(ctx, http.MethodPut,
		"/channels/"+channelID+"/messages/"+messageID+"/reactions/"+url.PathEscape(emoji)+"/@me", nil, nil)
}

// clearReactions removes every reaction from a message.
func (c *restClient) clearReactions(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete,
		"/channels/"+channelID+"/messages/"+messageID+"/reactions", nil, nil)
}
