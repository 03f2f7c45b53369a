// Package notify posts matchmaking events to a Discord webhook. The
// sink is fire-and-forget: it never blocks the event loop and drops
// work when the webhook cannot keep up.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/iwango/server/internal/game"
)

const (
	maxInFlight       = 5
	embedColor        = 9118205
	lobbyJoinInterval = 5 * time.Minute
)

// Discord implements world.Notifier against a Discord webhook URL.
type Discord struct {
	url    string
	client *retryablehttp.Client
	sem    *semaphore.Weighted
	log    *zap.Logger

	mu            sync.Mutex
	lastLobbyPost time.Time
	now           func() time.Time
}

func NewDiscord(url string, log *zap.Logger) *Discord {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Discord{
		url:    url,
		client: client,
		sem:    semaphore.NewWeighted(maxInFlight),
		log:    log.Named("discord"),
		now:    time.Now,
	}
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Author      embedAuthor `json:"author"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
}

// LobbyJoined announces a player entering a lobby, at most once per
// rate-limit window so a busy evening doesn't flood the channel.
func (d *Discord) LobbyJoined(title *game.Title, player, lobby string, members []string) {
	d.mu.Lock()
	if d.now().Sub(d.lastLobbyPost) < lobbyJoinInterval {
		d.mu.Unlock()
		return
	}
	d.lastLobbyPost = d.now()
	d.mu.Unlock()

	d.post(title, "Player **"+player+"** joined lobby ***"+lobby+"***", members)
}

// TeamCreated announces a freshly created team.
func (d *Discord) TeamCreated(title *game.Title, player, team string, members []string) {
	d.post(title, "Player **"+player+"** created team ***"+team+"***", members)
}

func (d *Discord) post(title *game.Title, content string, members []string) {
	if d.url == "" {
		return
	}
	if !d.sem.TryAcquire(1) {
		d.log.Warn("webhook busy, notification dropped")
		return
	}

	payload := webhookPayload{
		Content: content,
		Embeds: []embed{{
			Author: embedAuthor{
				Name:    title.Name,
				IconURL: title.Icon,
			},
			Title:       "Lobby Players",
			Description: strings.Join(members, "\n") + "\n",
			Color:       embedColor,
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.sem.Release(1)
		d.log.Error("marshal notification", zap.Error(err))
		return
	}

	go func() {
		defer d.sem.Release(1)

		req, err := retryablehttp.NewRequest(http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			d.log.Error("build webhook request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "DCNet-DiscordWebhook")

		resp, err := d.client.Do(req)
		if err != nil {
			d.log.Warn("webhook post failed", zap.Error(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			d.log.Warn("webhook rejected", zap.Int("status", resp.StatusCode))
		}
	}()
}
