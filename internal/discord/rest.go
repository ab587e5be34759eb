// Package discord implements the platform gateway over the Discord HTTP API
// and the realtime gateway websocket.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gimjb/create-vc-bot/internal/platform"
)

const (
	apiBase   = "https://discord.com/api/v10"
	userAgent = "DiscordBot (github.com/gimjb/create-vc-bot, 1.0)"

	channelTypeGuildVoice = 2
)

// APIError is a non-2xx response from the Discord API.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord: %d (code %d): %s", e.Status, e.Code, e.Message)
}

// NotFound reports whether err is a 404 from the API.
func NotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// REST is a minimal Discord HTTP API client covering the endpoints the bot
// needs.
type REST struct {
	http  *http.Client
	token string
	base  string
}

// NewREST creates a client authenticating as the given bot token.
func NewREST(token string) *REST {
	return &REST{
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
		base:  apiBase,
	}
}

// do performs one API request. A non-nil out receives the decoded response
// body.
func (r *REST) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+r.token)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// overwritePayload is the wire form of a permission overwrite. Permission
// bitsets travel as decimal strings.
type overwritePayload struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

// channelPayload is the wire form of a channel.
type channelPayload struct {
	ID         string             `json:"id"`
	Type       int                `json:"type"`
	GuildID    string             `json:"guild_id"`
	Name       string             `json:"name"`
	ParentID   *string            `json:"parent_id"`
	Overwrites []overwritePayload `json:"permission_overwrites"`
}

func encodeOverwrites(overwrites []platform.Overwrite) []overwritePayload {
	out := make([]overwritePayload, 0, len(overwrites))
	for _, ow := range overwrites {
		out = append(out, overwritePayload{
			ID:    ow.ID,
			Type:  ow.Type,
			Allow: strconv.FormatUint(ow.Allow, 10),
			Deny:  strconv.FormatUint(ow.Deny, 10),
		})
	}
	return out
}

func (p *channelPayload) toChannel() *platform.Channel {
	ch := &platform.Channel{
		ID:      p.ID,
		GuildID: p.GuildID,
		Name:    p.Name,
	}
	if p.ParentID != nil {
		ch.ParentID = *p.ParentID
	}
	for _, ow := range p.Overwrites {
		// Malformed bitsets parse as zero; an empty overwrite is harmless.
		allow, _ := strconv.ParseUint(ow.Allow, 10, 64)
		deny, _ := strconv.ParseUint(ow.Deny, 10, 64)
		ch.Overwrites = append(ch.Overwrites, platform.Overwrite{
			ID:    ow.ID,
			Type:  ow.Type,
			Allow: allow,
			Deny:  deny,
		})
	}
	return ch
}

// GatewayURL returns the websocket URL for the realtime gateway.
func (r *REST) GatewayURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := r.do(ctx, http.MethodGet, "/gateway/bot", nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Channel fetches a channel by ID.
func (r *REST) Channel(ctx context.Context, channelID string) (*channelPayload, error) {
	var out channelPayload
	if err := r.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGuildVoiceChannel creates a voice channel in the guild.
func (r *REST) CreateGuildVoiceChannel(ctx context.Context, spec platform.ChannelSpec) (*channelPayload, error) {
	body := struct {
		Name       string             `json:"name"`
		Type       int                `json:"type"`
		ParentID   string             `json:"parent_id,omitempty"`
		Overwrites []overwritePayload `json:"permission_overwrites"`
	}{
		Name:       spec.Name,
		Type:       channelTypeGuildVoice,
		ParentID:   spec.ParentID,
		Overwrites: encodeOverwrites(spec.Overwrites),
	}

	var out channelPayload
	if err := r.do(ctx, http.MethodPost, "/guilds/"+spec.GuildID+"/channels", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChannel deletes a channel by ID.
func (r *REST) DeleteChannel(ctx context.Context, channelID string) error {
	return r.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil)
}

// MoveMember moves a connected member into the given voice channel.
func (r *REST) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	body := struct {
		ChannelID string `json:"channel_id"`
	}{ChannelID: channelID}
	return r.do(ctx, http.MethodPatch, "/guilds/"+guildID+"/members/"+userID, body, nil)
}

// SetNickname sets the bot's own nickname in the guild.
func (r *REST) SetNickname(ctx context.Context, guildID, nick string) error {
	body := struct {
		Nick string `json:"nick"`
	}{Nick: nick}
	return r.do(ctx, http.MethodPatch, "/guilds/"+guildID+"/members/@me", body, nil)
}
