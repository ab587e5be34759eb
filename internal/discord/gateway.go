package discord

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gimjb/create-vc-bot/internal/platform"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// intents: Guilds (1<<0) + GuildVoiceStates (1<<7).
const gatewayIntents = 1<<0 | 1<<7

// Config holds what the session needs to authenticate and present itself.
type Config struct {
	Token    string
	Nickname string
}

// Session maintains the realtime gateway connection and implements
// platform.Gateway. Voice membership events are exposed on Events().
type Session struct {
	rest   *REST
	cfg    Config
	logger zerolog.Logger
	state  *voiceStates
	events chan platform.VoiceEvent

	writeMu sync.Mutex
	conn    *websocket.Conn

	seqMu sync.Mutex
	seq   int64
}

// NewSession creates a disconnected session; call Run to connect.
func NewSession(cfg Config, logger zerolog.Logger) *Session {
	return &Session{
		rest:   NewREST(cfg.Token),
		cfg:    cfg,
		logger: logger.With().Str("component", "discord").Logger(),
		state:  newVoiceStates(),
		events: make(chan platform.VoiceEvent, 256),
	}
}

// Events returns the voice membership event stream, in gateway delivery
// order.
func (s *Session) Events() <-chan platform.VoiceEvent {
	return s.events
}

// Run connects to the gateway and reconnects with backoff until ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("gateway disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

// gatewayPayload is the envelope for every gateway message.
type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// connectOnce runs one gateway connection to completion: dial, hello,
// identify, then read until the socket dies.
func (s *Session) connectOnce(ctx context.Context) error {
	gatewayURL, err := s.rest.GatewayURL(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, gatewayURL+"/?v=10&encoding=json", nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()

	// Hello carries the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return err
	}
	if hello.Op != opHello {
		return &APIError{Message: "gateway handshake: expected hello"}
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return err
	}

	if err := s.identify(); err != nil {
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeat(hbCtx, time.Duration(helloData.HeartbeatInterval)*time.Millisecond)

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return err
		}
		if payload.S != 0 {
			s.setSeq(payload.S)
		}

		switch payload.Op {
		case opDispatch:
			s.handleDispatch(ctx, payload.T, payload.D)
		case opHeartbeat:
			s.sendHeartbeat()
		case opReconnect, opInvalidSession:
			return &APIError{Message: "gateway requested reconnect"}
		case opHeartbeatACK:
			// nothing to do
		}
	}
}

func (s *Session) identify() error {
	return s.write(gatewayPayload{
		Op: opIdentify,
		D: mustMarshal(struct {
			Token      string `json:"token"`
			Intents    int    `json:"intents"`
			Properties struct {
				OS      string `json:"os"`
				Browser string `json:"browser"`
				Device  string `json:"device"`
			} `json:"properties"`
		}{
			Token:   s.cfg.Token,
			Intents: gatewayIntents,
			Properties: struct {
				OS      string `json:"os"`
				Browser string `json:"browser"`
				Device  string `json:"device"`
			}{OS: "linux", Browser: "create-vc-bot", Device: "create-vc-bot"},
		}),
	})
}

func (s *Session) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

func (s *Session) sendHeartbeat() {
	if err := s.write(gatewayPayload{Op: opHeartbeat, D: mustMarshal(s.getSeq())}); err != nil {
		s.logger.Warn().Err(err).Msg("heartbeat write failed")
	}
}

func (s *Session) write(payload gatewayPayload) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

func (s *Session) setSeq(seq int64) {
	s.seqMu.Lock()
	s.seq = seq
	s.seqMu.Unlock()
}

func (s *Session) getSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	return s.seq
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// handleDispatch routes op-0 events.
func (s *Session) handleDispatch(ctx context.Context, event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			s.logger.Error().Err(err).Msg("bad READY payload")
			return
		}
		s.logger.Info().Str("username", ready.User.Username).Msg("logged in")

	case "GUILD_CREATE":
		var guild struct {
			ID          string `json:"id"`
			VoiceStates []struct {
				UserID    string  `json:"user_id"`
				ChannelID *string `json:"channel_id"`
			} `json:"voice_states"`
		}
		if err := json.Unmarshal(data, &guild); err != nil {
			s.logger.Error().Err(err).Msg("bad GUILD_CREATE payload")
			return
		}
		for _, vs := range guild.VoiceStates {
			if vs.ChannelID != nil {
				s.state.apply(guild.ID, vs.UserID, *vs.ChannelID)
			}
		}
		if s.cfg.Nickname != "" {
			go func(guildID string) {
				if err := s.SetNickname(ctx, guildID, s.cfg.Nickname); err != nil {
					s.logger.Warn().Err(err).Str("guild_id", guildID).Msg("nickname update failed")
				}
			}(guild.ID)
		}

	case "VOICE_STATE_UPDATE":
		var vs struct {
			GuildID   string  `json:"guild_id"`
			ChannelID *string `json:"channel_id"`
			UserID    string  `json:"user_id"`
			Member    struct {
				User struct {
					Username string `json:"username"`
				} `json:"user"`
			} `json:"member"`
		}
		if err := json.Unmarshal(data, &vs); err != nil {
			s.logger.Error().Err(err).Msg("bad VOICE_STATE_UPDATE payload")
			return
		}
		if vs.GuildID == "" {
			return
		}

		newChannel := ""
		if vs.ChannelID != nil {
			newChannel = *vs.ChannelID
		}
		old := s.state.apply(vs.GuildID, vs.UserID, newChannel)

		ev := platform.VoiceEvent{
			GuildID:      vs.GuildID,
			UserID:       vs.UserID,
			Username:     vs.Member.User.Username,
			OldChannelID: old,
			NewChannelID: newChannel,
		}
		select {
		case s.events <- ev:
		default:
			s.logger.Warn().Str("guild_id", ev.GuildID).Msg("event buffer full, dropping voice event")
		}
	}
}

// CreateVoiceChannel creates a guild voice channel per the spec.
func (s *Session) CreateVoiceChannel(ctx context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	payload, err := s.rest.CreateGuildVoiceChannel(ctx, spec)
	if err != nil {
		return nil, err
	}
	return payload.toChannel(), nil
}

// FetchChannel returns the channel with its live member count, or (nil, nil)
// if it no longer exists.
func (s *Session) FetchChannel(ctx context.Context, guildID, channelID string) (*platform.Channel, error) {
	payload, err := s.rest.Channel(ctx, channelID)
	if err != nil {
		if NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	ch := payload.toChannel()
	if ch.GuildID == "" {
		ch.GuildID = guildID
	}
	ch.MemberCount = s.state.count(channelID)
	return ch, nil
}

// MoveMember moves a connected member into the given voice channel.
func (s *Session) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return s.rest.MoveMember(ctx, guildID, userID, channelID)
}

// DeleteChannel deletes the channel and forgets its voice state.
func (s *Session) DeleteChannel(ctx context.Context, channelID string) error {
	if err := s.rest.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	s.state.dropChannel(channelID)
	return nil
}

// SetNickname sets the bot's nickname in the guild.
func (s *Session) SetNickname(ctx context.Context, guildID, nick string) error {
	return s.rest.SetNickname(ctx, guildID, nick)
}
