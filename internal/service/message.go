package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"concord/internal/cache"
	"concord/internal/domain"
	"concord/internal/event"
	"concord/internal/observability/metrics"
	"concord/internal/store"

	"github.com/google/uuid"
)

// ErrNotAllowed is what non-authors see on edit and delete; inside the
// socket pipeline it travels as an Error frame rather than an HTTP status.
var ErrNotAllowed = errors.New("Not allowed")

// MessageService is the send/edit/delete state machine: author-only
// mutation, durable write, cache-coherent read path, ordered broadcast.
type MessageService struct {
	store  *store.Store
	cache  cache.Cache
	pubsub cache.Publisher
	perms  *PermissionService
	now    func() time.Time
}

func NewMessageService(st *store.Store, c cache.Cache, ps cache.Publisher, perms *PermissionService) *MessageService {
	return &MessageService{
		store:  st,
		cache:  c,
		pubsub: ps,
		perms:  perms,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// channelByID reads a channel through its cache key: one minute fresh on
// read-through, half an hour when repopulated by a write path.
func (m *MessageService) channelByID(ctx context.Context, id domain.ChannelID) (*domain.Channel, error) {
	var ch domain.Channel
	if err := m.cache.Get(ctx, cache.KeyChannel(id), &ch); err == nil {
		return &ch, nil
	}
	chp, err := m.store.Channels().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = m.cache.Set(ctx, cache.KeyChannel(id), chp, cache.TTLChannelFresh)
	return chp, nil
}

// authorProfile inlines the author's cached public profile into outbound
// messages.
func (m *MessageService) authorProfile(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	if err := m.cache.Get(ctx, cache.KeyUser(id), &u); err == nil {
		return &u, nil
	}
	up, err := m.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := up.Public()
	_ = m.cache.Set(ctx, cache.KeyUser(id), pub, cache.TTLUser)
	return &pub, nil
}

// Send persists a message and broadcasts it on the channel's topic. The
// caller must be a guild member holding SendMessage on the channel.
func (m *MessageService) Send(ctx context.Context, callerID domain.UserID, channelID domain.ChannelID, text string, replyTo *uuid.UUID) (*domain.Message, error) {
	result := "success"
	defer func() { metrics.MessagesTotal.WithLabelValues("send", result).Inc() }()

	if text == "" || len(text) > domain.MaxMessageLength {
		result = "failure"
		return nil, fmt.Errorf("%w: message length", domain.ErrBadRequest)
	}
	ch, err := m.channelByID(ctx, channelID)
	if err != nil {
		result = "failure"
		return nil, err
	}
	member, err := m.perms.MemberOf(ctx, ch.GuildID, callerID)
	if err != nil {
		result = "failure"
		return nil, err
	}
	if err := m.perms.RequireChannel(ctx, member, channelID, domain.PermSendMessage); err != nil {
		result = "failure"
		return nil, err
	}

	msg := &domain.Message{
		ID:        domain.NewID(),
		ChannelID: channelID,
		AuthorID:  callerID,
		Text:      text,
		ReplyTo:   replyTo,
	}
	if err := m.store.Messages().Create(ctx, msg); err != nil {
		result = "failure"
		return nil, err
	}

	user, err := m.authorProfile(ctx, callerID)
	if err == nil {
		msg.User = user
	}
	m.publish(ctx, channelID, event.New(event.MessageSend, msg))
	return msg, nil
}

// Edit updates the text of the caller's own message. Someone else's message
// yields an Error frame on the channel topic and no write.
func (m *MessageService) Edit(ctx context.Context, callerID domain.UserID, channelID domain.ChannelID, messageID domain.MessageID, text string) error {
	result := "success"
	defer func() { metrics.MessagesTotal.WithLabelValues("edit", result).Inc() }()

	if text == "" || len(text) > domain.MaxMessageLength {
		result = "failure"
		return fmt.Errorf("%w: message length", domain.ErrBadRequest)
	}
	msg, err := m.loadOwned(ctx, callerID, channelID, messageID)
	if err != nil {
		result = "failure"
		return err
	}
	if err := m.store.Messages().UpdateText(ctx, messageID, text); err != nil {
		result = "failure"
		return err
	}
	msg.Text = text
	if user, uerr := m.authorProfile(ctx, msg.AuthorID); uerr == nil {
		msg.User = user
	}
	m.publish(ctx, channelID, event.New(event.MessageEdit, msg))
	return nil
}

// Delete removes the caller's own message.
func (m *MessageService) Delete(ctx context.Context, callerID domain.UserID, channelID domain.ChannelID, messageID domain.MessageID) error {
	result := "success"
	defer func() { metrics.MessagesTotal.WithLabelValues("delete", result).Inc() }()

	if _, err := m.loadOwned(ctx, callerID, channelID, messageID); err != nil {
		result = "failure"
		return err
	}
	if err := m.store.Messages().Delete(ctx, messageID); err != nil {
		result = "failure"
		return err
	}
	m.publish(ctx, channelID, event.New(event.MessageDelete, event.DeleteEntity{
		ChannelUUID: channelID,
		UUID:        messageID,
	}))
	return nil
}

// loadOwned enforces the two mutation invariants: the message lives in the
// named channel and the caller wrote it.
func (m *MessageService) loadOwned(ctx context.Context, callerID domain.UserID, channelID domain.ChannelID, messageID domain.MessageID) (*domain.Message, error) {
	ch, err := m.channelByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := m.perms.MemberOf(ctx, ch.GuildID, callerID); err != nil {
		return nil, err
	}
	msg, err := m.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ChannelID != channelID {
		return nil, domain.ErrNotFound
	}
	if msg.AuthorID != callerID {
		m.publish(ctx, channelID, event.NewError(ErrNotAllowed.Error()))
		return nil, ErrNotAllowed
	}
	return msg, nil
}

// History pages messages newest-first, authors inlined, at most 100 per read.
func (m *MessageService) History(ctx context.Context, callerID domain.UserID, channelID domain.ChannelID, amount, offset int) ([]domain.Message, error) {
	ch, err := m.channelByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := m.perms.MemberOf(ctx, ch.GuildID, callerID); err != nil {
		return nil, err
	}
	msgs, err := m.store.Messages().History(ctx, channelID, amount, offset)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if user, uerr := m.authorProfile(ctx, msgs[i].AuthorID); uerr == nil {
			msgs[i].User = user
		}
	}
	return msgs, nil
}

func (m *MessageService) publish(ctx context.Context, channelID domain.ChannelID, env event.Envelope) {
	if err := m.pubsub.Publish(ctx, channelID.String(), env); err != nil {
		slog.Error("publish event", "channel_id", channelID, "event", env.Event, "error", err)
	}
}
