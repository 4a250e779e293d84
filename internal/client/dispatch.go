package client

import (
	"log"

	"github.com/teamforge/chatlink/internal/protocol"
	"github.com/teamforge/chatlink/internal/stats"
	"github.com/teamforge/chatlink/internal/store"
)

// ChatDispatcher routes inbound chat frames into the conversation
// store. Malformed payloads and unknown frame types are logged and
// dropped; a bad frame never interrupts the channel.
type ChatDispatcher struct {
	log   *log.Logger
	stats stats.StatsProvider
	convs *store.ConversationStore
	errFn func(string)
}

// NewChatDispatcher creates a dispatcher feeding convs. errFn receives
// server-sent application errors; it may be nil.
func NewChatDispatcher(convs *store.ConversationStore, logger *log.Logger, st stats.StatsProvider, errFn func(string)) *ChatDispatcher {
	st.RegisterMetric("MessagesReceived")

	return &ChatDispatcher{
		log:   logger,
		stats: st,
		convs: convs,
		errFn: errFn,
	}
}

func (d *ChatDispatcher) HandleFrame(env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeConnected:
		d.log.Println("chat channel ready")
	case protocol.TypeNewMessage:
		msg, err := env.DecodeMessage()
		if err != nil {
			d.log.Printf("dropping new_message frame: %v", err)
			return
		}

		d.convs.AppendLive(msg)
		d.stats.Incr("MessagesReceived")
	case protocol.TypeMessagesRead:
		rr, err := env.DecodeReadReceipt()
		if err != nil {
			d.log.Printf("dropping messages_marked_read frame: %v", err)
			return
		}

		d.convs.MarkRead(rr.ChatId)
	case protocol.TypeError:
		info, err := env.DecodeError()
		if err != nil {
			d.log.Printf("dropping error frame: %v", err)
			return
		}

		d.log.Printf("chat server error: %s", info.Error)
		if d.errFn != nil {
			d.errFn(info.Error)
		}
	default:
		d.log.Printf("ignoring unknown chat frame type %q", env.Type)
	}
}

// NotificationDispatcher routes inbound notification frames into the
// notification store.
type NotificationDispatcher struct {
	log    *log.Logger
	stats  stats.StatsProvider
	notifs *store.NotificationStore
	errFn  func(string)
}

func NewNotificationDispatcher(notifs *store.NotificationStore, logger *log.Logger, st stats.StatsProvider, errFn func(string)) *NotificationDispatcher {
	st.RegisterMetric("NotificationsReceived")

	return &NotificationDispatcher{
		log:    logger,
		stats:  st,
		notifs: notifs,
		errFn:  errFn,
	}
}

func (d *NotificationDispatcher) HandleFrame(env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeConnected:
		d.log.Println("notification channel ready")
	case protocol.TypeNewNotification:
		n, err := env.DecodeNotification()
		if err != nil {
			d.log.Printf("dropping new_notification frame: %v", err)
			return
		}

		d.notifs.Add(n)
		d.stats.Incr("NotificationsReceived")
	case protocol.TypeMarkedRead:
		d.notifs.MarkAllRead()
	case protocol.TypeUnreadCount:
		uc, err := env.DecodeUnreadCount()
		if err != nil {
			d.log.Printf("dropping unread_count frame: %v", err)
			return
		}

		d.notifs.SetUnread(uc.Count)
	case protocol.TypeError:
		info, err := env.DecodeError()
		if err != nil {
			d.log.Printf("dropping error frame: %v", err)
			return
		}

		d.log.Printf("notification server error: %s", info.Error)
		if d.errFn != nil {
			d.errFn(info.Error)
		}
	default:
		d.log.Printf("ignoring unknown notification frame type %q", env.Type)
	}
}
