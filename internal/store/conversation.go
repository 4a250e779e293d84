package store

import (
	"log"
	"sync"

	"github.com/teamforge/chatlink/internal/types"
)

// Conversation is the client-side view of one 1:1 chat: history plus
// live-pushed messages in ascending creation order, and an unread
// counter.
type Conversation struct {
	ChatId   int
	Messages []types.Message
	Unread   int

	seen map[int]struct{}
}

func (c *Conversation) has(msgId int) bool {
	_, ok := c.seen[msgId]
	return ok
}

func (c *Conversation) add(msg types.Message) {
	c.Messages = append(c.Messages, msg)
	c.seen[msg.Id] = struct{}{}
}

// ConversationStore caches conversations for the session. It is mutated
// by the chat dispatcher and by explicit UI calls; all mutations go
// through the store's lock.
type ConversationStore struct {
	log       *log.Logger
	localUser int

	mu      sync.RWMutex
	active  int
	convs   map[int]*Conversation
	updates chan int
}

func NewConversationStore(localUser int, logger *log.Logger) *ConversationStore {
	return &ConversationStore{
		log:       logger,
		localUser: localUser,
		convs:     make(map[int]*Conversation),
		updates:   make(chan int, 64),
	}
}

// Updates delivers the chat id of every conversation that changed.
// Consumers that fall behind miss notifications, not state.
func (cs *ConversationStore) Updates() <-chan int {
	return cs.updates
}

func (cs *ConversationStore) notify(chatId int) {
	select {
	case cs.updates <- chatId:
	default:
	}
}

func (cs *ConversationStore) conversation(chatId int) *Conversation {
	conv, ok := cs.convs[chatId]
	if !ok {
		conv = &Conversation{
			ChatId: chatId,
			seen:   make(map[int]struct{}),
		}
		cs.convs[chatId] = conv
	}

	return conv
}

// LoadHistory seeds a conversation from a REST history page. The server
// returns pages newest-first; they are reversed here so Messages is
// ascending. Any previously held messages for the chat are replaced,
// the unread counter is untouched.
func (cs *ConversationStore) LoadHistory(chatId int, page []types.Message) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv := cs.conversation(chatId)
	conv.Messages = make([]types.Message, 0, len(page))
	conv.seen = make(map[int]struct{}, len(page))

	for i := len(page) - 1; i >= 0; i-- {
		if conv.has(page[i].Id) {
			continue
		}
		conv.add(page[i])
	}

	cs.log.Printf("loaded %d messages for chat %d", len(conv.Messages), chatId)
	cs.notify(chatId)
}

// AppendLive inserts a live-pushed message. The insert is idempotent on
// the message id, so a frame redelivered by the server or echoing a
// message already present from history collapses to one entry. Unread
// is bumped only for messages from the other participant in a
// conversation that is not currently active.
func (cs *ConversationStore) AppendLive(msg types.Message) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv := cs.conversation(msg.ChatId)
	if conv.has(msg.Id) {
		cs.log.Printf("duplicate message %d for chat %d, ignoring", msg.Id, msg.ChatId)
		return
	}

	conv.add(msg)
	if msg.SenderId != cs.localUser && msg.ChatId != cs.active {
		conv.Unread++
	}

	cs.notify(msg.ChatId)
}

func (cs *ConversationStore) MarkRead(chatId int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	conv, ok := cs.convs[chatId]
	if !ok {
		return
	}

	conv.Unread = 0
	cs.notify(chatId)
}

// SetActive records the conversation the user is currently viewing.
// Live messages for the active conversation do not count as unread.
// Zero means no conversation is focused.
func (cs *ConversationStore) SetActive(chatId int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.active = chatId
}

func (cs *ConversationStore) Unread(chatId int) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if conv, ok := cs.convs[chatId]; ok {
		return conv.Unread
	}

	return 0
}

// TotalUnread recomputes the aggregate from the per-conversation
// counters on every call rather than tracking it incrementally.
func (cs *ConversationStore) TotalUnread() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var total int
	for _, conv := range cs.convs {
		total += conv.Unread
	}

	return total
}

func (cs *ConversationStore) Messages(chatId int) []types.Message {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	conv, ok := cs.convs[chatId]
	if !ok {
		return nil
	}

	msgs := make([]types.Message, len(conv.Messages))
	copy(msgs, conv.Messages)
	return msgs
}
