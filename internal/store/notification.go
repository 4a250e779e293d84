package store

import (
	"log"
	"sync"

	"github.com/teamforge/chatlink/internal/types"
)

// NotificationStore holds out-of-band alerts pushed on the notification
// channel. It is independent of the conversation store: its unread
// count is the server's, accepted verbatim from unread_count frames.
type NotificationStore struct {
	log *log.Logger

	mu      sync.RWMutex
	items   []types.Notification
	seen    map[int]struct{}
	unread  int
	updates chan struct{}
}

func NewNotificationStore(logger *log.Logger) *NotificationStore {
	return &NotificationStore{
		log:     logger,
		seen:    make(map[int]struct{}),
		updates: make(chan struct{}, 64),
	}
}

func (ns *NotificationStore) Updates() <-chan struct{} {
	return ns.updates
}

func (ns *NotificationStore) notify() {
	select {
	case ns.updates <- struct{}{}:
	default:
	}
}

// Add inserts a pushed notification, ignoring redeliveries by id.
func (ns *NotificationStore) Add(n types.Notification) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, ok := ns.seen[n.Id]; ok {
		ns.log.Printf("duplicate notification %d, ignoring", n.Id)
		return
	}

	ns.items = append(ns.items, n)
	ns.seen[n.Id] = struct{}{}
	if !n.IsRead {
		ns.unread++
	}

	ns.notify()
}

func (ns *NotificationStore) MarkAllRead() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	for i := range ns.items {
		ns.items[i].IsRead = true
	}
	ns.unread = 0
	ns.notify()
}

// SetUnread overwrites the local counter with the server's
// authoritative count.
func (ns *NotificationStore) SetUnread(count int) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.unread = count
	ns.notify()
}

func (ns *NotificationStore) Unread() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	return ns.unread
}

func (ns *NotificationStore) Notifications() []types.Notification {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	items := make([]types.Notification, len(ns.items))
	copy(items, ns.items)
	return items
}
