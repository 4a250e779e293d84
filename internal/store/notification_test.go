package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/teamforge/chatlink/internal/testutil"
	"github.com/teamforge/chatlink/internal/types"
)

func testNotification(id int, read bool) types.Notification {
	return types.Notification{
		Id:        id,
		Type:      "application_accepted",
		Title:     "Application accepted",
		Message:   "You were accepted to the project",
		IsRead:    read,
		ProjectId: 12,
		CreatedAt: time.Now().UTC(),
	}
}

func TestNotificationAdd(t *testing.T) {
	ns := NewNotificationStore(testutil.TestLogger(t))

	ns.Add(testNotification(1, false))
	ns.Add(testNotification(2, true))

	assert.Len(t, ns.Notifications(), 2, "expected both notifications to be stored")
	assert.Equal(t, 1, ns.Unread(), "expected only the unread notification to count")
}

func TestNotificationAddIdempotent(t *testing.T) {
	ns := NewNotificationStore(testutil.TestLogger(t))

	n := testNotification(1, false)
	ns.Add(n)
	ns.Add(n)

	assert.Len(t, ns.Notifications(), 1, "expected duplicate notification to collapse to one")
	assert.Equal(t, 1, ns.Unread(), "expected unread to be bumped exactly once")
}

func TestNotificationMarkAllRead(t *testing.T) {
	ns := NewNotificationStore(testutil.TestLogger(t))

	ns.Add(testNotification(1, false))
	ns.Add(testNotification(2, false))
	ns.MarkAllRead()

	assert.Equal(t, 0, ns.Unread(), "expected unread to be zero after mark all read")
	for _, n := range ns.Notifications() {
		assert.True(t, n.IsRead, "expected notification %d to be marked read", n.Id)
	}
}

func TestNotificationSetUnread(t *testing.T) {
	ns := NewNotificationStore(testutil.TestLogger(t))

	ns.Add(testNotification(1, false))
	ns.SetUnread(5)

	assert.Equal(t, 5, ns.Unread(), "expected server count to overwrite local counter")
}
