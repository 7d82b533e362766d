package authclient

import (
	"encoding/json"
	"time"
)

const (
	BroadcastActionLogin  = "login"
	BroadcastActionLogout = "logout"
)

// broadcastRemoveDelay is how long a published message stays in the store
// before it is removed. The delete-after-write exists so that repeating the
// same action still produces a fresh change event; watchers do not fire when
// a value is rewritten unchanged.
const broadcastRemoveDelay = 100 * time.Millisecond

// BroadcastMessage is the transient payload published through the shared
// store when a session logs in or out.
type BroadcastMessage struct {
	Action    string `json:"action"`
	UserData  *User  `json:"userData,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Origin    string `json:"source"`
}

// Broadcaster announces login/logout events to sibling processes through a
// watchable store and delivers theirs back, filtering out its own origin so
// a process never reacts to its own announcements.
type Broadcaster struct {
	store  WatchableStore
	key    string
	origin string
	delay  time.Duration
	logger Logger
}

func NewBroadcaster(store WatchableStore, cfg Config) *Broadcaster {
	key := cfg.GetBroadcastKey()
	if key == "" {
		key = "auth_sync"
	}
	return &Broadcaster{
		store:  store,
		key:    key,
		origin: cfg.GetOriginHost(),
		delay:  broadcastRemoveDelay,
		logger: defLogger{},
	}
}

func (b *Broadcaster) WithLogger(logger Logger) *Broadcaster {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Publish writes the message under the broadcast key, then removes it shortly
// after so the key is free for the next event.
func (b *Broadcaster) Publish(action string, user *User) {
	msg := BroadcastMessage{
		Action:    action,
		UserData:  user,
		Timestamp: time.Now().UnixMilli(),
		Origin:    b.origin,
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("broadcast marshal failed", "error", err)
		return
	}

	if err := b.store.Set(b.key, string(raw)); err != nil {
		b.logger.Error("broadcast publish failed", "error", err)
		return
	}

	time.AfterFunc(b.delay, func() {
		if err := b.store.Delete(b.key); err != nil {
			b.logger.Error("broadcast cleanup failed", "error", err)
		}
	})
}

// Subscribe delivers messages published by other processes. Malformed
// payloads are logged and dropped; they never crash the subscriber.
func (b *Broadcaster) Subscribe(handler func(BroadcastMessage)) (func(), error) {
	return b.store.Subscribe(func(key, _, newValue string) {
		if key != b.key || newValue == "" {
			return
		}

		msg := BroadcastMessage{}
		if err := json.Unmarshal([]byte(newValue), &msg); err != nil {
			b.logger.Error("dropping malformed broadcast", "error", err)
			return
		}

		if msg.Origin == b.origin {
			return
		}

		handler(msg)
	})
}
