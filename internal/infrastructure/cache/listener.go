package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"clinicstock/pkg/logger"
)

// SettingsChannel is the PostgreSQL NOTIFY channel raised by the
// sys_inventory_settings trigger.
const SettingsChannel = "inventory_settings_changed"

// InvalidationListener is called for every notification received.
type InvalidationListener func(channel string, payload string)

// Invalidator drops a cached value.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// NotifyListener invalidates the settings cache when the policy row changes
// in PostgreSQL, including writes made outside this process. The
// sys_inventory_settings trigger raises the NOTIFY.
type NotifyListener struct {
	pool   *pgxpool.Pool
	target Invalidator

	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewNotifyListener creates a listener that invalidates target.
func NewNotifyListener(pool *pgxpool.Pool, target Invalidator) *NotifyListener {
	return &NotifyListener{pool: pool, target: target}
}

// Start begins listening in the background.
func (l *NotifyListener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "settings notify listener started", "channel", SettingsChannel)
}

// Stop cancels the listener and waits for it to exit.
func (l *NotifyListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "settings notify listener stopped")
}

// OnInvalidation registers an extra callback.
func (l *NotifyListener) OnInvalidation(fn InvalidationListener) {
	l.listenersMu.Lock()
	l.listeners = append(l.listeners, fn)
	l.listenersMu.Unlock()
}

func (l *NotifyListener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+SettingsChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *NotifyListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		// Bounded wait so shutdown is noticed.
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Warn(l.ctx, "notification wait failed, reconnecting", "error", err)
			return
		}

		logger.Debug(l.ctx, "received notification", "channel", n.Channel, "payload", n.Payload)
		l.handle(n.Channel, n.Payload)
	}
}

func (l *NotifyListener) handle(channel, payload string) {
	if err := l.target.Invalidate(l.ctx); err != nil {
		logger.Warn(l.ctx, "settings cache invalidation failed", "error", err)
	}

	l.listenersMu.RLock()
	defer l.listenersMu.RUnlock()
	for _, fn := range l.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(l.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			fn(channel, payload)
		}()
	}
}
