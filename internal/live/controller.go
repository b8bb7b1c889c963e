// Package live manages the board-wide live broadcast link.
package live

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

// Controller starts and stops the live session. Both transitions overwrite
// the previous state; the last writer wins.
type Controller struct {
	store     store.Store
	publisher broadcast.Publisher
	logger    logger.Logger
	now       func() time.Time
}

func NewController(s store.Store, pub broadcast.Publisher, log logger.Logger, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{store: s, publisher: pub, logger: log, now: now}
}

func (c *Controller) Status(ctx context.Context) (domain.LiveSession, error) {
	var session domain.LiveSession
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		session, err = tx.Live()
		return err
	})
	if err != nil {
		return domain.LiveSession{}, store.Wrap("read live session", err)
	}
	return session, nil
}

// Start turns the session on with link.
func (c *Controller) Start(ctx context.Context, link, user string) (domain.LiveSession, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.LiveSession{}, domain.InvalidInput("link is required")
	}

	now := c.now().UTC()
	session := domain.LiveSession{Status: domain.LiveOn, Link: &link, StartedAt: &now}
	if err := c.put(ctx, session); err != nil {
		return domain.LiveSession{}, err
	}

	c.logger.Info("live session started",
		logger.String("link", link),
		logger.String("user", user))
	return session, nil
}

// Stop turns the session off and clears the link.
func (c *Controller) Stop(ctx context.Context, user string) (domain.LiveSession, error) {
	now := c.now().UTC()
	session := domain.LiveSession{Status: domain.LiveOff, StoppedAt: &now}
	if err := c.put(ctx, session); err != nil {
		return domain.LiveSession{}, err
	}

	c.logger.Info("live session stopped", logger.String("user", user))
	return session, nil
}

func (c *Controller) put(ctx context.Context, session domain.LiveSession) error {
	err := c.store.Update(ctx, func(tx store.Tx) error {
		return tx.PutLive(session)
	})
	if err != nil {
		return store.Wrap("save live session", err)
	}
	c.publisher.Publish(broadcast.TopicLiveChanged, broadcast.LiveChanged{
		Status: session.Status,
		Link:   session.Link,
	})
	return nil
}
