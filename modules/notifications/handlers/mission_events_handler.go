package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ipsco/fleet/modules/core/domain/aggregates/actor"
	"github.com/ipsco/fleet/modules/dispatch/domain/aggregates/mission"
	"github.com/ipsco/fleet/modules/notifications/domain/notification"
	"github.com/ipsco/fleet/pkg/eventbus"
)

const scheduleLayout = "02/01/2006 15:04"

type Notifier interface {
	Dispatch(ctx context.Context, to notification.Recipient, msg notification.Message) notification.DispatchResult
}

// MissionEventsHandler turns mission transitions into notifications. Work runs
// on its own goroutine so the publishing request is never held up.
type MissionEventsHandler struct {
	notifier Notifier
	logger   *logrus.Entry
	wg       sync.WaitGroup
}

func RegisterMissionEventHandlers(bus eventbus.EventBus, notifier Notifier, logger *logrus.Logger) *MissionEventsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &MissionEventsHandler{
		notifier: notifier,
		logger:   logger.WithField("component", "mission-notifications"),
	}
	bus.Subscribe(h.onMissionValidated)
	return h
}

// Wait blocks until every notification started so far has finished.
func (h *MissionEventsHandler) Wait() {
	h.wg.Wait()
}

func (h *MissionEventsHandler) onMissionValidated(event *mission.ValidatedEvent) {
	if event == nil || h.notifier == nil {
		return
	}
	m := event.Mission
	h.notify(event.Requester, notification.Message{
		Title: "Mission validated",
		Body: fmt.Sprintf("Your mission from %s to %s on %s has been validated.",
			m.Origin, m.Destination, m.ScheduledAt.Format(scheduleLayout)),
	}, m)
	if event.Driver != nil {
		h.notify(*event.Driver, notification.Message{
			Title: "New mission assigned",
			Body: fmt.Sprintf("You are assigned to a mission from %s to %s on %s.",
				m.Origin, m.Destination, m.ScheduledAt.Format(scheduleLayout)),
		}, m)
	}
}

func (h *MissionEventsHandler) notify(to actor.Actor, msg notification.Message, m mission.Mission) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("mission", m.ID).Errorf("notification panicked: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		res := h.notifier.Dispatch(ctx, notification.Recipient{
			ActorID: to.ID,
			Name:    to.FullName(),
			Phone:   to.Phone,
			Email:   to.Email,
		}, msg)

		log := h.logger.WithFields(logrus.Fields{
			"mission":   m.ID,
			"actor":     to.ID,
			"succeeded": res.Succeeded(),
			"skipped":   res.Skipped,
		})
		if !res.AnySucceeded() && len(res.Attempts) > 0 {
			log.Warn("mission notification not delivered on any channel")
			return
		}
		log.Debug("mission notification sent")
	}()
}
