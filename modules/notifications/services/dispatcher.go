package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ipsco/fleet/modules/notifications/domain/notification"
)

const DefaultChannelTimeout = 10 * time.Second

// Dispatcher fans one message out to every channel the recipient can be
// reached on. Channels run concurrently and fail independently.
type Dispatcher struct {
	senders map[notification.Channel]notification.Sender
	timeout time.Duration
	logger  *logrus.Entry
}

func NewDispatcher(timeout time.Duration, logger *logrus.Logger, senders ...notification.Sender) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Dispatcher{
		senders: make(map[notification.Channel]notification.Sender, len(senders)),
		timeout: timeout,
		logger:  logger.WithField("component", "notification-dispatcher"),
	}
	for _, s := range senders {
		if s != nil {
			d.senders[s.Channel()] = s
		}
	}
	return d
}

// Channels reports the configured channels in dispatch order.
func (d *Dispatcher) Channels() []notification.Channel {
	var out []notification.Channel
	for _, c := range notification.Channels() {
		if _, ok := d.senders[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Dispatch makes one attempt per reachable channel. It never fails; every
// outcome is in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, to notification.Recipient, msg notification.Message) notification.DispatchResult {
	type job struct {
		sender  notification.Sender
		address string
	}
	var (
		result notification.DispatchResult
		jobs   []job
	)
	for _, c := range notification.Channels() {
		address := to.Address(c)
		sender, ok := d.senders[c]
		if !ok || address == "" {
			result.Skipped = append(result.Skipped, c)
			dispatchSkipped.WithLabelValues(string(c)).Inc()
			continue
		}
		jobs = append(jobs, job{sender: sender, address: address})
	}

	attempts := make([]notification.Attempt, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			attempts[i] = d.attempt(ctx, j.sender, j.address, msg)
			return nil
		})
	}
	_ = g.Wait()
	result.Attempts = attempts

	d.logger.WithFields(logrus.Fields{
		"actor":     to.ActorID,
		"succeeded": result.Succeeded(),
		"failed":    len(result.Failed()),
		"skipped":   result.Skipped,
	}).Info("notification dispatched")
	return result
}

type sendOutcome struct {
	response string
	err      error
}

func (d *Dispatcher) attempt(ctx context.Context, sender notification.Sender, address string, msg notification.Message) notification.Attempt {
	channel := sender.Channel()
	a := notification.Attempt{Channel: channel, Address: address}
	start := time.Now()

	var err error
	if msg.Empty() {
		err = notification.NewChannelDeliveryError(channel, notification.ReasonEmptyMessage, nil)
	} else {
		a.ProviderResponse, err = d.send(ctx, sender, address, msg)
	}

	a.Duration = time.Since(start)
	a.Success = err == nil
	if err != nil {
		a.Err = err
		a.Error = err.Error()
	}
	d.observe(a)
	return a
}

// send runs the sender on its own goroutine so a sender that ignores its
// context still yields a timeout once the deadline passes.
func (d *Dispatcher) send(ctx context.Context, sender notification.Sender, address string, msg notification.Message) (string, error) {
	channel := sender.Channel()
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan sendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendOutcome{err: notification.NewChannelDeliveryError(channel, notification.ReasonPanic, fmt.Errorf("%v", r))}
			}
		}()
		response, err := sender.Send(attemptCtx, address, msg)
		done <- sendOutcome{response: response, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.response, nil
		}
		var cde *notification.ChannelDeliveryError
		if errors.As(out.err, &cde) {
			return out.response, out.err
		}
		if errors.Is(out.err, context.DeadlineExceeded) {
			return out.response, notification.NewChannelDeliveryError(channel, notification.ReasonTimeout, out.err)
		}
		return out.response, notification.NewChannelDeliveryError(channel, "provider error", out.err)
	case <-attemptCtx.Done():
		reason := notification.ReasonTimeout
		if errors.Is(attemptCtx.Err(), context.Canceled) {
			reason = "cancelled"
		}
		return "", notification.NewChannelDeliveryError(channel, reason, attemptCtx.Err())
	}
}

func (d *Dispatcher) observe(a notification.Attempt) {
	result := "success"
	if !a.Success {
		result = "failure"
	}
	dispatchAttempts.WithLabelValues(string(a.Channel), result).Inc()
	dispatchLatency.WithLabelValues(string(a.Channel)).Observe(a.Duration.Seconds())

	log := d.logger.WithFields(logrus.Fields{
		"channel":  a.Channel,
		"address":  a.Address,
		"duration": a.Duration,
	})
	if a.Success {
		log.WithField("response", a.ProviderResponse).Debug("notification delivered")
		return
	}
	log.WithError(a.Err).Warn("notification delivery failed")
}
