package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/jackie/internal/services"
	"github.com/isdelr/jackie/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	// RecentLimit is the number of events pushed with every refresh.
	RecentLimit = 20

	refreshTimeout = 90 * time.Second
)

// Broadcaster delivers encoded messages to live feed subscribers.
type Broadcaster interface {
	Broadcast(action string, data []byte)
}

// Refresher periodically runs the recent-events and aggregation reports and
// pushes the results to the live feed.
type Refresher struct {
	eventSvc services.EventServiceProvider
	hub      Broadcaster
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	initial  sync.WaitGroup
}

// NewRefresher creates a Refresher running on a cron schedule
// (e.g. "@every 15s" or "*/1 * * * *").
func NewRefresher(eventSvc services.EventServiceProvider, hub Broadcaster, schedule string) *Refresher {
	return &Refresher{
		eventSvc: eventSvc,
		hub:      hub,
		schedule: schedule,
		timeout:  refreshTimeout,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start validates the schedule, runs one refresh immediately and then keeps
// refreshing in the background until Stop.
func (r *Refresher) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.refresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}
	log.Info().Str("schedule", r.schedule).Msg("Starting live feed refresher...")
	r.initial.Add(1)
	go func() {
		defer r.initial.Done()
		r.refresh()
	}()
	r.cron.Start()
	return nil
}

// Stop halts the refresher and waits for running refreshes, including the
// initial one, to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.initial.Wait()
	log.Info().Msg("Stopped live feed refresher.")
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.Refresh(ctx)
}

// Refresh runs both reports once and broadcasts their results. Failures are
// logged and broadcast as error messages.
func (r *Refresher) Refresh(ctx context.Context) {
	events, err := r.eventSvc.GetRecentEvents(ctx, RecentLimit)
	r.publish(websocket.ActionRecentEvents, events, err)

	aggs, err := r.eventSvc.GetAggregations(ctx)
	r.publish(websocket.ActionAggregations, aggs, err)
}

func (r *Refresher) publish(action string, payload interface{}, err error) {
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Refresher: failed to run report")
		r.hub.Broadcast(websocket.ActionError, websocket.NewErrorMessage(action+": "+err.Error()))
		return
	}
	msg, err := websocket.NewMessage(action, payload)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Refresher: failed to encode report")
		return
	}
	r.hub.Broadcast(action, msg)
}
