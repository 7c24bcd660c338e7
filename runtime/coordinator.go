package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ordering selects how completions of one room re-enter the coordinator.
type Ordering string

const (
	// CompletionOrder broadcasts a room's messages in the order their writes finish.
	CompletionOrder Ordering = "completion"
	// SubmissionOrder broadcasts a room's messages in the order they were submitted,
	// writes still run concurrently.
	SubmissionOrder Ordering = "submission"
)

func ParseOrdering(s string) (Ordering, error) {
	switch o := Ordering(strings.ToLower(strings.TrimSpace(s))); o {
	case CompletionOrder, SubmissionOrder:
		return o, nil
	case "":
		return CompletionOrder, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownOrdering, s)
	}
}

type Options struct {
	InboxSize            int
	PersistTimeout       time.Duration
	Ordering             Ordering
	NotifyPersistFailure bool
	PresenceEvents       bool
}

type (
	connectCmd struct {
		userID, roomID uuid.UUID
		sink           contract.Sink
		ack            chan struct{}
	}
	disconnectCmd struct {
		userID, roomID uuid.UUID
		sink           contract.Sink
		ack            chan struct{}
	}
	submitCmd struct {
		message domain.ClientMessage
	}
	completionCmd struct {
		source  domain.ClientMessage
		message domain.Message
		err     error
		ticket  chan struct{}
	}
	snapshotCmd struct {
		reply chan domain.Snapshot
	}
)

// Coordinator is the single owner of the Registry.
// Every mutation goes through its inbox and is applied by the Run loop,
// persistence runs on detached goroutines whose completion re-enters the inbox.
type Coordinator struct {
	log      *slog.Logger
	registry *Registry
	ingestor Ingestor
	options  Options
	inbox    chan any
	done     chan struct{}
	stopOnce sync.Once

	// Owned by the Run loop.
	tails    map[uuid.UUID]chan struct{}
	counters domain.Snapshot
}

func NewCoordinator(log *slog.Logger, store contract.MessageStore, policy contract.ContentPolicy, options Options) *Coordinator {
	if options.InboxSize <= 0 {
		options.InboxSize = 1024
	}
	if options.Ordering == "" {
		options.Ordering = CompletionOrder
	}
	return &Coordinator{
		log:      log,
		registry: NewRegistry(),
		ingestor: NewIngestor(store, policy, options.PersistTimeout),
		options:  options,
		inbox:    make(chan any, options.InboxSize),
		done:     make(chan struct{}),
		tails:    make(map[uuid.UUID]chan struct{}),
	}
}

// Run consumes the inbox until ctx is done, then closes every registered sink.
// A panic leaves the state on the struct, so the supervisor can restart the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("Coordinator loop running", "ordering", c.options.Ordering)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case cmd := <-c.inbox:
			c.handle(cmd)
		}
	}
}

// Stop closes every registered sink and releases the callers waiting on the coordinator.
// It covers a loop that never got restarted after a crash, so it must only be called
// once Run is no longer executing. Stopping twice is a no-op.
func (c *Coordinator) Stop() {
	c.shutdown()
}

// Done is closed once the coordinator stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) Connect(ctx context.Context, userID, roomID uuid.UUID, sink contract.Sink) error {
	ack := make(chan struct{})
	if err := c.send(ctx, connectCmd{userID: userID, roomID: roomID, sink: sink, ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.ErrCoordinatorStopped
	}
}

// Disconnect is idempotent and returns nil once the coordinator stopped,
// there is nothing left to clean at that point.
func (c *Coordinator) Disconnect(ctx context.Context, userID, roomID uuid.UUID, sink contract.Sink) error {
	ack := make(chan struct{})
	if err := c.send(ctx, disconnectCmd{userID: userID, roomID: roomID, sink: sink, ack: ack}); err != nil {
		if err == errors.ErrCoordinatorStopped {
			return nil
		}
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return nil
	}
}

// Submit hands a client message to the ingestion pipeline.
// It returns once the message is queued, not once it is stored.
func (c *Coordinator) Submit(ctx context.Context, message domain.ClientMessage) error {
	return c.send(ctx, submitCmd{message: message})
}

func (c *Coordinator) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	reply := make(chan domain.Snapshot, 1)
	if err := c.send(ctx, snapshotCmd{reply: reply}); err != nil {
		return domain.Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	case <-c.done:
		return domain.Snapshot{}, errors.ErrCoordinatorStopped
	}
}

func (c *Coordinator) send(ctx context.Context, cmd any) error {
	select {
	case <-c.done:
		return errors.ErrCoordinatorStopped
	default:
	}
	select {
	case c.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.ErrCoordinatorStopped
	}
}

func (c *Coordinator) handle(cmd any) {
	switch cmd := cmd.(type) {
	case connectCmd:
		c.connect(cmd)
	case disconnectCmd:
		c.disconnect(cmd)
	case submitCmd:
		c.submit(cmd.message)
	case completionCmd:
		c.complete(cmd)
	case snapshotCmd:
		s := c.counters
		s.Sessions = c.registry.SessionCount()
		s.Rooms = c.registry.RoomSizes()
		cmd.reply <- s
	default:
		c.log.Error("Unknown coordinator command", "type", fmt.Sprintf("%T", cmd))
	}
}

func (c *Coordinator) connect(cmd connectCmd) {
	defer close(cmd.ack)

	previous, previousRoom, replaced := c.registry.Subscribe(cmd.userID, cmd.roomID, cmd.sink)
	if replaced && previous != cmd.sink {
		c.counters.Evicted++
		previous.Close()
		c.log.Info("Previous session evicted",
			"user_id", cmd.userID, "previous_room_id", previousRoom, "room_id", cmd.roomID)
		if previousRoom != cmd.roomID {
			c.announce(domain.Left, previousRoom, cmd.userID)
		}
	}
	c.log.Debug("Participant connected", "user_id", cmd.userID, "room_id", cmd.roomID)

	if !replaced || previousRoom != cmd.roomID {
		c.announce(domain.Joined, cmd.roomID, cmd.userID)
	}
}

func (c *Coordinator) disconnect(cmd disconnectCmd) {
	defer close(cmd.ack)

	if !c.registry.Unsubscribe(cmd.userID, cmd.roomID, cmd.sink) {
		c.log.Debug("Disconnect ignored, no matching session", "user_id", cmd.userID, "room_id", cmd.roomID)
		return
	}
	c.log.Debug("Participant disconnected", "user_id", cmd.userID, "room_id", cmd.roomID)
	c.announce(domain.Left, cmd.roomID, cmd.userID)
}

func (c *Coordinator) submit(message domain.ClientMessage) {
	var wait, ticket chan struct{}
	if c.options.Ordering == SubmissionOrder {
		wait = c.tails[message.RoomID]
		ticket = make(chan struct{})
		c.tails[message.RoomID] = ticket
	}
	c.counters.InFlight++
	go c.persist(message, wait, ticket)
}

// persist runs off the loop. With a wait channel, the completion only re-enters
// the inbox after the previous submission of the same room did.
func (c *Coordinator) persist(source domain.ClientMessage, wait, ticket chan struct{}) {
	if ticket != nil {
		defer close(ticket)
	}

	message, err := func() (m domain.Message, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %w: %v", errors.ErrPersistence, errors.ErrWorkerPanic, r)
			}
		}()
		return c.ingestor.Persist(context.Background(), source)
	}()

	if wait != nil {
		select {
		case <-wait:
		case <-c.done:
			return
		}
	}

	if sendErr := c.send(context.Background(), completionCmd{
		source:  source,
		message: message,
		err:     err,
		ticket:  ticket,
	}); sendErr != nil {
		c.log.Debug("Completion discarded, coordinator stopped", "room_id", source.RoomID)
	}
}

func (c *Coordinator) complete(cmd completionCmd) {
	c.counters.InFlight--
	if cmd.ticket != nil && c.tails[cmd.source.RoomID] == cmd.ticket {
		delete(c.tails, cmd.source.RoomID)
	}

	if cmd.err != nil {
		c.counters.Failed++
		c.log.Warn("Message dropped",
			"user_id", cmd.source.UserID, "room_id", cmd.source.RoomID, "error", cmd.err)
		if c.options.NotifyPersistFailure {
			c.notifyFailure(cmd.source, cmd.err)
		}
		return
	}

	c.counters.Persisted++
	c.broadcast(cmd.message)
}

// broadcast delivers a persisted message to every member registered in its room right now.
func (c *Coordinator) broadcast(message domain.Message) {
	sinks := c.registry.GetSinksForRoom(message.RoomID)
	if len(sinks) == 0 {
		c.log.Debug("No live member to deliver to", "room_id", message.RoomID, "message_id", message.ID)
		return
	}
	payload, err := domain.Encode(message)
	if err != nil {
		c.log.Error("Message encoding failed", "message_id", message.ID, "error", err)
		return
	}
	c.fanout(sinks, payload)
}

func (c *Coordinator) fanout(sinks []contract.Sink, payload []byte) {
	for _, s := range sinks {
		if err := deliver(s, payload); err != nil {
			c.counters.Dropped++
			c.log.Debug("Delivery failed", "error", err)
			continue
		}
		c.counters.Delivered++
	}
}

// deliver contains a failing sink, including one that panics.
func deliver(s contract.Sink, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrDelivery, r)
		}
	}()
	return s.Deliver(payload)
}

func (c *Coordinator) notifyFailure(source domain.ClientMessage, cause error) {
	s, ok := c.registry.Sink(source.UserID)
	if !ok {
		return
	}
	payload, err := domain.Encode(domain.NewErrorFrame(source, cause.Error()))
	if err != nil {
		c.log.Error("Error frame encoding failed", "error", err)
		return
	}
	c.fanout([]contract.Sink{s}, payload)
}

func (c *Coordinator) announce(event domain.PresenceEvent, roomID, userID uuid.UUID) {
	if !c.options.PresenceEvents {
		return
	}
	var sinks []contract.Sink
	for _, memberID := range c.registry.Members(roomID) {
		if memberID == userID {
			continue
		}
		if s, ok := c.registry.Sink(memberID); ok {
			sinks = append(sinks, s)
		}
	}
	if len(sinks) == 0 {
		return
	}
	payload, err := domain.Encode(domain.NewPresenceFrame(event, roomID, userID, time.Now().UTC()))
	if err != nil {
		c.log.Error("Presence encoding failed", "error", err)
		return
	}
	c.fanout(sinks, payload)
}

func (c *Coordinator) shutdown() {
	c.stopOnce.Do(func() {
		close(c.done)
		sinks := c.registry.Drain()
		for _, s := range sinks {
			s.Close()
		}
		c.log.Info("Coordinator stopped", "closed_sinks", len(sinks))
	})
}
