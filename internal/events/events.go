package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

// GetEventID returns the event ID
func (e *BaseEvent) GetEventID() string {
	return e.EventID
}

// GetEventType returns the event type
func (e *BaseEvent) GetEventType() string {
	return e.EventType
}

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

// GetUserID returns the acting user, if any
func (e *BaseEvent) GetUserID() *int64 {
	return e.UserID
}

func newBase(eventType string, actor int64) BaseEvent {
	return BaseEvent{
		EventID:   GenerateEventID(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		UserID:    &actor,
	}
}

// ===============================
// EVENT BUS INTERFACE
// ===============================

// EventBus defines the event publishing and subscription interface
type EventBus interface {
	// Publish runs every matching handler before returning.
	Publish(ctx context.Context, event Event) error
	// PublishAsync queues the event for the worker pool. It fails fast when the queue is full.
	PublishAsync(ctx context.Context, event Event) error

	Subscribe(eventType string, handler EventHandler) error
	SubscribePattern(pattern string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *EventBusStats
}

// EventHandler represents an event handler
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string {
	return f.ID
}

// EventBusStats represents event bus statistics
type EventBusStats struct {
	EventsPublished    int64         `json:"events_published"`
	EventsProcessed    int64         `json:"events_processed"`
	EventsFailed       int64         `json:"events_failed"`
	EventsDropped      int64         `json:"events_dropped"`
	HandlersCount      int           `json:"handlers_count"`
	QueueDepth         int           `json:"queue_depth"`
	AverageProcessTime time.Duration `json:"average_process_time"`
	Uptime             time.Duration `json:"uptime"`
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

// EventBusConfig holds configuration for the event bus
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size" yaml:"buffer_size"`
	WorkerCount    int           `json:"worker_count" yaml:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout" yaml:"handler_timeout"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    5,
		HandlerTimeout: 30 * time.Second,
	}
}

type inMemoryEventBus struct {
	mu              sync.RWMutex
	handlers        map[string][]EventHandler
	patternHandlers map[string][]EventHandler
	handlerCount    int

	eventQueue     chan eventMessage
	logger         *zap.Logger
	startTime      time.Time
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startOnce      sync.Once
	bufferSize     int
	workerCount    int
	handlerTimeout time.Duration

	published atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	timesMu            sync.Mutex
	processingTimes    []time.Duration
	maxProcessingTimes int
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewInMemoryEventBus creates a new in-memory event bus. Call Start to run the
// workers that drain PublishAsync.
func NewInMemoryEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	defaults := DefaultEventBusConfig()
	if config == nil {
		config = defaults
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = defaults.HandlerTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryEventBus{
		handlers:           make(map[string][]EventHandler),
		patternHandlers:    make(map[string][]EventHandler),
		eventQueue:         make(chan eventMessage, config.BufferSize),
		logger:             logger,
		startTime:          time.Now(),
		ctx:                ctx,
		cancel:             cancel,
		bufferSize:         config.BufferSize,
		workerCount:        config.WorkerCount,
		handlerTimeout:     config.HandlerTimeout,
		processingTimes:    make([]time.Duration, 0, 100),
		maxProcessingTimes: 100,
	}
}

func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.logger.Debug("Publishing event",
		zap.String("event_id", event.GetEventID()),
		zap.String("event_type", event.GetEventType()),
	)

	b.published.Add(1)
	start := time.Now()
	err := b.processEvent(ctx, event)
	b.recordProcessingTime(time.Since(start))
	if err != nil {
		b.failed.Add(1)
		b.logger.Error("Failed to process event",
			zap.String("event_id", event.GetEventID()),
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
		return err
	}

	b.processed.Add(1)
	return nil
}

func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is stopped")
	}

	// Handlers outlive the publishing request, so only its values travel with the event.
	msg := eventMessage{ctx: context.WithoutCancel(ctx), event: event}

	select {
	case b.eventQueue <- msg:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.dropped.Add(1)
		return fmt.Errorf("event queue is full")
	}
}

func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlerCount++

	b.logger.Info("Handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)

	return nil
}

func (b *inMemoryEventBus) SubscribePattern(pattern string, handler EventHandler) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.patternHandlers[pattern] = append(b.patternHandlers[pattern], handler)
	b.handlerCount++

	b.logger.Info("Pattern handler subscribed",
		zap.String("pattern", pattern),
		zap.String("handler_id", handler.GetHandlerID()),
	)

	return nil
}

func (b *inMemoryEventBus) Start(ctx context.Context) error {
	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is stopped")
	}

	b.startOnce.Do(func() {
		b.logger.Info("Starting event bus", zap.Int("worker_count", b.workerCount))
		for i := 0; i < b.workerCount; i++ {
			b.wg.Add(1)
			go b.worker(i)
		}
	})

	return nil
}

// Stop signals the workers, which finish whatever is already queued before exiting.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("Stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped successfully")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timeout", zap.Int("queue_depth", len(b.eventQueue)))
		return ctx.Err()
	}
}

func (b *inMemoryEventBus) Health() error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	queueDepth := len(b.eventQueue)
	if queueDepth > b.bufferSize*80/100 {
		return fmt.Errorf("event queue is %d%% full", queueDepth*100/b.bufferSize)
	}

	return nil
}

func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.mu.RLock()
	handlers := b.handlerCount
	b.mu.RUnlock()

	stats := &EventBusStats{
		EventsPublished: b.published.Load(),
		EventsProcessed: b.processed.Load(),
		EventsFailed:    b.failed.Load(),
		EventsDropped:   b.dropped.Load(),
		HandlersCount:   handlers,
		QueueDepth:      len(b.eventQueue),
		Uptime:          time.Since(b.startTime),
	}

	b.timesMu.Lock()
	if n := len(b.processingTimes); n > 0 {
		var total time.Duration
		for _, t := range b.processingTimes {
			total += t
		}
		stats.AverageProcessTime = total / time.Duration(n)
	}
	b.timesMu.Unlock()

	return stats
}

func (b *inMemoryEventBus) worker(workerID int) {
	defer b.wg.Done()

	b.logger.Debug("Event bus worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case msg := <-b.eventQueue:
			b.handleQueued(workerID, msg)
		case <-b.ctx.Done():
			for {
				select {
				case msg := <-b.eventQueue:
					b.handleQueued(workerID, msg)
				default:
					b.logger.Debug("Event bus worker stopped", zap.Int("worker_id", workerID))
					return
				}
			}
		}
	}
}

func (b *inMemoryEventBus) handleQueued(workerID int, msg eventMessage) {
	start := time.Now()

	if err := b.processEvent(msg.ctx, msg.event); err != nil {
		b.logger.Error("Failed to process event",
			zap.Int("worker_id", workerID),
			zap.String("event_id", msg.event.GetEventID()),
			zap.String("event_type", msg.event.GetEventType()),
			zap.Error(err),
		)
		b.failed.Add(1)
	} else {
		b.processed.Add(1)
	}

	b.recordProcessingTime(time.Since(start))
}

func (b *inMemoryEventBus) processEvent(ctx context.Context, event Event) error {
	eventType := event.GetEventType()

	b.mu.RLock()
	var allHandlers []EventHandler
	allHandlers = append(allHandlers, b.handlers[eventType]...)
	for pattern, handlers := range b.patternHandlers {
		if matchesPattern(eventType, pattern) {
			allHandlers = append(allHandlers, handlers...)
		}
	}
	b.mu.RUnlock()

	if len(allHandlers) == 0 {
		b.logger.Debug("No handlers found for event",
			zap.String("event_type", eventType),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}

	failed := 0
	for _, handler := range allHandlers {
		if err := b.executeHandler(ctx, handler, event); err != nil {
			failed++
			b.logger.Warn("Event handler failed",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to execute %d out of %d handlers", failed, len(allHandlers))
	}
	return nil
}

// executeHandler runs one handler under the handler timeout, turning a panic into an error.
func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler %s panicked: %v", handler.GetHandlerID(), r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	return handler.Handle(handlerCtx, event)
}

func (b *inMemoryEventBus) recordProcessingTime(duration time.Duration) {
	b.timesMu.Lock()
	defer b.timesMu.Unlock()

	b.processingTimes = append(b.processingTimes, duration)
	if len(b.processingTimes) > b.maxProcessingTimes {
		b.processingTimes = b.processingTimes[1:]
	}
}

// matchesPattern supports "*", "prefix*" and exact matches.
func matchesPattern(eventType, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(eventType, prefix)
	}
	return eventType == pattern
}

// ===============================
// UTILITY FUNCTIONS
// ===============================

// GenerateEventID returns a random, collision-free event id.
func GenerateEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return "evt_" + id.String()
}

// NewEventBus creates a new event bus instance
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	return NewInMemoryEventBus(config, logger)
}

// NewEventHandlerFunc creates an EventHandler from a function
func NewEventHandlerFunc(id string, fn func(ctx context.Context, event Event) error) EventHandler {
	return EventHandlerFunc{
		ID:   id,
		Func: fn,
	}
}

// TypedEventHandler is a generic handler for specific event types
type TypedEventHandler[T Event] struct {
	ID      string
	Handler func(ctx context.Context, event T) error
}

// Handle implements EventHandler
func (h TypedEventHandler[T]) Handle(ctx context.Context, event Event) error {
	if typedEvent, ok := event.(T); ok {
		return h.Handler(ctx, typedEvent)
	}
	return fmt.Errorf("event type mismatch: expected %T, got %T", *new(T), event)
}

// GetHandlerID implements EventHandler
func (h TypedEventHandler[T]) GetHandlerID() string {
	return h.ID
}

// NewTypedEventHandler creates a typed event handler
func NewTypedEventHandler[T Event](id string, handler func(ctx context.Context, event T) error) EventHandler {
	return TypedEventHandler[T]{
		ID:      id,
		Handler: handler,
	}
}
