package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/types"
)

// Event types published by the registry.
const (
	TypeResidentCreated         = "resident.created"
	TypeResidentUpdated         = "resident.updated"
	TypeResidentDeleted         = "resident.deleted"
	TypeResidentSectoralChanged = "resident.sectoral.changed"
	TypeOccupationCreated       = "occupation.created"
)

// Event represents a domain event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	ActorID      types.ID `json:"actor_id,omitempty"`
	BarangayCode string   `json:"barangay_code,omitempty"`

	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the acting official and their barangay
func (e Event) WithActor(actorID types.ID, barangayCode string) Event {
	e.ActorID = actorID
	e.BarangayCode = barangayCode
	return e
}

// WithCorrelation sets the correlation ID for request tracing
func (e Event) WithCorrelation(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}

// Publisher is the publishing side of the bus; handlers depend on this.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus publishes events to KurrentDB
type Bus struct {
	client *esdb.Client
	prefix string
	logger *zap.Logger
}

// NewBus creates a new event bus connected to KurrentDB
func NewBus(cfg config.KurrentDBConfig, logger *zap.Logger) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create KurrentDB client: %w", err)
	}

	return &Bus{client: client, prefix: "rbi", logger: logger}, nil
}

// ConnectionString creates the esdb:// connection string
func ConnectionString(cfg config.KurrentDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false&keepAliveInterval=10000&keepAliveTimeout=10000"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// StreamName maps an event type to its stream: resident.sectoral.changed -> rbi-resident-sectoral-changed
func StreamName(prefix, eventType string) string {
	return prefix + "-" + strings.ReplaceAll(eventType, ".", "-")
}

// Publish appends the event to its type stream
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	_, err = b.client.AppendToStream(ctx, StreamName(b.prefix, event.Type), esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	})
	if err != nil {
		b.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// Health checks the KurrentDB connection
func (b *Bus) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stream, err := b.client.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("KurrentDB health check failed: %w", err)
	}
	defer stream.Close()

	return nil
}

// Discard is a Publisher that drops events; used when no bus is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
