package activitymap

import (
	"strings"
	"time"

	auth "github.com/goliatone/go-store-auth"
)

const (
	// MetadataKeyActorName stores the display name of the actor.
	MetadataKeyActorName = "actor_name"
	// MetadataKeyStoreID stores the tenant the record belongs to.
	MetadataKeyStoreID = "store_id"
	// MetadataKeyDescription stores the human readable description.
	MetadataKeyDescription = "description"
)

const (
	defaultChannel  = "store"
	defaultActorID  = "system"
	defaultVerbJoin = "."
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ID         string         `json:"id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	objectIDResolver func(auth.ActivityRecord) string
	now              func() time.Time
}

// Normalize converts an auth.ActivityRecord into a generic normalized shape.
// The verb is "<resource>.<action>", e.g. "product.delete".
func Normalize(record auth.ActivityRecord, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(record.ActorID),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := record.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	out := Normalized{
		ActorID:    actorID,
		Verb:       verb(record),
		ObjectType: strings.TrimSpace(record.ResourceType),
		ObjectID:   resolveObjectID(record, options.objectIDResolver),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(record),
		OccurredAt: occurredAt,
	}
	if record.ID.String() != zeroUUID {
		out.ID = record.ID.String()
	}
	return out
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityRecord.
func WithObjectIDResolver(resolver func(auth.ActivityRecord) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor-id fallback when the record has none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithNow sets the time source used for records without a timestamp.
func WithNow(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if opts == nil || now == nil {
			return
		}
		opts.now = now
	}
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func verb(record auth.ActivityRecord) string {
	resource := strings.TrimSpace(record.ResourceType)
	action := strings.TrimSpace(record.ActionType)
	if resource == "" {
		return action
	}
	return resource + defaultVerbJoin + action
}

func resolveObjectID(record auth.ActivityRecord, resolver func(auth.ActivityRecord) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(record))
	}
	return ""
}

func normalizeMetadata(record auth.ActivityRecord) map[string]any {
	metadata := map[string]any{}

	if name := strings.TrimSpace(record.ActorName); name != "" {
		metadata[MetadataKeyActorName] = name
	}
	if id := record.StoreID.String(); id != zeroUUID {
		metadata[MetadataKeyStoreID] = id
	}
	if desc := strings.TrimSpace(record.Description); desc != "" {
		metadata[MetadataKeyDescription] = desc
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
