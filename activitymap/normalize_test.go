package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/goliatone/go-store-auth/activitymap"
	"github.com/google/uuid"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	storeID := uuid.New()
	recordID := uuid.New()
	record := auth.ActivityRecord{
		ID:           recordID,
		StoreID:      storeID,
		ActorID:      "owner-42",
		ActorName:    "Ana",
		ActionType:   auth.ActionDelete,
		ResourceType: auth.ResourceProduct,
		Description:  `Produto "Bolo" foi removido`,
		CreatedAt:    ts,
	}

	out := activitymap.Normalize(record)

	if out.ID != recordID.String() {
		t.Fatalf("expected id %s, got %q", recordID, out.ID)
	}
	if out.ActorID != "owner-42" {
		t.Fatalf("expected actor_id owner-42, got %q", out.ActorID)
	}
	if out.Verb != "product.delete" {
		t.Fatalf("expected verb product.delete, got %q", out.Verb)
	}
	if out.ObjectType != "product" {
		t.Fatalf("expected object_type product, got %q", out.ObjectType)
	}
	if out.ObjectID != "" {
		t.Fatalf("expected empty object_id, got %q", out.ObjectID)
	}
	if out.Channel != "store" {
		t.Fatalf("expected channel store, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyActorName] != "Ana" {
		t.Fatalf("expected actor_name Ana, got %#v", out.Metadata[activitymap.MetadataKeyActorName])
	}
	if out.Metadata[activitymap.MetadataKeyStoreID] != storeID.String() {
		t.Fatalf("expected store_id %s, got %#v", storeID, out.Metadata[activitymap.MetadataKeyStoreID])
	}
	if out.Metadata[activitymap.MetadataKeyDescription] != `Produto "Bolo" foi removido` {
		t.Fatalf("unexpected description %#v", out.Metadata[activitymap.MetadataKeyDescription])
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	record := auth.ActivityRecord{
		ActionType:   auth.ActionCreate,
		ResourceType: auth.ResourceUser,
	}

	out := activitymap.Normalize(record,
		activitymap.WithDefaultChannel(" audit "),
		activitymap.WithActorFallback("cli"),
		activitymap.WithObjectIDResolver(func(auth.ActivityRecord) string { return " user-7 " }),
		activitymap.WithNow(func() time.Time { return fixed }),
	)

	if out.ActorID != "cli" {
		t.Fatalf("expected fallback actor cli, got %q", out.ActorID)
	}
	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.ObjectID != "user-7" {
		t.Fatalf("expected object_id user-7, got %q", out.ObjectID)
	}
	if !out.OccurredAt.Equal(fixed) {
		t.Fatalf("expected occurred_at %v, got %v", fixed, out.OccurredAt)
	}
	if out.ID != "" {
		t.Fatalf("expected empty id for unsaved record, got %q", out.ID)
	}
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}
}
