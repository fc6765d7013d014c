package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"budgetrelay/internal/domain/item"
)

var firestoreTracer = otel.Tracer("budgetrelay.firestore")

// tokenDocument is the stored shape of plaid_tokens/{userId}.
// Documents written before status tracking have no status field.
type tokenDocument struct {
	AccessToken  string     `firestore:"access_token"`
	ItemID       string     `firestore:"item_id"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	Status       string     `firestore:"status"`
	LastSyncedAt *time.Time `firestore:"lastSyncedAt"`
	SyncCount    int64      `firestore:"syncCount"`
}

func (d *tokenDocument) toRecord(userID string) *item.AccessTokenRecord {
	st := item.LinkStatus(d.Status)
	if !item.IsValidStatus(st) {
		st = item.StatusLinked
	}
	return &item.AccessTokenRecord{
		UserID:       userID,
		AccessToken:  d.AccessToken,
		ItemID:       d.ItemID,
		CreatedAt:    d.CreatedAt,
		Status:       st,
		LastSyncedAt: d.LastSyncedAt,
		SyncCount:    d.SyncCount,
	}
}

// ItemRepository implements item.Repository on a Firestore collection keyed
// by user ID.
type ItemRepository struct {
	client     *firestore.Client
	collection string
}

var _ item.Repository = (*ItemRepository)(nil)

// NewItemRepository creates a new Firestore-backed token vault
func NewItemRepository(client *firestore.Client, collection string) *ItemRepository {
	return &ItemRepository{client: client, collection: collection}
}

func (r *ItemRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(userID)
}

// Save overwrites the whole document so concurrent exchanges never merge.
func (r *ItemRepository) Save(ctx context.Context, params item.SaveParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	ctx, span := r.startSpan(ctx, "set")
	defer span.End()

	_, err := r.doc(params.UserID).Set(ctx, map[string]interface{}{
		"access_token": params.AccessToken,
		"item_id":      params.ItemID,
		"createdAt":    firestore.ServerTimestamp,
		"status":       string(item.StatusLinked),
		"lastSyncedAt": nil,
		"syncCount":    0,
	})
	if err != nil {
		return r.fail(span, fmt.Errorf("%w: failed to save access token for user %s: %w", item.ErrVault, params.UserID, err))
	}
	return nil
}

func (r *ItemRepository) GetByUserID(ctx context.Context, userID string) (*item.AccessTokenRecord, error) {
	ctx, span := r.startSpan(ctx, "get")
	defer span.End()

	snap, err := r.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, item.ErrNoAccessToken
	}
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("%w: failed to get access token for user %s: %w", item.ErrVault, userID, err))
	}

	var doc tokenDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, r.fail(span, fmt.Errorf("%w: failed to decode token document for user %s: %w", item.ErrVault, userID, err))
	}
	if doc.AccessToken == "" {
		return nil, item.ErrNoAccessToken
	}
	return doc.toRecord(userID), nil
}

func (r *ItemRepository) FindByItemID(ctx context.Context, itemID string) (*item.AccessTokenRecord, error) {
	ctx, span := r.startSpan(ctx, "query")
	defer span.End()

	iter := r.client.Collection(r.collection).Where("item_id", "==", itemID).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, item.ErrItemNotFound
	}
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("%w: failed to find item %s: %w", item.ErrVault, itemID, err))
	}

	var doc tokenDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, r.fail(span, fmt.Errorf("%w: failed to decode token document %s: %w", item.ErrVault, snap.Ref.ID, err))
	}
	return doc.toRecord(snap.Ref.ID), nil
}

func (r *ItemRepository) MarkSynced(ctx context.Context, userID string, at time.Time) error {
	return r.update(ctx, userID, []firestore.Update{
		{Path: "status", Value: string(item.StatusSynced)},
		{Path: "lastSyncedAt", Value: at},
		{Path: "syncCount", Value: firestore.Increment(1)},
	})
}

func (r *ItemRepository) SetStatus(ctx context.Context, userID string, st item.LinkStatus) error {
	if !item.IsValidStatus(st) {
		return item.ErrInvalidStatus
	}
	return r.update(ctx, userID, []firestore.Update{
		{Path: "status", Value: string(st)},
	})
}

func (r *ItemRepository) update(ctx context.Context, userID string, updates []firestore.Update) error {
	ctx, span := r.startSpan(ctx, "update")
	defer span.End()

	_, err := r.doc(userID).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return item.ErrNoAccessToken
	}
	if err != nil {
		return r.fail(span, fmt.Errorf("%w: failed to update token document for user %s: %w", item.ErrVault, userID, err))
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, userID string) error {
	ctx, span := r.startSpan(ctx, "delete")
	defer span.End()

	if _, err := r.doc(userID).Delete(ctx); err != nil {
		return r.fail(span, fmt.Errorf("%w: failed to delete access token for user %s: %w", item.ErrVault, userID, err))
	}
	return nil
}

func (r *ItemRepository) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return firestoreTracer.Start(ctx, "firestore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "firestore"),
			attribute.String("db.operation", op),
			attribute.String("db.collection", r.collection),
		),
	)
}

func (r *ItemRepository) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return err
}
