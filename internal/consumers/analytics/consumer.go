package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/pkg/enums"
	"github.com/smartinventory/inventory-backend/pkg/logger"
	"github.com/smartinventory/inventory-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer writes inventory events to BigQuery while honoring Redis idempotency.
type Consumer struct {
	client        tableInserter
	movementTable string
	orderTable    string
	manager       idempotencyChecker
	logg          *logger.Logger
}

// NewConsumer builds a new analytics consumer.
func NewConsumer(client tableInserter, movementTable, orderTable string, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(movementTable) == "" {
		return nil, fmt.Errorf("movement events table name required")
	}
	if strings.TrimSpace(orderTable) == "" {
		return nil, fmt.Errorf("order events table name required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:        client,
		movementTable: strings.TrimSpace(movementTable),
		orderTable:    strings.TrimSpace(orderTable),
		manager:       manager,
		logg:          logg,
	}, nil
}

// Process ingests the outbox envelope into BigQuery if the event is supported.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	table := c.tableFor(eventType)
	if table == "" {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	row, err := buildRow(eventType, envelope, table == c.movementTable)
	if err != nil {
		c.logg.Error(logCtx, "failed to build analytics row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	if err := c.client.InsertRows(ctx, table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert analytics row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "inventory event ingested")
	return nil
}

func (c *Consumer) tableFor(eventType enums.OutboxEventType) string {
	switch eventType {
	case enums.EventMovementRecorded,
		enums.EventTransferDiscrepancyDetected,
		enums.EventStockLevelDriftDetected:
		return c.movementTable
	case enums.EventPurchaseOrderCreated,
		enums.EventPurchaseOrderSent,
		enums.EventPurchaseOrderConfirmed,
		enums.EventPurchaseOrderShipped,
		enums.EventPurchaseOrderReceived,
		enums.EventPurchaseOrderCancelled:
		return c.orderTable
	default:
		return ""
	}
}

type movementEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	ProductID     *string            `bigquery:"product_id"`
	LocationID    *string            `bigquery:"location_id"`
	Kind          *string            `bigquery:"kind"`
	QuantityDelta *int64             `bigquery:"quantity_delta"`
	SourceRef     *string            `bigquery:"source_ref"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

type orderEventRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	PurchaseOrderID *string            `bigquery:"purchase_order_id"`
	Number          *string            `bigquery:"number"`
	SupplierID      *string            `bigquery:"supplier_id"`
	LocationID      *string            `bigquery:"location_id"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, movement bool) (any, error) {
	payload := map[string]any{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	if movement {
		return &movementEventRow{
			EventID:       envelope.EventID,
			EventType:     string(eventType),
			OccurredAt:    envelope.OccurredAt,
			ProductID:     stringValue(payload, "product_id"),
			LocationID:    stringValue(payload, "location_id"),
			Kind:          stringValue(payload, "kind"),
			QuantityDelta: intValue(payload, "quantity_delta"),
			SourceRef:     stringValue(payload, "source_ref"),
			Payload:       payloadJSON,
		}, nil
	}
	return &orderEventRow{
		EventID:         envelope.EventID,
		EventType:       string(eventType),
		OccurredAt:      envelope.OccurredAt,
		PurchaseOrderID: stringValue(payload, "purchase_order_id"),
		Number:          stringValue(payload, "number"),
		SupplierID:      stringValue(payload, "supplier_id"),
		LocationID:      stringValue(payload, "location_id"),
		Payload:         payloadJSON,
	}, nil
}

func stringValue(payload map[string]any, key string) *string {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		if str, ok := raw.(string); ok {
			trimmed := strings.TrimSpace(str)
			if trimmed != "" {
				return &trimmed
			}
		}
	}
	return nil
}

func intValue(payload map[string]any, key string) *int64 {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		if num, ok := raw.(float64); ok {
			value := int64(num)
			return &value
		}
	}
	return nil
}
