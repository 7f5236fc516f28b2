// Package orders provides the order-event handler module. It is a pure bus
// collaborator: it subscribes to order lifecycle events and publishes the
// derived inventory and status events, chaining correlation and causation
// ids so the whole cascade is traceable as one logical operation.
package orders

import (
	"context"
	"fmt"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/logger"
)

// Module reacts to order events. Not HTTP-facing.
type Module struct {
	bus events.Bus
	log *logger.Logger

	subscriberIDs []string
}

// NewModule creates the orders module.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	return &Module{bus: bus, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// RegisterHandlers subscribes the module to the order lifecycle events.
// Inventory adjustment is the handler that must not be lost on a transient
// failure, so it registers with retry enabled.
func (m *Module) RegisterHandlers() error {
	registrations := []struct {
		eventType string
		handler   events.HandlerFunc
		opts      events.SubscribeOptions
	}{
		{events.OrderCreated, m.handleOrderCreated, events.SubscribeOptions{Retry: true}},
		{events.OrderCancelled, m.handleOrderCancelled, events.SubscribeOptions{Retry: true}},
		{events.OrderPaymentProcessed, m.handlePaymentProcessed, events.SubscribeOptions{}},
		{events.OrderPaymentFailed, m.handlePaymentFailed, events.SubscribeOptions{}},
	}

	for _, reg := range registrations {
		id, err := m.bus.Subscribe(reg.eventType, reg.handler, reg.opts)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", reg.eventType, err)
		}
		m.subscriberIDs = append(m.subscriberIDs, id.String())
	}
	return nil
}

// handleOrderCreated reserves stock: one inventory.updated per order item,
// each carrying the order's correlation root and caused by the order event.
func (m *Module) handleOrderCreated(ctx context.Context, event *events.Event) error {
	orderID, _ := event.Data["orderId"].(string)
	items, err := orderItems(event.Data)
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}

	for _, item := range items {
		_, err := m.bus.Publish(ctx, events.InventoryUpdated, map[string]any{
			"productId": item.ProductID,
			"quantity":  -item.Quantity,
			"reason":    "order_reserved",
			"orderId":   orderID,
		}, derivedMetadata(event))
		if err != nil {
			return fmt.Errorf("publish inventory update for %s: %w", item.ProductID, err)
		}
	}

	m.log.Info("order stock reserved", "order_id", orderID, "items", len(items))
	return nil
}

// handleOrderCancelled restocks the cancelled order's items.
func (m *Module) handleOrderCancelled(ctx context.Context, event *events.Event) error {
	orderID, _ := event.Data["orderId"].(string)
	items, err := orderItems(event.Data)
	if err != nil {
		// Cancellation events carry items only when the caller still has
		// them; without items there is nothing to restock.
		m.log.Debug("cancellation without items", "order_id", orderID)
		return nil
	}

	for _, item := range items {
		_, err := m.bus.Publish(ctx, events.InventoryUpdated, map[string]any{
			"productId": item.ProductID,
			"quantity":  item.Quantity,
			"reason":    "order_cancelled",
			"orderId":   orderID,
		}, derivedMetadata(event))
		if err != nil {
			return fmt.Errorf("publish restock for %s: %w", item.ProductID, err)
		}
	}
	return nil
}

// handlePaymentProcessed marks the order paid.
func (m *Module) handlePaymentProcessed(ctx context.Context, event *events.Event) error {
	orderID, _ := event.Data["orderId"].(string)
	if orderID == "" {
		return fmt.Errorf("payment event without orderId")
	}

	_, err := m.bus.Publish(ctx, events.OrderUpdated, map[string]any{
		"orderId": orderID,
		"status":  "paid",
	}, derivedMetadata(event))
	return err
}

// handlePaymentFailed flags the order and raises a notification event.
func (m *Module) handlePaymentFailed(ctx context.Context, event *events.Event) error {
	orderID, _ := event.Data["orderId"].(string)
	if orderID == "" {
		return fmt.Errorf("payment event without orderId")
	}

	if _, err := m.bus.Publish(ctx, events.OrderUpdated, map[string]any{
		"orderId": orderID,
		"status":  "payment_failed",
	}, derivedMetadata(event)); err != nil {
		return err
	}

	recipient, _ := event.Data["customerEmail"].(string)
	if recipient == "" {
		return nil
	}
	_, err := m.bus.Publish(ctx, events.NotificationFailed, map[string]any{
		"recipient": recipient,
		"reason":    "payment_failed",
		"orderId":   orderID,
	}, derivedMetadata(event))
	return err
}

// Reconcile handles unprocessed events surfaced by the pull-based
// reconciler. Order events are re-run through the same handlers; events the
// module does not own are acknowledged untouched. Handlers are additive
// publishes, so at-least-once re-delivery only extends the audit trail.
func (m *Module) Reconcile(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.OrderCreated:
		return m.handleOrderCreated(ctx, event)
	case events.OrderCancelled:
		return m.handleOrderCancelled(ctx, event)
	case events.OrderPaymentProcessed:
		return m.handlePaymentProcessed(ctx, event)
	case events.OrderPaymentFailed:
		return m.handlePaymentFailed(ctx, event)
	default:
		return nil
	}
}

// derivedMetadata chains a published event to its trigger: same correlation
// root, causation pointing at the trigger.
func derivedMetadata(trigger *events.Event) events.Metadata {
	return events.Metadata{
		CorrelationID: trigger.Metadata.CorrelationID,
		CausationID:   trigger.ID.String(),
		UserID:        trigger.Metadata.UserID,
	}
}

type orderItem struct {
	ProductID string
	Quantity  float64
}

// orderItems decodes the items payload. Data arrives either as
// []map[string]any from in-process publishers or as []any after a JSON
// round trip through the store or the distribution channel.
func orderItems(data map[string]any) ([]orderItem, error) {
	raw, ok := data["items"]
	if !ok {
		return nil, fmt.Errorf("missing items")
	}

	var entries []map[string]any
	switch typed := raw.(type) {
	case []map[string]any:
		entries = typed
	case []any:
		for _, item := range typed {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("malformed item entry")
			}
			entries = append(entries, entry)
		}
	default:
		return nil, fmt.Errorf("malformed items payload")
	}

	items := make([]orderItem, 0, len(entries))
	for _, entry := range entries {
		productID, _ := entry["productId"].(string)
		if productID == "" {
			return nil, fmt.Errorf("item without productId")
		}
		quantity, ok := numeric(entry["quantity"])
		if !ok || quantity <= 0 {
			return nil, fmt.Errorf("item %s without positive quantity", productID)
		}
		items = append(items, orderItem{ProductID: productID, Quantity: quantity})
	}
	return items, nil
}

func numeric(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	default:
		return 0, false
	}
}
