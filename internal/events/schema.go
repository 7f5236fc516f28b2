package events

import "strings"

// Recognized event types, grouped by domain prefix. The set is closed:
// publishers must not invent types outside this list, and the admin API
// rejects unknown types before they reach the bus.
const (
	UserCreated  = "user.created"
	UserUpdated  = "user.updated"
	UserDeleted  = "user.deleted"
	UserLoggedIn = "user.logged_in"

	OrderCreated          = "order.created"
	OrderUpdated          = "order.updated"
	OrderCancelled        = "order.cancelled"
	OrderCompleted        = "order.completed"
	OrderPaymentProcessed = "order.payment_processed"
	OrderPaymentFailed    = "order.payment_failed"

	InventoryUpdated  = "inventory.updated"
	InventoryLowStock = "inventory.low_stock"

	NotificationSent   = "notification.sent"
	NotificationFailed = "notification.failed"

	SystemStartup  = "system.startup"
	SystemShutdown = "system.shutdown"
	SystemError    = "system.error"
)

// WildcardType subscribes a handler to every event type.
const WildcardType = "*"

var knownTypes = map[string]struct{}{
	UserCreated:           {},
	UserUpdated:           {},
	UserDeleted:           {},
	UserLoggedIn:          {},
	OrderCreated:          {},
	OrderUpdated:          {},
	OrderCancelled:        {},
	OrderCompleted:        {},
	OrderPaymentProcessed: {},
	OrderPaymentFailed:    {},
	InventoryUpdated:      {},
	InventoryLowStock:     {},
	NotificationSent:      {},
	NotificationFailed:    {},
	SystemStartup:         {},
	SystemShutdown:        {},
	SystemError:           {},
}

// requiredFields lists the data keys a publisher must supply per event type.
// Validation is advisory: publishers call ValidateData before Publish, the
// bus itself trusts its input.
var requiredFields = map[string][]string{
	UserCreated:           {"userId", "email"},
	UserUpdated:           {"userId"},
	UserDeleted:           {"userId"},
	UserLoggedIn:          {"userId"},
	OrderCreated:          {"orderId", "items"},
	OrderUpdated:          {"orderId"},
	OrderCancelled:        {"orderId"},
	OrderCompleted:        {"orderId"},
	OrderPaymentProcessed: {"orderId", "amount"},
	OrderPaymentFailed:    {"orderId", "reason"},
	InventoryUpdated:      {"productId", "quantity"},
	InventoryLowStock:     {"productId"},
	NotificationSent:      {"recipient", "channel"},
	NotificationFailed:    {"recipient", "reason"},
	SystemError:           {"message"},
}

// IsValidType reports whether eventType belongs to the closed enumeration.
func IsValidType(eventType string) bool {
	_, ok := knownTypes[eventType]
	return ok
}

// KnownTypes returns the full enumeration, for introspection endpoints.
func KnownTypes() []string {
	types := make([]string, 0, len(knownTypes))
	for t := range knownTypes {
		types = append(types, t)
	}
	return types
}

// Domain returns the prefix of an event type ("order" for "order.created").
func Domain(eventType string) string {
	if idx := strings.IndexByte(eventType, '.'); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}

// ValidateData checks that data carries the required fields for the given
// event type. Returns ok and a list of human-readable problems.
func ValidateData(eventType string, data map[string]any) (bool, []string) {
	if !IsValidType(eventType) {
		return false, []string{"unknown event type: " + eventType}
	}

	var errs []string
	for _, field := range requiredFields[eventType] {
		value, present := data[field]
		if !present || value == nil {
			errs = append(errs, "missing required field: "+field)
			continue
		}
		if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
			errs = append(errs, "required field is empty: "+field)
		}
	}

	return len(errs) == 0, errs
}
