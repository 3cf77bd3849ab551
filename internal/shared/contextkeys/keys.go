package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "cowork-console context key " + string(c)
}

// RequestIDKey is the key for the per-request identifier in context.Context.
const RequestIDKey = contextKey("requestID")

// AdminIDKey is the key for the authenticated admin subject in context.Context.
const AdminIDKey = contextKey("adminID")

// CollectionKey is the key for the collection name an operation targets.
const CollectionKey = contextKey("collection")

// OperationKey is the key for the logical operation name (upsert, remove, upload...).
const OperationKey = contextKey("operation")
