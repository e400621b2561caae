package pkg

// Shared value types for the coordination layer

// Keyspace naming used by every participant. These formats are shared with
// processes written in other languages and must not change.
const (
	// NodeKeyPrefix prefixes the registration key holding a node's pid
	NodeKeyPrefix = "node_"
	// ShutdownKeySuffix suffixes the key holding a node's shutdown flag
	ShutdownKeySuffix = "_is_shutdown"
)

// NodeKey returns the registration key for a node name
func NodeKey(name string) string {
	return NodeKeyPrefix + name
}

// ShutdownKey returns the shutdown flag key for a node name
func ShutdownKey(name string) string {
	return name + ShutdownKeySuffix
}

// FieldKey returns the storage key of an entry field
func FieldKey(prefix, field string) string {
	return prefix + "_" + field
}

// NodeStatus is a point-in-time view of a registered node
type NodeStatus struct {
	Name              string `json:"name"`
	PID               int    `json:"pid"`
	Alive             bool   `json:"alive"`
	ShutdownRequested bool   `json:"shutdown_requested"`
}

// KeyValue is a single stored key with its decoded value
type KeyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
