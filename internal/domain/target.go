package domain

import "strings"

// PlaceholderNamespace is the literal a client produces when it stringifies a missing schema name.
const PlaceholderNamespace = "undefined"

// TargetRef identifies the destination data source of a run.
type TargetRef struct {
	SourceID  string `json:"source_id"`
	Namespace string `json:"namespace"`
}

// Key returns the opaque "<sourceId>:<namespace>" selection key.
func (t TargetRef) Key() string {
	return t.SourceID + ":" + t.Namespace
}

// ParseTargetKey decodes a "<sourceId>:<namespace>" selection key.
// A key without a separator yields an empty namespace; the placeholder
// namespace is kept as-is so validation can reject it.
func ParseTargetKey(key string) TargetRef {
	sourceID, namespace, _ := strings.Cut(key, ":")
	return TargetRef{SourceID: sourceID, Namespace: namespace}
}
