// Package nodeconfig holds the per-node, per-component configuration store.
// Values are cty-typed so scalar config coming from subgraph files, overlay
// files, manifests, and Go callers all share one conversion path.
package nodeconfig
