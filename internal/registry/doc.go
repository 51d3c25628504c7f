// Package registry holds the component type registry. Compiled-in modules
// register Go handlers for the component types they provide; component types
// claimed by runtime modules listed in the graph stay external and are never
// started by the launcher.
package registry
