// Package manifest loads the HCL application manifest: the declarative
// replacement for per-application launcher scripts. A manifest names the
// application, maps workspaces to roots, lists the subgraphs to load, the
// modules to activate, startup config writes, and message schema globs.
package manifest
