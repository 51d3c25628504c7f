// Package app contains the application handle: the object a launcher builds,
// points at subgraph definitions and modules, configures, and finally runs.
// The graph execution runtime stays external; the handle owns everything
// around it, including the process lifecycle.
package app
