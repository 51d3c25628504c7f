// Package schema holds the message schema registry. Schema files declare the
// message protos the application exchanges with the runtime; builders
// construct typed message instances against those declarations. The wire
// codec itself belongs to the runtime, not the launcher.
package schema
