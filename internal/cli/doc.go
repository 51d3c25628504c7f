// Package cli parses command-line arguments into a launcher configuration.
package cli
