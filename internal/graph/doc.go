// Package graph defines the application graph model: named nodes holding
// typed components, directed edges between component channels, and the
// loader that reads subgraph definition files into that model.
package graph
