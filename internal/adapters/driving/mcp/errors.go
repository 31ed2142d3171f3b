// Package mcp provides an MCP (Model Context Protocol) server adapter for lidarqc.
// It lets AI assistants run the quality pipeline and inspect recorded runs.
package mcp

import "errors"

// ErrMissingPipeline is returned when the quality pipeline is not provided.
var ErrMissingPipeline = errors.New("mcp: quality pipeline is required")
