package mcp

import (
	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/core/ports/driving"
)

// Ports aggregates the driving ports and defaults used by the MCP server.
type Ports struct {
	// Pipeline runs the quality workflow.
	Pipeline driving.QualityPipeline

	// Statistics reports point cloud statistics. Optional.
	Statistics driving.StatisticsService

	// History lists recorded runs. Optional.
	History driving.RunHistory

	// Settings supply parameter defaults for tool calls.
	Settings domain.Settings

	// OutputRoot is used when a tool call names none.
	OutputRoot string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipeline
	}
	return nil
}
