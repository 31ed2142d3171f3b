// Package driving defines the stage and pipeline services offered to the
// CLI and MCP adapters. Each interface maps to one quality stage; the
// orchestrator composes them. Implementations live in internal/core/services.
package driving
