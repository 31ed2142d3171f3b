// Package memory provides in-memory implementations of driven port interfaces.
// They back tests and runs started with history disabled.
package memory
