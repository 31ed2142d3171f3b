// Package services implements the driving port interfaces.
// Services contain the pipeline logic and orchestrate calls to driven
// ports (engines, codecs, stores).
//
// Every engine call runs under the timeout configured for its class of
// work; a timed-out call fails its stage and leaves no partial output
// behind as a cache hit.
package services
