// Package testing provides test helpers for code built on the call engine.
//
// # Mocks
//
// The mocks subpackage provides testify-based mock implementations of the
// inbound capabilities of the engine:
//   - auth.Identity (token acquisition and refresh)
//   - the transport Doer (a single HTTP round trip)
//
// # Fixtures
//
// The fixtures subpackage builds canned transport responses for service
// call scenarios: throttling with Retry-After, server errors, truncated
// bodies and empty bodies.
//
// # Usage
//
//	import (
//		"github.com/jasonsandlin/xbox-live-api-go/testing/mocks"
//		"github.com/jasonsandlin/xbox-live-api-go/testing/fixtures"
//	)
package testing
