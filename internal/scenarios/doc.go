// Package scenarios serves the test harness scenario tools over MCP.
//
// The server lists scenarios, reports the images a scenario uses, simulates
// image builds with progress notifications, and publishes the image catalog.
package scenarios
