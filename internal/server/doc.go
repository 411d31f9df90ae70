// Package server implements the MCP (Model Context Protocol) server for
// hand-drawn character recognition.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Strokes are passed as [[[x, y], ...], ...] in canvas coordinates, one
// inner list per stroke in drawing order.
//
// Recognition:
//   - character_recognize: Ranked template matches
//   - character_coarse_candidates: Significant-point distances before the cut
//   - character_features: Normalized strokes and feature vectors
//
// Visualization:
//   - character_render: Strokes or feature heatmaps as PNG
//
// OCR:
//   - character_ocr_check: Tesseract's reading next to the ranking
//
// Template store:
//   - template_add: Compute and store a template
//   - template_query: List templates by stroke and point count
//   - store_persist: Flush the store
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Template store failures abort the call. An OCR failure does not; it is
// reported in the result's ocr_error field.
//
// # Usage
//
//	st, err := store.Open("templates.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.New(config.Default(), st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Serve(os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
