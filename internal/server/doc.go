// Package server exposes the bubble sheet reader as an MCP (Model Context
// Protocol) tool server.
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
// Scan information:
//   - image_load: Load a scan and report its size and format
//   - image_dimensions: Get width and height
//   - image_evict: Drop scans from the cache
//
// Sheet reading:
//   - sheet_find_corners: Locate the registration marks and document corners
//   - sheet_zoom_mark: Enlarge one registration mark
//   - sheet_read: Decode fields and answers of one sheet
//   - sheet_grid_overlay: Draw the grid and fill ratios over the scan
//   - sheet_process_batch: Read, grade and report a batch of sheets
//
// # Image Caching
//
// Scans are decoded once and cached by path for the lifetime of the server,
// so inspecting a sheet with several tools does not decode it repeatedly.
// Batch processing reads files directly and does not fill the cache.
//
// # Error Handling
//
// Tool arguments are validated against the tool's input schema before the
// tool runs; a mismatch is a -32602 error naming the failing keyword.
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. A sheet whose corners cannot be
// found is a failed sheet_read but a successful sheet_find_corners with
// found set to false.
package server
