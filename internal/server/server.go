package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ironsheep/bubblescan/internal/imaging"
	"github.com/ironsheep/bubblescan/internal/sheet"
)

// Name and protocol version reported during the MCP handshake.
const (
	ServerName      = "bubblescan"
	ProtocolVersion = "2024-11-05"
)

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.ImageCache
	logger  *slog.Logger
	version string

	mu     sync.RWMutex
	reader *sheet.Reader
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolFailed     = -32000
)

// New creates a server that reads sheets with reader. A nil logger discards
// output.
func New(reader *sheet.Reader, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cache:   imaging.NewImageCache(),
		logger:  logger,
		version: version,
		reader:  reader,
	}
}

// SetReader replaces the sheet reader, for example after a configuration
// reload. Calls already in progress finish with the previous reader.
func (s *Server) SetReader(r *sheet.Reader) {
	s.mu.Lock()
	s.reader = r
	s.mu.Unlock()
}

func (s *Server) sheetReader() *sheet.Reader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader
}

// Run serves MCP requests on stdin and stdout until stdin closes or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to
// w. It returns when r is exhausted or as soon as ctx is cancelled, even while
// waiting for input. On cancellation r is closed when it is an io.Closer, so
// the pending read is released; otherwise that read is abandoned.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	done := make(chan struct{})
	defer close(done)

	lines := make(chan []byte)
	var scanErr error
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- append([]byte(nil), scanner.Bytes()...):
			case <-done:
				return
			}
		}
		scanErr = scanner.Err()
	}()

	cancelled := func() error {
		if c, ok := r.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.logger.Debug("failed to close input", "error", err)
			}
		}
		return ctx.Err()
	}

	encoder := json.NewEncoder(w)
	for {
		var line []byte
		select {
		case <-ctx.Done():
			return cancelled()
		case l, ok := <-lines:
			if !ok {
				if scanErr != nil {
					return fmt.Errorf("scanner error: %w", scanErr)
				}
				return nil
			}
			line = l
		}
		if ctx.Err() != nil {
			return cancelled()
		}
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(s.errorResponse(nil, codeParseError, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": s.version,
			},
		},
	}
}

// errorResponse creates a JSON-RPC error response. An empty data string is
// omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}
