package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/bubblescan/internal/corners"
	"github.com/ironsheep/bubblescan/internal/geometry"
	"github.com/ironsheep/bubblescan/internal/imaging"
	"github.com/ironsheep/bubblescan/internal/sheet"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sheet_read").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Arguments that do not match the tool's input schema are rejected with
// -32602 before the tool runs. Tool execution errors return a JSON-RPC error
// response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if err := validateArguments(params.Name, params.Arguments); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Scan information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_evict":
		return s.handleImageEvict(args)

	// Sheet reading
	case "sheet_find_corners":
		return s.handleSheetFindCorners(args)
	case "sheet_zoom_mark":
		return s.handleSheetZoomMark(args)
	case "sheet_read":
		return s.handleSheetRead(args)
	case "sheet_grid_overlay":
		return s.handleSheetGridOverlay(args)
	case "sheet_process_batch":
		return s.handleSheetProcessBatch(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Scan Information Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func parsePathArgs(args json.RawMessage) (pathArgs, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, err
	}
	if a.Path == "" {
		return a, errors.New("path is required")
	}
	return a, nil
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	a, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// DimensionsResult is returned by image_dimensions.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	a, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &DimensionsResult{Width: b.Dx(), Height: b.Dy()}, nil
}

// EvictResult is returned by image_evict.
type EvictResult struct {
	Cached int `json:"cached"`
}

func (s *Server) handleImageEvict(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		s.cache.Clear()
	} else {
		s.cache.Evict(a.Path)
	}
	return &EvictResult{Cached: s.cache.Len()}, nil
}

// === Sheet Handlers ===

// CornersResult is returned by sheet_find_corners.
type CornersResult struct {
	Found bool `json:"found"`

	// Corners are TL, TR, BR, BL in pixels.
	Corners    geometry.Polygon   `json:"corners,omitempty"`
	LMark      geometry.Polygon   `json:"l_mark,omitempty"`
	UnitLength float64            `json:"unit_length,omitempty"`
	Squares    []geometry.Polygon `json:"squares,omitempty"`

	// Reason explains why no registration was found.
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleSheetFindCorners(args json.RawMessage) (interface{}, error) {
	a, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	_, reg, err := s.sheetReader().Register(filepath.Base(a.Path), img)
	var cfe *corners.CornerFindingError
	switch {
	case errors.As(err, &cfe):
		return &CornersResult{Reason: cfe.Error()}, nil
	case err != nil:
		return nil, err
	}

	res := &CornersResult{
		Found:      true,
		Corners:    reg.Polygon(),
		LMark:      reg.LMark.Polygon,
		UnitLength: reg.LMark.UnitLength,
	}
	for _, sq := range reg.Squares {
		res.Squares = append(res.Squares, sq.Polygon)
	}
	return res, nil
}

type sheetZoomMarkArgs struct {
	Path   string  `json:"path"`
	Corner string  `json:"corner"`
	Scale  float64 `json:"scale"`
}

var cornerNames = map[string]geometry.Corner{
	"TL": geometry.TopLeft,
	"TR": geometry.TopRight,
	"BR": geometry.BottomRight,
	"BL": geometry.BottomLeft,
}

// zoomPad is the margin in pixels kept around a zoomed mark.
const zoomPad = 8

func (s *Server) handleSheetZoomMark(args json.RawMessage) (interface{}, error) {
	var a sheetZoomMarkArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	corner, ok := cornerNames[a.Corner]
	if !ok {
		return nil, fmt.Errorf("invalid corner %q: use TL, TR, BR or BL", a.Corner)
	}
	if a.Scale == 0 {
		a.Scale = 4.0
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	_, reg, err := s.sheetReader().Register(filepath.Base(a.Path), img)
	if err != nil {
		return nil, err
	}
	zoom, err := imaging.ZoomPolygon(img, reg.Mark(corner), zoomPad, a.Scale)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeOverlay(zoom)
}

func (s *Server) handleSheetRead(args json.RawMessage) (interface{}, error) {
	a, err := parsePathArgs(args)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.sheetReader().Process(filepath.Base(a.Path), img)
}

type sheetGridOverlayArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

// SavedOverlay is returned by sheet_grid_overlay when the overlay is written
// to a file.
type SavedOverlay struct {
	Path      string  `json:"path"`
	Threshold float64 `json:"threshold"`
}

func (s *Server) handleSheetGridOverlay(args json.RawMessage) (interface{}, error) {
	var a sheetGridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	analysis, err := s.sheetReader().Analyze(filepath.Base(a.Path), img)
	if err != nil {
		return nil, err
	}
	overlay := analysis.Overlay(img)
	if a.OutputPath == "" {
		return imaging.EncodeOverlay(overlay)
	}
	if err := imaging.Save(overlay, a.OutputPath); err != nil {
		return nil, err
	}
	return &SavedOverlay{Path: a.OutputPath, Threshold: analysis.Threshold}, nil
}

type sheetProcessBatchArgs struct {
	Paths     []string `json:"paths"`
	OutputDir string   `json:"output_dir"`
}

// BatchSummary is returned by sheet_process_batch.
type BatchSummary struct {
	RunID    string            `json:"run_id"`
	Exams    []*sheet.Result   `json:"exams"`
	Keys     []*sheet.Result   `json:"keys"`
	Rejected []sheet.Rejection `json:"rejected"`
	Scores   []ScoreSummary    `json:"scores"`
	Reports  []string          `json:"reports,omitempty"`
}

// ScoreSummary is one graded exam.
type ScoreSummary struct {
	Sheet    string  `json:"sheet"`
	KeyFound bool    `json:"key_found"`
	Points   int     `json:"points"`
	Percent  float64 `json:"percent"`
}

func (s *Server) handleSheetProcessBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sheetProcessBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths is required")
	}

	reader := s.sheetReader()
	batch, err := reader.ProcessBatch(ctx, a.Paths)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		RunID:    batch.RunID.String(),
		Exams:    batch.Exams(),
		Keys:     batch.Keys(),
		Rejected: batch.Rejected,
	}
	for _, sc := range sheet.ScoreResults(summary.Exams, summary.Keys) {
		summary.Scores = append(summary.Scores, ScoreSummary{
			Sheet:    sc.Result.Sheet,
			KeyFound: sc.Found,
			Points:   sc.Points,
			Percent:  sc.Percent,
		})
	}

	if a.OutputDir != "" {
		summary.Reports, err = reader.WriteReports(a.OutputDir, batch)
		if err != nil {
			return nil, err
		}
	}
	return summary, nil
}
