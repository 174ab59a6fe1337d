package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the scanned sheet",
	}
}

func pathOnlySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": pathProperty(),
		},
		"required": []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Scan information
		{
			Name:        "image_load",
			Description: "Load a scanned sheet and return its dimensions, format and file size. The decoded scan is cached for later calls.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of a scanned sheet in pixels.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "image_evict",
			Description: "Drop a scan from the cache so the next call reads the file again. Without a path, the whole cache is cleared.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
			},
		},

		// Sheet reading
		{
			Name:        "sheet_find_corners",
			Description: "Locate the L-mark and the three square registration marks and return the four document corners (TL, TR, BR, BL) in pixels.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "sheet_zoom_mark",
			Description: "Crop and enlarge one registration mark of a sheet, to check how it was detected. Returns a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"corner": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"TL", "TR", "BR", "BL"},
						"description": "Which mark: TL is the L-mark, the others are square marks",
					},
					"scale": map[string]interface{}{
						"type":             "number",
						"exclusiveMinimum": 0,
						"description":      "Optional scale factor. Default 4.0",
						"default":          4.0,
					},
				},
				"required": []string{"path", "corner"},
			},
		},
		{
			Name:        "sheet_read",
			Description: "Read every field and answer on a scanned sheet. Returns the decoded fields, answers, the sheet's fill threshold and whether it is an answer key.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "sheet_grid_overlay",
			Description: "Draw the registration, the grid and each sampled bubble's fill ratio over the scan. Returns a base64 PNG, or writes it to output_path when given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the overlay to instead of returning it",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sheet_process_batch",
			Description: "Read a batch of sheets, grade exams against the answer keys in the batch and optionally write results.csv, keys.csv, scores.csv and rejected.csv to output_dir. The keys_file, arrangement_file, mcta and timestamp_files settings shape the reports as they do for the process command.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"minItems":    1,
						"description": "Absolute paths of the scanned sheets",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory for the CSV reports",
					},
				},
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
