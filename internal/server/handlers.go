package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ironsheep/kanji-match-mcp/internal/ocr"
	"github.com/ironsheep/kanji-match-mcp/internal/recognizer"
	"github.com/ironsheep/kanji-match-mcp/internal/render"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "character_recognize").
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
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Recognition
	case "character_recognize":
		return s.handleCharacterRecognize(args)
	case "character_coarse_candidates":
		return s.handleCharacterCoarseCandidates(args)
	case "character_features":
		return s.handleCharacterFeatures(args)

	// Visualization
	case "character_render":
		return s.handleCharacterRender(args)

	// OCR
	case "character_ocr_check":
		return s.handleCharacterOCRCheck(args)

	// Template store
	case "template_add":
		return s.handleTemplateAdd(args)
	case "template_query":
		return s.handleTemplateQuery(args)
	case "store_persist":
		return s.handleStorePersist(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func limitTo[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// === Recognition Handlers ===

type strokesArgs struct {
	Strokes [][][]float64 `json:"strokes"`
}

func (a strokesArgs) list() []stroke.Stroke {
	return stroke.FromPairs(a.Strokes)
}

type characterRecognizeArgs struct {
	strokesArgs
	Limit *int `json:"limit"`
}

type recognizeResult struct {
	NumberOfStrokes int                `json:"number_of_strokes"`
	NumberOfPoints  int                `json:"number_of_points"`
	Policy          string             `json:"policy"`
	Total           int                `json:"total"`
	Scores          []recognizer.Score `json:"scores"`
}

func (s *Server) handleCharacterRecognize(args json.RawMessage) (interface{}, error) {
	var a characterRecognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	limit := 10
	if a.Limit != nil {
		limit = *a.Limit
	}

	c := s.recognizer.Character(a.list())
	scores, err := s.recognizer.ScoreCharacter(c)
	if err != nil {
		return nil, err
	}
	return &recognizeResult{
		NumberOfStrokes: c.NumberOfStrokes,
		NumberOfPoints:  c.NumberOfPoints,
		Policy:          s.cfg.ScoringPolicy,
		Total:           len(scores),
		Scores:          limitTo(scores, limit),
	}, nil
}

type coarseCandidate struct {
	TemplateID      string  `json:"template_id"`
	Value           string  `json:"value"`
	Distance        float64 `json:"distance"`
	NumberOfStrokes int     `json:"number_of_strokes"`
}

type coarseResult struct {
	Selected   int               `json:"selected"`
	Kept       int               `json:"kept"`
	Candidates []coarseCandidate `json:"candidates"`
}

func (s *Server) handleCharacterCoarseCandidates(args json.RawMessage) (interface{}, error) {
	var a characterRecognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	limit := 20
	if a.Limit != nil {
		limit = *a.Limit
	}

	candidates, err := s.recognizer.CoarseRecognize(s.recognizer.Character(a.list()))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	out := make([]coarseCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = coarseCandidate{
			TemplateID:      c.Template.ID,
			Value:           c.Template.Value,
			Distance:        c.Distance,
			NumberOfStrokes: c.Template.NumberOfStrokes,
		}
	}

	return &coarseResult{Selected: len(out), Kept: recognizer.CoarseKeep(len(out)), Candidates: limitTo(out, limit)}, nil
}

type characterFeaturesArgs struct {
	strokesArgs
	Smooth *bool `json:"smooth"`
}

type featuresResult struct {
	NumberOfStrokes    int                 `json:"number_of_strokes"`
	NumberOfPoints     int                 `json:"number_of_points"`
	Strokes            [][][]float64       `json:"strokes"`
	Heatmap            []float64           `json:"heatmap"`
	Direction          [4][]float64        `json:"direction"`
	SignificantHeatmap []float64           `json:"significant_heatmap"`
	Variants           recognizer.Variants `json:"variants"`
}

func (s *Server) handleCharacterFeatures(args json.RawMessage) (interface{}, error) {
	var a characterFeaturesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	smooth := s.cfg.SmoothQuery
	if a.Smooth != nil {
		smooth = *a.Smooth
	}

	c := s.recognizer.Pipeline().Build(a.list(), recognizer.Options{Smooth: smooth})
	return &featuresResult{
		NumberOfStrokes:    c.NumberOfStrokes,
		NumberOfPoints:     c.NumberOfPoints,
		Strokes:            stroke.ToPairs(c.Strokes),
		Heatmap:            c.Heatmap,
		Direction:          c.Direction,
		SignificantHeatmap: c.SignificantHeatmap,
		Variants:           c.Variants,
	}, nil
}

// === Visualization Handlers ===

type characterRenderArgs struct {
	strokesArgs
	View      string `json:"view"`
	Grid      string `json:"grid"`
	ShowCells bool   `json:"show_cells"`
	GridColor string `json:"grid_color"`
	Scale     int    `json:"scale"`
}

func (s *Server) handleCharacterRender(args json.RawMessage) (interface{}, error) {
	var a characterRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.View == "" {
		a.View = "normalized"
	}
	if a.GridColor == "" {
		a.GridColor = "#FF000080"
	}
	if a.Scale < 0 || a.Scale > render.MaxScale {
		return nil, fmt.Errorf("scale must be between 0 and %d, got %d", render.MaxScale, a.Scale)
	}

	gridCount, err := s.gridCount(a.Grid)
	if err != nil {
		return nil, err
	}
	strokeOpts := render.StrokeOptions{
		Scale:     a.Scale,
		GridCount: gridCount,
		ShowCells: a.ShowCells,
		GridColor: a.GridColor,
	}
	if strokeOpts.Scale <= 0 {
		strokeOpts.Scale = 4
	}

	if a.View == "raw" {
		return render.Strokes(a.list(), s.cfg.Size, strokeOpts)
	}

	c := s.recognizer.Character(a.list())
	switch a.View {
	case "normalized":
		return render.Strokes(c.Strokes, s.cfg.Size, strokeOpts)
	case "heatmap":
		return render.SquareHeatmap(c.Heatmap, 3, a.Scale)
	case "significant_heatmap":
		return render.SquareHeatmap(c.SignificantHeatmap, 1, a.Scale)
	case "direction":
		var all []float64
		for _, ch := range c.Direction {
			all = append(all, ch...)
		}
		return render.SquareHeatmap(all, 4, a.Scale)
	default:
		return nil, fmt.Errorf("unknown view: %s", a.View)
	}
}

// gridCount maps a grid name to the resolution of that feature grid.
func (s *Server) gridCount(name string) (int, error) {
	switch name {
	case "", "none":
		return 0, nil
	case "heatmap":
		return s.cfg.SmoothedHeatmapGrid, nil
	case "significant":
		return s.cfg.SignificantPointsHeatmapGrid, nil
	case "direction":
		return s.cfg.DirectionGrid, nil
	default:
		return 0, fmt.Errorf("unknown grid: %s", name)
	}
}

// === OCR Handlers ===

type characterOCRCheckArgs struct {
	strokesArgs
	Language string `json:"language"`
	Top      *int   `json:"top"`
}

type ocrCheckResult struct {
	OCR *ocr.Result `json:"ocr,omitempty"`
	// OCRError explains why OCR gave no opinion.
	OCRError   string             `json:"ocr_error,omitempty"`
	Candidates []recognizer.Score `json:"candidates"`
	// Rank is the 1-based position of the OCR answer among Candidates, 0 if absent.
	Rank   int  `json:"rank"`
	Agrees bool `json:"agrees"`
}

func (s *Server) handleCharacterOCRCheck(args json.RawMessage) (interface{}, error) {
	var a characterOCRCheckArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.ocrLanguage
	}
	top := 5
	if a.Top != nil {
		top = *a.Top
	}

	c := s.recognizer.Character(a.list())
	scores, err := s.recognizer.ScoreCharacter(c)
	if err != nil {
		return nil, err
	}
	result := &ocrCheckResult{Candidates: limitTo(scores, top)}

	read, err := ocr.ReadGlyph(c.Strokes, s.cfg.Size, ocr.Options{Language: a.Language})
	if err != nil {
		result.OCRError = err.Error()
		return result, nil
	}
	result.OCR = read
	for i, sc := range result.Candidates {
		if sc.Value == read.Text {
			result.Rank = i + 1
			break
		}
	}
	result.Agrees = result.Rank == 1
	return result, nil
}

// === Template Store Handlers ===

type templateAddArgs struct {
	strokesArgs
	Value     string `json:"value"`
	Codepoint int    `json:"codepoint"`
	Persist   bool   `json:"persist"`
}

type templateSummary struct {
	ID              string        `json:"id"`
	Value           string        `json:"value"`
	Codepoint       int           `json:"codepoint"`
	NumberOfStrokes int           `json:"number_of_strokes"`
	NumberOfPoints  int           `json:"number_of_points"`
	Strokes         [][][]float64 `json:"strokes,omitempty"`
}

func summarize(t *store.Template, withStrokes bool) templateSummary {
	sum := templateSummary{
		ID:              t.ID,
		Value:           t.Value,
		Codepoint:       t.Codepoint,
		NumberOfStrokes: t.NumberOfStrokes,
		NumberOfPoints:  t.NumberOfPoints,
	}
	if withStrokes {
		sum.Strokes = stroke.ToPairs(recognizer.TemplateStrokes(t))
	}
	return sum
}

func (s *Server) handleTemplateAdd(args json.RawMessage) (interface{}, error) {
	var a templateAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Value == "" {
		return nil, errors.New("value is required")
	}
	if len(a.Strokes) == 0 {
		return nil, errors.New("strokes are required")
	}

	tpl, err := s.trainer.Add(recognizer.NewGlyph(a.Value, a.Codepoint, a.list()))
	if err != nil {
		return nil, err
	}
	if a.Persist {
		if err := s.trainer.Persist(); err != nil {
			return nil, err
		}
	}
	return summarize(tpl, false), nil
}

type templateQueryArgs struct {
	MinStrokes     int  `json:"min_strokes"`
	MaxStrokes     *int `json:"max_strokes"`
	MinPoints      int  `json:"min_points"`
	MaxPoints      *int `json:"max_points"`
	IncludeStrokes bool `json:"include_strokes"`
}

type templateQueryResult struct {
	Count     int               `json:"count"`
	Templates []templateSummary `json:"templates"`
}

func (s *Server) handleTemplateQuery(args json.RawMessage) (interface{}, error) {
	var a templateQueryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	strokes := store.Range{Min: a.MinStrokes, Max: 64}
	if a.MaxStrokes != nil {
		strokes.Max = *a.MaxStrokes
	}

	var (
		templates []*store.Template
		err       error
	)
	if a.MaxPoints != nil {
		templates, err = s.store.CharactersInRange(store.Range{Min: a.MinPoints, Max: *a.MaxPoints}, strokes)
	} else {
		templates, err = s.store.CharactersInStrokeRange(strokes)
	}
	if err != nil {
		return nil, err
	}

	out := make([]templateSummary, len(templates))
	for i, t := range templates {
		out[i] = summarize(t, a.IncludeStrokes)
	}
	return &templateQueryResult{Count: len(out), Templates: out}, nil
}

func (s *Server) handleStorePersist(args json.RawMessage) (interface{}, error) {
	if err := s.trainer.Persist(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"persisted": true}, nil
}
