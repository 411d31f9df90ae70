package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/kanji-match-mcp/internal/store"
)

var (
	tenStrokes = [][][]float64{{{10, 50}, {100, 50}}, {{55, 5}, {55, 100}}}
	niStrokes  = [][][]float64{{{25, 35}, {85, 35}}, {{10, 80}, {100, 80}}}
	kuchi      = [][][]float64{
		{{20, 20}, {20, 90}},
		{{20, 20}, {90, 20}, {90, 90}},
		{{20, 90}, {90, 90}},
	}
)

// callTool invokes a tool through handleRequest and decodes its text payload
// into out. It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

// seededServer returns a server whose store holds 十, 二 and 口.
func seededServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t)
	for value, strokes := range map[string][][][]float64{"十": tenStrokes, "二": niStrokes, "口": kuchi} {
		if e := callTool(t, s, "template_add", map[string]interface{}{"value": value, "strokes": strokes}, nil); e != nil {
			t.Fatalf("template_add %s: %+v", value, e)
		}
	}
	return s
}

func TestHandleToolsCall_Recognize(t *testing.T) {
	s := seededServer(t)

	var got recognizeResult
	if e := callTool(t, s, "character_recognize", map[string]interface{}{"strokes": tenStrokes}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.NumberOfStrokes != 2 {
		t.Errorf("NumberOfStrokes: got %d, want 2", got.NumberOfStrokes)
	}
	if got.Policy != "combined" {
		t.Errorf("Policy: got %q, want combined", got.Policy)
	}
	if len(got.Scores) == 0 {
		t.Fatal("expected at least one score")
	}
	if got.Scores[0].Value != "十" {
		t.Errorf("top match: got %q, want 十", got.Scores[0].Value)
	}
	if got.Scores[0].Distance > 1e-9 {
		t.Errorf("self match distance: got %g, want 0", got.Scores[0].Distance)
	}
}

func TestHandleToolsCall_Recognize_Limit(t *testing.T) {
	s := seededServer(t)
	var got recognizeResult
	if e := callTool(t, s, "character_recognize", map[string]interface{}{"strokes": kuchi, "limit": 0}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(got.Scores) != got.Total {
		t.Errorf("limit 0 should return all %d scores, got %d", got.Total, len(got.Scores))
	}
}

func TestHandleToolsCall_Recognize_EmptyStore(t *testing.T) {
	s := newTestServer(t)
	var got recognizeResult
	if e := callTool(t, s, "character_recognize", map[string]interface{}{"strokes": tenStrokes}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.Total != 0 || len(got.Scores) != 0 {
		t.Errorf("empty store: got %+v", got)
	}
}

func TestHandleToolsCall_CoarseCandidates(t *testing.T) {
	s := seededServer(t)

	var got coarseResult
	if e := callTool(t, s, "character_coarse_candidates", map[string]interface{}{"strokes": tenStrokes}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.Selected != 3 || got.Kept != 1 {
		t.Errorf("Selected/Kept: got %d/%d, want 3/1", got.Selected, got.Kept)
	}
	scores, err := s.recognizer.Scores(strokesArgs{Strokes: tenStrokes}.list())
	if err != nil {
		t.Fatalf("Scores failed: %v", err)
	}
	if len(scores) != got.Kept {
		t.Errorf("Kept: got %d, recognizer scored %d", got.Kept, len(scores))
	}
	if len(got.Candidates) != 3 {
		t.Fatalf("candidates: got %d, want 3", len(got.Candidates))
	}
	for i := 1; i < len(got.Candidates); i++ {
		if got.Candidates[i].Distance < got.Candidates[i-1].Distance {
			t.Errorf("candidates not sorted: %+v", got.Candidates)
		}
	}
	if got.Candidates[0].Value != "十" || got.Candidates[0].Distance != 0 {
		t.Errorf("best candidate: got %+v", got.Candidates[0])
	}
}

func TestHandleToolsCall_Features(t *testing.T) {
	s := newTestServer(t)

	var got featuresResult
	if e := callTool(t, s, "character_features", map[string]interface{}{"strokes": tenStrokes, "smooth": true}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.NumberOfStrokes != 2 || len(got.Strokes) != 2 {
		t.Errorf("strokes: got %d (%d serialized), want 2", got.NumberOfStrokes, len(got.Strokes))
	}
	if len(got.Heatmap) != 3*20*20 {
		t.Errorf("heatmap length: got %d", len(got.Heatmap))
	}
	if len(got.SignificantHeatmap) != 9 {
		t.Errorf("significant heatmap length: got %d", len(got.SignificantHeatmap))
	}
	for i, ch := range got.Direction {
		if len(ch) != 64 {
			t.Errorf("direction channel %d length: got %d", i, len(ch))
		}
	}
	if len(got.Variants.Coarse) != 100 {
		t.Errorf("coarse variant length: got %d", len(got.Variants.Coarse))
	}
}

func TestHandleToolsCall_Features_Empty(t *testing.T) {
	s := newTestServer(t)

	var got featuresResult
	if e := callTool(t, s, "character_features", map[string]interface{}{"strokes": [][][]float64{}}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.NumberOfStrokes != 0 || got.NumberOfPoints != 0 {
		t.Errorf("empty input: got %+v", got)
	}
	for _, v := range got.Heatmap {
		if v != 0 {
			t.Fatal("empty input should give an all-zero heatmap")
		}
	}
}

func TestHandleToolsCall_Render(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantWidth  int
		wantHeight int
	}{
		{"normalized default", map[string]interface{}{}, 109 * 4, 109 * 4},
		{"raw scaled", map[string]interface{}{"view": "raw", "scale": 2}, 218, 218},
		{"direction grid", map[string]interface{}{"grid": "direction", "show_cells": true}, 436, 436},
		{"heatmap", map[string]interface{}{"view": "heatmap", "scale": 2}, 3 * 20 * 2, 20 * 2},
		{"significant heatmap", map[string]interface{}{"view": "significant_heatmap"}, 3 * 16, 3 * 16},
		{"direction channels", map[string]interface{}{"view": "direction", "scale": 1}, 4 * 8, 8},
		{"raw far off canvas", map[string]interface{}{"view": "raw", "scale": 1, "strokes": [][][]float64{{{0, 5}, {5e9, 5}}}}, 109, 109},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.args["strokes"]; !ok {
				tt.args["strokes"] = tenStrokes
			}
			var got struct {
				Width       int    `json:"width"`
				Height      int    `json:"height"`
				ImageBase64 string `json:"image_base64"`
				MimeType    string `json:"mime_type"`
			}
			if e := callTool(t, s, "character_render", tt.args, &got); e != nil {
				t.Fatalf("Unexpected error: %+v", e)
			}
			if got.Width != tt.wantWidth || got.Height != tt.wantHeight {
				t.Errorf("dimensions: got %dx%d, want %dx%d", got.Width, got.Height, tt.wantWidth, tt.wantHeight)
			}
			if got.MimeType != "image/png" {
				t.Errorf("MimeType: got %s", got.MimeType)
			}
			if _, err := base64.StdEncoding.DecodeString(got.ImageBase64); err != nil {
				t.Errorf("failed to decode base64: %v", err)
			}
		})
	}
}

func TestHandleToolsCall_Render_Errors(t *testing.T) {
	s := newTestServer(t)
	for _, args := range []map[string]interface{}{
		{"strokes": tenStrokes, "view": "sideways"},
		{"strokes": tenStrokes, "grid": "hexagonal"},
		{"strokes": tenStrokes, "scale": 1000000},
		{"strokes": tenStrokes, "view": "heatmap", "scale": 33},
		{"strokes": tenStrokes, "scale": -1},
	} {
		e := callTool(t, s, "character_render", args, nil)
		if e == nil || e.Code != -32000 {
			t.Errorf("args %v: got %+v, want tool execution error", args, e)
		}
	}
}

func TestHandleToolsCall_OCRCheck(t *testing.T) {
	s := seededServer(t)

	var got ocrCheckResult
	if e := callTool(t, s, "character_ocr_check", map[string]interface{}{"strokes": tenStrokes, "top": 2}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(got.Candidates) == 0 || got.Candidates[0].Value != "十" {
		t.Errorf("candidates: got %+v", got.Candidates)
	}
	if got.OCR == nil {
		// no Tesseract or no language data; OCR offers no opinion
		if got.OCRError == "" {
			t.Error("missing OCR result should carry an error")
		}
		if got.Agrees || got.Rank != 0 {
			t.Errorf("no OCR result cannot agree: %+v", got)
		}
		return
	}
	if got.Agrees != (got.Rank == 1) {
		t.Errorf("Agrees %v inconsistent with Rank %d", got.Agrees, got.Rank)
	}
}

func TestHandleToolsCall_OCRCheck_NoInk(t *testing.T) {
	s := newTestServer(t)

	var got ocrCheckResult
	if e := callTool(t, s, "character_ocr_check", map[string]interface{}{"strokes": [][][]float64{}}, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.OCR != nil || !strings.Contains(got.OCRError, "no ink") {
		t.Errorf("blank drawing: got %+v", got)
	}
}

func TestHandleToolsCall_TemplateAdd(t *testing.T) {
	s := newTestServer(t)

	var got templateSummary
	args := map[string]interface{}{"value": "十", "strokes": tenStrokes}
	if e := callTool(t, s, "template_add", args, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if got.ID == "" {
		t.Error("template should get an ID")
	}
	if got.Codepoint != 0x5341 {
		t.Errorf("Codepoint: got %#x, want 0x5341", got.Codepoint)
	}
	if got.NumberOfStrokes != 2 || got.NumberOfPoints == 0 {
		t.Errorf("counts: got %d strokes, %d points", got.NumberOfStrokes, got.NumberOfPoints)
	}
}

func TestHandleToolsCall_TemplateAdd_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	s, err := New(testConfig(), store.NewJSONStore(path))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	args := map[string]interface{}{"value": "二", "strokes": niStrokes, "persist": true}
	if e := callTool(t, s, "template_add", args, nil); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if n := store.NewJSONStore(path).Len(); n != 1 {
		t.Errorf("reloaded store: got %d templates, want 1", n)
	}
}

func TestHandleToolsCall_TemplateAdd_Errors(t *testing.T) {
	s := newTestServer(t)
	for _, args := range []map[string]interface{}{
		{"strokes": tenStrokes},
		{"value": "十"},
		{"value": "十", "strokes": "nope"},
	} {
		if e := callTool(t, s, "template_add", args, nil); e == nil {
			t.Errorf("args %v: expected an error", args)
		}
	}
}

func TestHandleToolsCall_TemplateQuery(t *testing.T) {
	s := seededServer(t)

	var all templateQueryResult
	if e := callTool(t, s, "template_query", nil, &all); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if all.Count != 3 {
		t.Errorf("all templates: got %d, want 3", all.Count)
	}

	var three templateQueryResult
	args := map[string]interface{}{"min_strokes": 3, "max_strokes": 3, "include_strokes": true}
	if e := callTool(t, s, "template_query", args, &three); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if three.Count != 1 || three.Templates[0].Value != "口" {
		t.Fatalf("3-stroke templates: got %+v", three.Templates)
	}
	if len(three.Templates[0].Strokes) != 3 {
		t.Errorf("serialized strokes: got %d, want 3", len(three.Templates[0].Strokes))
	}

	var none templateQueryResult
	args = map[string]interface{}{"min_points": 0, "max_points": 1}
	if e := callTool(t, s, "template_query", args, &none); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if none.Count != 0 {
		t.Errorf("point-filtered templates: got %d, want 0", none.Count)
	}
}

// backingStore aliases store.Store so the embedded field is not named Store,
// which would shadow the interface's Store method.
type backingStore = store.Store

type unavailableStore struct{ backingStore }

func (unavailableStore) CharactersInStrokeRange(store.Range) ([]*store.Template, error) {
	return nil, errors.Join(store.ErrUnavailable, errors.New("disk on fire"))
}

func (unavailableStore) Persist() error { return store.ErrUnavailable }

func TestHandleToolsCall_StoreUnavailable(t *testing.T) {
	s, err := New(testConfig(), unavailableStore{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range []string{"template_query", "store_persist"} {
		e := callTool(t, s, name, map[string]interface{}{}, nil)
		if e == nil || e.Code != -32000 {
			t.Errorf("%s: got %+v, want tool execution error", name, e)
		}
	}

	cfg := testConfig()
	cfg.PointWindow = 0
	s, err = New(cfg, unavailableStore{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	e := callTool(t, s, "character_recognize", map[string]interface{}{"strokes": tenStrokes}, nil)
	if e == nil || !strings.Contains(e.Data.(string), "unavailable") {
		t.Errorf("character_recognize: got %+v, want unavailable error", e)
	}
}

func TestHandleToolsCall_StorePersist(t *testing.T) {
	s := seededServer(t)
	var got map[string]bool
	if e := callTool(t, s, "store_persist", nil, &got); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if !got["persisted"] {
		t.Errorf("got %v", got)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)
	e := callTool(t, s, "image_load", map[string]interface{}{}, nil)
	if e == nil || e.Code != -32000 {
		t.Fatalf("unknown tool: got %+v", e)
	}
	if !strings.Contains(e.Data.(string), "unknown tool") {
		t.Errorf("Data: got %v", e.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"nope"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "store_persist" {
			continue
		}
		if _, err := s.executeTool(tool.Name, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("%s: expected error for invalid JSON", tool.Name)
		}
	}
}
