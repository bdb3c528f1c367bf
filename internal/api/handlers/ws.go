package handlers

import (
	"context"
	"encoding/base64"

	"github.com/gofiber/websocket/v2"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/services"
)

// wsAnalyzeRequest is the first frame a client sends on /ws/analyze. Files
// arrive base64-encoded since the socket carries JSON frames.
type wsAnalyzeRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
	Files     []struct {
		Name     string `json:"name"`
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	} `json:"files"`
}

type wsFrame struct {
	Type    string `json:"type"` // "delta", "result", "error"
	Delta   string `json:"delta,omitempty"`
	Content string `json:"content,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnalyzeStream handles GET /ws/analyze. The client sends one request frame
// and receives delta frames as the batches stream, then a final result frame.
func AnalyzeStream(svc *services.Services) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		var req wsAnalyzeRequest
		if err := c.ReadJSON(&req); err != nil {
			c.WriteJSON(wsFrame{Type: "error", Code: "invalid_request", Error: "failed to parse request"})
			return
		}
		if req.UserID == "" {
			req.UserID = shortID()
		}
		if req.SessionID == "" {
			req.SessionID = shortID()
		}

		files := make([]services.InputFile, 0, len(req.Files))
		for _, f := range req.Files {
			data, err := base64.StdEncoding.DecodeString(f.Data)
			if err != nil {
				c.WriteJSON(wsFrame{Type: "error", Code: "invalid_request", Error: "file data must be base64"})
				return
			}
			files = append(files, services.InputFile{Name: f.Name, MimeType: f.MimeType, Data: data})
		}

		result, err := svc.Analysis.Analyze(context.Background(), services.AnalyzeRequest{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Text:      req.Text,
			Files:     files,
			OnDelta: func(delta string) {
				c.WriteJSON(wsFrame{Type: "delta", Delta: delta})
			},
		})
		if err != nil {
			c.WriteJSON(wsFrame{Type: "error", Code: analysis.Category(err), Error: err.Error()})
			return
		}

		c.WriteJSON(wsFrame{Type: "result", Content: result.Content})
	}
}
