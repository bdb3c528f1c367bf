package handlers

import (
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/viab/viab-backend/internal/analysis"
	"github.com/viab/viab-backend/internal/services"
	"github.com/viab/viab-backend/internal/staging"
)

// Analyze handles POST /api/analyze. It accepts a multipart form with one or
// more "files" parts plus optional user_id/session_id fields; missing scope
// fields get generated short IDs, returned in the response.
func Analyze(svc *services.Services, stager *staging.Stager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return respondError(c, fmt.Errorf("%w: multipart form expected", analysis.ErrInvalidRequest))
		}

		userID := formValue(form.Value, "user_id")
		sessionID := formValue(form.Value, "session_id")
		if userID == "" {
			userID = shortID()
		}
		if sessionID == "" {
			sessionID = shortID()
		}

		uploads := form.File["files"]
		if len(uploads) == 0 {
			return respondError(c, fmt.Errorf("%w: no files uploaded", analysis.ErrInvalidRequest))
		}

		var staged []string
		defer func() { stager.Cleanup(staged) }()

		files := make([]services.InputFile, 0, len(uploads))
		for _, fh := range uploads {
			path, err := stager.Stage(fh)
			if err != nil {
				return respondError(c, err)
			}
			staged = append(staged, path)

			data, err := readStaged(path)
			if err != nil {
				return respondError(c, err)
			}
			files = append(files, services.InputFile{
				Name:     fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Data:     data,
			})
		}

		result, err := svc.Analysis.Analyze(c.UserContext(), services.AnalyzeRequest{
			UserID:    userID,
			SessionID: sessionID,
			Files:     files,
			Prompt:    formValue(form.Value, "prompt"),
		})
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"user_id":     userID,
			"session_id":  sessionID,
			"content":     result.Content,
			"batches":     result.Batches,
			"files_used":  result.FilesUsed,
			"skipped":     result.Skipped,
			"facts_saved": result.FactsSaved,
		})
	}
}

func formValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func shortID() string {
	return uuid.New().String()[:8]
}

func readStaged(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
