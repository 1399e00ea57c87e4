package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/digitalocean"
	"github.com/sahilchouksey/lesson-planner/utils"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// OutlineRequest is what the content-generation service is asked about
type OutlineRequest struct {
	Subject    string         `json:"subject"`
	Language   model.Language `json:"language"`
	TextSample string         `json:"textSample"`
}

// OutlineChapter is one chapter as returned by the service: either a bare
// string or an object with a title and an optional page.
type OutlineChapter struct {
	Title string `json:"title"`
	Page  int    `json:"page,omitempty"`
}

func (c *OutlineChapter) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		c.Title = title
		c.Page = 0
		return nil
	}

	var obj struct {
		Title string          `json:"title"`
		Page  json.RawMessage `json:"page"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Title = obj.Title
	c.Page = parsePage(obj.Page)
	return nil
}

// parsePage accepts 12, 12.0 or "12"; anything else means no page
func parsePage(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f > 0 {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// OutlineResponse is the decoded service response
type OutlineResponse struct {
	Chapters []OutlineChapter `json:"chapters"`
	Summary  string           `json:"summary,omitempty"`
	Grade    string           `json:"grade,omitempty"`
}

// OutlineGenerator is the content-generation collaborator used by the AI strategy
type OutlineGenerator interface {
	GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error)
}

// chatCompleter is the part of the inference client the generator needs
type chatCompleter interface {
	JSONCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...digitalocean.InferenceOption) (string, error)
}

var ErrInvalidOutline = errors.New("outline response does not match schema")

const outlineSchemaJSON = `{
  "type": "object",
  "required": ["chapters"],
  "properties": {
    "chapters": {
      "type": "array",
      "items": {
        "oneOf": [
          {"type": "string"},
          {
            "type": "object",
            "required": ["title"],
            "properties": {
              "title": {"type": "string"},
              "page": {"type": ["integer", "number", "string", "null"]}
            }
          }
        ]
      }
    },
    "summary": {"type": ["string", "null"]},
    "grade": {"type": ["string", "number", "null"]}
  }
}`

var outlineSchema = jsonschema.MustCompileString("outline.json", outlineSchemaJSON)

const outlineSystemPrompt = `You analyze textbook excerpts and return their table of contents.
Return a JSON object with:
- "chapters": ordered list of chapter titles, each either a string or {"title": string, "page": number}
- "summary": one paragraph describing the book
- "grade": the target school grade if it can be inferred`

// InferenceOutlineGenerator asks the inference endpoint for an outline with
// a per-attempt timeout, retries with backoff, and validates the reply.
type InferenceOutlineGenerator struct {
	client   chatCompleter
	timeout  time.Duration
	attempts uint
	delay    time.Duration
	log      *logger.Logger
}

// NewInferenceOutlineGenerator creates a generator. Zero values fall back to 60s and 3 attempts.
func NewInferenceOutlineGenerator(client chatCompleter, timeout time.Duration, attempts int, log *logger.Logger) *InferenceOutlineGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if attempts <= 0 {
		attempts = 3
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &InferenceOutlineGenerator{
		client:   client,
		timeout:  timeout,
		attempts: uint(attempts),
		delay:    time.Second,
		log:      log.With("component", "outline_generator"),
	}
}

// GenerateOutline calls the service until it returns a schema-valid outline or attempts run out
func (g *InferenceOutlineGenerator) GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error) {
	userPrompt := buildOutlinePrompt(req)

	var result *OutlineResponse
	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			raw, err := g.client.JSONCompletion(attemptCtx, outlineSystemPrompt, userPrompt,
				digitalocean.WithInferenceTemperature(0.2),
				digitalocean.WithResponseFormatJSON(),
			)
			if err != nil {
				return err
			}

			parsed, err := parseOutlineResponse(raw)
			if err != nil {
				return err
			}
			result = parsed
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.log.Warn("outline generation attempt failed", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}
	return result, nil
}

func buildOutlinePrompt(req OutlineRequest) string {
	var b strings.Builder
	if req.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	}
	fmt.Fprintf(&b, "Language: %s\n\n", req.Language)
	b.WriteString("Text sample:\n")
	b.WriteString(req.TextSample)
	return b.String()
}

// parseOutlineResponse extracts, validates and decodes a raw model reply
func parseOutlineResponse(raw string) (*OutlineResponse, error) {
	jsonStr, err := utils.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode outline JSON: %w", err)
	}
	if err := outlineSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutline, err)
	}

	var wire struct {
		Chapters []OutlineChapter `json:"chapters"`
		Summary  *string          `json:"summary"`
		Grade    json.RawMessage  `json:"grade"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode outline: %w", err)
	}

	resp := &OutlineResponse{Chapters: wire.Chapters}
	if wire.Summary != nil {
		resp.Summary = strings.TrimSpace(*wire.Summary)
	}
	resp.Grade = parseGrade(wire.Grade)
	return resp, nil
}

func parseGrade(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
