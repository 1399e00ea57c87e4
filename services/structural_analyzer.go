package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

const (
	// SamplePages is the number of leading pages read synchronously at ingestion
	SamplePages = 15
	// MaxSampleChars caps the sample sent to the content-generation service, in runes
	MaxSampleChars = 12000
)

var (
	ErrNoChapters      = errors.New("outline has no usable chapters")
	ErrNoPatternMatch  = errors.New("no heading pattern matched")
	ErrNoOutlineSource = errors.New("content generation is not configured")
)

// AnalysisInput is the text a strategy works from
type AnalysisInput struct {
	Sample   string
	Subject  string
	Language model.Language
}

// Outline is the result of structural analysis
type Outline struct {
	Chapters []model.Chapter
	Summary  string
	Grade    string
	Source   model.OutlineSource
}

// OutlineStrategy is one tier of the analysis chain
type OutlineStrategy interface {
	Name() model.OutlineSource
	Analyze(ctx context.Context, in AnalysisInput) (*Outline, error)
}

// AIOutlineStrategy asks the content-generation service for the outline
type AIOutlineStrategy struct {
	Generator OutlineGenerator
}

func (s *AIOutlineStrategy) Name() model.OutlineSource { return model.OutlineSourceAI }

func (s *AIOutlineStrategy) Analyze(ctx context.Context, in AnalysisInput) (*Outline, error) {
	if s.Generator == nil {
		return nil, ErrNoOutlineSource
	}

	resp, err := s.Generator.GenerateOutline(ctx, OutlineRequest{
		Subject:    in.Subject,
		Language:   in.Language,
		TextSample: in.Sample,
	})
	if err != nil {
		return nil, err
	}

	chapters := make([]model.Chapter, 0, len(resp.Chapters))
	for _, c := range resp.Chapters {
		title := truncateRunes(normalizeLine(c.Title), model.MaxTitleLength)
		if title == "" {
			continue
		}
		context := model.AIChapterContext
		if c.Page > 0 {
			context = fmt.Sprintf("%s (page %d)", model.AIChapterContext, c.Page)
		}
		chapters = append(chapters, model.Chapter{Title: title, Context: context})
	}
	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}

	return &Outline{
		Chapters: chapters,
		Summary:  resp.Summary,
		Grade:    truncateRunes(resp.Grade, model.MaxGradeLength),
	}, nil
}

// PatternOutlineStrategy scans the sample for heading lines
type PatternOutlineStrategy struct{}

func (PatternOutlineStrategy) Name() model.OutlineSource { return model.OutlineSourcePattern }

func (PatternOutlineStrategy) Analyze(ctx context.Context, in AnalysisInput) (*Outline, error) {
	chapters := ParseOutline(in.Sample, in.Language)
	if len(chapters) == 0 {
		return nil, ErrNoPatternMatch
	}
	return &Outline{Chapters: chapters}, nil
}

// FallbackOutlineStrategy always yields the single synthetic chapter
type FallbackOutlineStrategy struct{}

func (FallbackOutlineStrategy) Name() model.OutlineSource { return model.OutlineSourceFallback }

func (FallbackOutlineStrategy) Analyze(ctx context.Context, in AnalysisInput) (*Outline, error) {
	return &Outline{Chapters: []model.Chapter{model.FallbackChapter()}}, nil
}

// StructuralAnalyzer runs the strategies in order and keeps the first non-empty outline
type StructuralAnalyzer struct {
	strategies []OutlineStrategy
	log        *logger.Logger
}

// NewStructuralAnalyzer builds the AI → pattern → fallback chain. A nil generator skips the AI tier.
func NewStructuralAnalyzer(generator OutlineGenerator, log *logger.Logger) *StructuralAnalyzer {
	strategies := []OutlineStrategy{}
	if generator != nil {
		strategies = append(strategies, &AIOutlineStrategy{Generator: generator})
	}
	strategies = append(strategies, PatternOutlineStrategy{}, FallbackOutlineStrategy{})
	return NewStructuralAnalyzerWith(log, strategies...)
}

// NewStructuralAnalyzerWith uses an explicit strategy list
func NewStructuralAnalyzerWith(log *logger.Logger, strategies ...OutlineStrategy) *StructuralAnalyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &StructuralAnalyzer{
		strategies: strategies,
		log:        log.With("component", "structural_analyzer"),
	}
}

// Analyze never fails: when every strategy errors the fallback outline is returned
func (a *StructuralAnalyzer) Analyze(ctx context.Context, in AnalysisInput) *Outline {
	in.Sample = truncateRunes(in.Sample, MaxSampleChars)

	for _, s := range a.strategies {
		outline, err := s.Analyze(ctx, in)
		if err != nil {
			a.log.Warn("outline strategy failed", "strategy", s.Name(), "error", err)
			continue
		}
		if outline == nil || len(outline.Chapters) == 0 {
			continue
		}
		outline.Source = s.Name()
		a.log.Info("outline extracted", "strategy", s.Name(), "chapters", len(outline.Chapters))
		return outline
	}

	return &Outline{
		Chapters: []model.Chapter{model.FallbackChapter()},
		Source:   model.OutlineSourceFallback,
	}
}

// BuildSample joins sample pages and trims the result to MaxSampleChars runes
func BuildSample(pages []string) string {
	return strings.TrimSpace(truncateRunes(JoinPages(pages), MaxSampleChars))
}
