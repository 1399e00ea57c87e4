package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// VisionOCR recognizes pages with Google Cloud Vision DOCUMENT_TEXT_DETECTION
type VisionOCR struct {
	client  *vision.ImageAnnotatorClient
	log     *logger.Logger
	timeout time.Duration
}

// NewVisionOCR creates a Vision client using credentials from the environment
func NewVisionOCR(ctx context.Context, log *logger.Logger) (*VisionOCR, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, visionOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionOCR{
		client:  client,
		log:     log.With("component", "vision_ocr"),
		timeout: 60 * time.Second,
	}, nil
}

// visionOptionsFromEnv accepts inline JSON or a file path, inline first
func visionOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// RecognizePage sends one page image and returns the full text annotation
func (v *VisionOCR) RecognizePage(ctx context.Context, image []byte, lang model.Language) (string, error) {
	if len(image) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: image},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
		ImageContext: &visionpb.ImageContext{LanguageHints: lang.Hints()},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}

	// Keep line breaks; the outline parser works line by line
	return strings.ReplaceAll(r0.FullTextAnnotation.Text, "\u00a0", " "), nil
}

func (v *VisionOCR) Close() error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Close()
}
