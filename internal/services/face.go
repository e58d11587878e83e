package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrClassifierUnavailable = errors.New("face classifier unavailable")
	ErrInvalidImage          = errors.New("invalid image")
)

const (
	noFaceMessage = "No face detected in the image. Please ensure your face is visible, well-lit, and centered."
	noFaceTip     = "Try: Better lighting, face camera directly, move closer"

	DefaultFaceMethod = "deepface_enhanced"
)

// FaceAnalysis is what an external facial expression classifier reports.
type FaceAnalysis struct {
	Dominant      string             `json:"dominant_emotion"`
	Scores        map[string]float64 `json:"emotions"`
	FacesDetected int                `json:"faces_detected"`
	Method        string             `json:"method"`
}

// FaceClassifier scores the seven basic expressions in an encoded image.
type FaceClassifier interface {
	Analyze(ctx context.Context, img []byte) (*FaceAnalysis, error)
	Ping(ctx context.Context) error
}

// FaceFailure is the structured outcome of a face detection that produced
// no result. It is returned to clients rather than logged away.
type FaceFailure struct {
	Message       string `json:"message"`
	Tip           string `json:"tip,omitempty"`
	FacesDetected *int   `json:"faces_detected,omitempty"`
	Err           error  `json:"-"`
}

func (f *FaceFailure) Error() string {
	return f.Message
}

func (f *FaceFailure) Unwrap() error {
	return f.Err
}

func noFaceFailure(err error) *FaceFailure {
	zero := 0
	return &FaceFailure{Message: noFaceMessage, Tip: noFaceTip, FacesDetected: &zero, Err: err}
}

// DecodeImage strips an optional data URL prefix, decodes the base64 payload
// and checks that it is a JPEG, PNG or GIF image.
func DecodeImage(encoded string) ([]byte, image.Config, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}
	if encoded == "" {
		return nil, image.Config{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, image.Config{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, image.Config{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, image.Config{}, fmt.Errorf("%w: empty %s image", ErrInvalidImage, format)
	}
	return raw, cfg, nil
}
