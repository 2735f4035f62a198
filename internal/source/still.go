package source

import (
	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/engine/texture"
	"github.com/Faultbox/thetawarp/internal/logger"
)

// Still serves one decoded image as a single frame.
type Still struct {
	frame Frame
	sent  bool
}

// NewStill decodes the image at path.
func NewStill(path string) (*Still, error) {
	img, err := texture.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	frame, err := newFrame(1, 0, b.Dx(), b.Dy(), img.Pix)
	if err != nil {
		return nil, err
	}

	logger.Info("still frame loaded",
		zap.String("path", path),
		zap.Int("width", frame.Width),
		zap.Int("height", frame.Height),
		zap.String("trace_id", frame.TraceID),
	)
	return &Still{frame: frame}, nil
}

// Next returns the image on the first call only.
func (s *Still) Next() (Frame, bool) {
	if s.sent {
		return Frame{}, false
	}
	s.sent = true
	return s.frame, true
}

// Err always returns nil.
func (s *Still) Err() error {
	return nil
}

// Close drops the decoded pixels.
func (s *Still) Close() error {
	s.frame.Pixels = nil
	return nil
}
