package media

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// Prober recovers the playback duration of an audio stream in whole
// seconds. Implementations are best-effort: nil means unknown.
type Prober interface {
	Duration(ctx context.Context, audio []byte) *int
}

// FFProbe shells out to the ffprobe binary.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewFFProbe(log *logrus.Logger) *FFProbe {
	if log == nil {
		log = logrus.New()
	}
	return &FFProbe{Binary: "ffprobe", Timeout: 10 * time.Second, Logger: log}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *FFProbe) Duration(ctx context.Context, audio []byte) *int {
	tmp, err := os.CreateTemp("", "probe-*")
	if err != nil {
		p.Logger.WithError(err).Warn("duration probe: temp file")
		return nil
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		_ = tmp.Close()
		p.Logger.WithError(err).Warn("duration probe: write")
		return nil
	}
	if err := tmp.Close(); err != nil {
		p.Logger.WithError(err).Warn("duration probe: close")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		tmp.Name(),
	)
	out, err := cmd.Output()
	if err != nil {
		p.Logger.WithError(err).Warn("duration probe: ffprobe failed")
		return nil
	}

	secs, ok := ParseDuration(out)
	if !ok {
		p.Logger.Warn("duration probe: no duration in ffprobe output")
		return nil
	}
	return &secs
}

// ParseDuration extracts the rounded duration in seconds from ffprobe's
// -show_format JSON output.
func ParseDuration(ffprobeJSON []byte) (int, bool) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(ffprobeJSON, &parsed); err != nil {
		return 0, false
	}
	if parsed.Format.Duration == "" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal([]byte(parsed.Format.Duration), &f); err != nil {
		return 0, false
	}
	return int(f + 0.5), true
}
