// Package encoder wraps ffmpeg behind the narrow Encoder interface the
// engine needs: encode an ordered image sequence into a daily video, and
// concatenate ordered videos into a weekly or full artifact.
package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wipash/northgrove-timelapse/internal/config"
	"github.com/wipash/northgrove-timelapse/internal/fileutil"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Encoder is the media-encoder collaborator consumed by the engine.
type Encoder interface {
	// EncodeSequence builds a video from ordered still images.
	EncodeSequence(ctx context.Context, images []string, outPath string) error
	// Concatenate joins ordered videos. With reencode false it stream-copies
	// (no quality loss, cheap); with reencode true it applies the full-video
	// compression profile.
	Concatenate(ctx context.Context, parts []string, outPath string, reencode bool) error
}

// FFmpeg implements Encoder by shelling out to the ffmpeg binary using the
// concat demuxer.
type FFmpeg struct {
	bin    string
	video  config.Video
	logger *slog.Logger

	// runCommand allows tests to intercept process execution.
	runCommand func(cmd *exec.Cmd) error
}

// NewFFmpeg builds an encoder from config. An empty binary name resolves
// "ffmpeg" from PATH at run time.
func NewFFmpeg(video config.Video, logger *slog.Logger) *FFmpeg {
	return &FFmpeg{
		bin:        "ffmpeg",
		video:      video,
		logger:     logging.NewComponentLogger(logger, "encoder"),
		runCommand: func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

func (f *FFmpeg) EncodeSequence(ctx context.Context, images []string, outPath string) error {
	if len(images) == 0 {
		return services.Wrap(services.ErrEncode, "encoder", "encode sequence", "no input images", nil)
	}
	listPath, err := writeConcatList(images, frameDuration(f.video.FPS))
	if err != nil {
		return services.Wrap(services.ErrEncode, "encoder", "encode sequence", "write concat list", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", f.video.Codec,
		"-preset", f.video.Preset,
		"-crf", strconv.Itoa(f.video.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	if f.video.MaxWidth > 0 {
		args = append(args, "-vf", scaleFilter(f.video.MaxWidth))
	}
	return f.run(ctx, args, outPath, "encode sequence")
}

func (f *FFmpeg) Concatenate(ctx context.Context, parts []string, outPath string, reencode bool) error {
	if len(parts) == 0 {
		return services.Wrap(services.ErrEncode, "encoder", "concatenate", "no input videos", nil)
	}
	listPath, err := writeConcatList(parts, 0)
	if err != nil {
		return services.Wrap(services.ErrEncode, "encoder", "concatenate", "write concat list", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
	if reencode {
		full := f.video.Full
		args = append(args,
			"-c:v", f.video.Codec,
			"-preset", f.video.Preset,
			"-crf", strconv.Itoa(full.CRF),
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
		)
		if full.MaxWidth > 0 {
			args = append(args, "-vf", scaleFilter(full.MaxWidth))
		}
		if full.FPS > 0 {
			args = append(args, "-r", strconv.Itoa(full.FPS))
		}
	} else {
		args = append(args, "-c", "copy")
	}
	return f.run(ctx, args, outPath, "concatenate")
}

// run executes ffmpeg writing to a temp file, then publishes the output
// atomically so a killed encode never leaves a partial artifact in place.
func (f *FFmpeg) run(ctx context.Context, args []string, outPath string, operation string) error {
	tmpOut := outPath + ".part.mp4"
	defer os.Remove(tmpOut)
	args = append(args, tmpOut)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	f.logger.DebugContext(ctx, "running ffmpeg", logging.String("args", strings.Join(args, " ")))
	if err := f.runCommand(cmd); err != nil {
		detail := lastLines(stderr.String(), 5)
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrEncode, "encoder", operation, "ffmpeg failed", err)
	}
	if err := fileutil.PublishFile(tmpOut, outPath); err != nil {
		return services.Wrap(services.ErrEncode, "encoder", operation, "publish output", err)
	}
	return nil
}

// writeConcatList writes an ffmpeg concat-demuxer list. A positive duration
// emits a per-frame duration entry and repeats the final frame so it is
// displayed (the demuxer drops the last duration otherwise).
func writeConcatList(paths []string, duration float64) (string, error) {
	file, err := os.CreateTemp("", "timelapse-concat-*.txt")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(p)
		b.WriteString("'\n")
		if duration > 0 {
			b.WriteString("duration ")
			b.WriteString(strconv.FormatFloat(duration, 'f', 6, 64))
			b.WriteString("\n")
		}
	}
	if duration > 0 {
		b.WriteString("file '")
		b.WriteString(paths[len(paths)-1])
		b.WriteString("'\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func frameDuration(fps int) float64 {
	if fps <= 0 {
		fps = 30
	}
	return 1.0 / float64(fps)
}

func scaleFilter(maxWidth int) string {
	// Downscale only when wider than maxWidth, preserving aspect ratio.
	return fmt.Sprintf("scale=%d:-2:flags=lanczos", maxWidth)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
