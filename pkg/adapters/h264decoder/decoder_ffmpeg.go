package h264decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"runtime"
)

// findFFmpeg searches for ffmpeg in PATH and common locations.
// If a custom path is set, it uses that path instead.
func findFFmpeg() (string, error) {
	if custom := ffmpegPathOverride(); custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}

	path, err := exec.LookPath(execName)
	if err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// runFFmpeg decodes an Annex B stream and returns the last decoded picture.
// The stream goes through a temporary file; the picture comes back as PNG.
func runFFmpeg(ffmpegPath string, stream []byte) (image.Image, error) {
	inputFile, err := os.CreateTemp("", "h264gop_*.h264")
	if err != nil {
		return nil, fmt.Errorf("create input temp file: %w", err)
	}
	inputPath := inputFile.Name()
	defer os.Remove(inputPath)

	if _, err := inputFile.Write(stream); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("write stream data: %w", err)
	}
	inputFile.Close()

	outputFile, err := os.CreateTemp("", "h264frame_*.png")
	if err != nil {
		return nil, fmt.Errorf("create output temp file: %w", err)
	}
	outputPath := outputFile.Name()
	outputFile.Close()
	defer os.Remove(outputPath)

	var stderr bytes.Buffer
	cmd := exec.Command(ffmpegPath,
		"-v", "error",
		"-y",
		"-f", "h264",
		"-i", inputPath,
		"-update", "1",
		"-f", "image2",
		outputPath,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w\nstderr: %s", err, stderr.String())
	}

	imgFile, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("open decoded image: %w", err)
	}
	defer imgFile.Close()

	img, err := png.Decode(imgFile)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	return img, nil
}
