package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/domain"
)

// loadImage decodes a PNG or JPEG file into a raw RGB buffer
func loadImage(path string) (domain.ImageBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ImageBuffer{}, err
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return domain.ImageBuffer{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if format != "png" && format != "jpeg" {
		return domain.ImageBuffer{}, fmt.Errorf("decode %s: unsupported format %s", path, format)
	}
	return domain.FromImage(img), nil
}

// parseBox reads "x,y,w,h"
func parseBox(s string) (domain.FaceBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.FaceBox{}, fmt.Errorf("box %q: want x,y,w,h", s)
	}

	var v [4]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return domain.FaceBox{}, fmt.Errorf("box %q: %w", s, err)
		}
		v[i] = int32(n)
	}
	return domain.FaceBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
