package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/esimov/mirror"
	jsoniter "github.com/json-iterator/go"
)

// buildConfig starts from the defaults or the config file and applies the flags set on the command line.
func buildConfig() (mirror.Config, error) {
	cfg := mirror.DefaultConfig()
	sourceSet := isFlagSet("source")
	if *configFile != "" {
		var err error
		if cfg, err = mirror.LoadConfig(*configFile); err != nil {
			return cfg, err
		}
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return cfg, err
		}
		sourceSet = sourceSet || hasKey(data, "source")
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		err = applyFlag(&cfg, f.Name)
	})
	if err != nil {
		return cfg, err
	}

	resolveSource(&cfg, sourceSet)
	return cfg, nil
}

// resolveSource switches to the file source when an input path is given
// and neither the flags nor the config file select the source explicitly.
func resolveSource(cfg *mirror.Config, explicit bool) {
	if cfg.Input != "" && !explicit {
		cfg.Source = mirror.SourceFile
	}
}

// hasKey reports whether the top level JSON object defines the key.
func hasKey(data []byte, key string) bool {
	return jsoniter.Get(data, key).ValueType() != jsoniter.InvalidValue
}

func applyFlag(cfg *mirror.Config, name string) error {
	var err error
	switch name {
	case "source":
		cfg.Source = *source
	case "in":
		cfg.Input = *input
	case "device":
		cfg.Device = *device
	case "region":
		var r image.Rectangle
		if r, err = parseRegion(*region); err == nil {
			cfg.Region = &r
		}
	case "cc":
		cfg.Cascade = *cascade
	case "num_frames", "n":
		cfg.NumFrames = *numFrames
	case "sensor":
		var p image.Point
		if p, err = parseSize(*sensor); err == nil {
			cfg.SensorWidth, cfg.SensorHeight = p.X, p.Y
		}
	case "overlay":
		var p image.Point
		if p, err = parseSize(*overlay); err == nil {
			cfg.OverlayWidth, cfg.OverlayHeight = p.X, p.Y
		}
	case "fps":
		cfg.Framerate = *framerate
	case "mirror":
		cfg.Mirror = *hflip
	case "bg":
		cfg.BgColor = *bgColor
	case "color":
		cfg.Color = *fgColor
	case "fill":
		cfg.FillColor = *fillColor
	case "line":
		cfg.LineWidth = *lineWidth
	case "score":
		cfg.MinScore = *minScore
	case "area":
		cfg.MinArea = *minArea
	case "minsize":
		cfg.Detector.MinSize = *minSize
	case "maxsize":
		cfg.Detector.MaxSize = *maxSize
	case "angle":
		cfg.Detector.Angle = *faceAngle
	case "iou":
		cfg.Detector.IoUThreshold = *iou
	case "preview":
		cfg.Preview = *preview
	case "diag":
		cfg.Diag = *diag
	case "out":
		cfg.FramesOut = *framesOut
	case "format":
		cfg.FramesFormat = *format
	case "detections":
		cfg.Detections = *detections
	}
	if err != nil {
		return fmt.Errorf("-%s: %w", name, err)
	}
	return nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// parseSize parses dimensions given as WxH.
func parseSize(s string) (image.Point, error) {
	var p image.Point
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &p.X, &p.Y); err != nil {
		return p, fmt.Errorf("invalid size %q, expected WxH", s)
	}
	return p, nil
}

// parseRegion parses a rectangle given as x0,y0,x1,y1.
func parseRegion(s string) (image.Rectangle, error) {
	var x0, y0, x1, y1 int
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &x0, &y0, &x1, &y1); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid region %q, expected x0,y0,x1,y1", s)
	}
	return image.Rect(x0, y0, x1, y1), nil
}

func sizeString(p image.Point) string {
	return fmt.Sprintf("%dx%d", p.X, p.Y)
}
