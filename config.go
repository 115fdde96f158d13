package mirror

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/esimov/mirror/utils"
	"github.com/go-playground/validator/v10"
)

// Source kinds.
const (
	SourceFile   = "file"
	SourceScreen = "screen"
	SourceWebcam = "webcam"
)

// Config holds the settings of a mirror run.
type Config struct {
	// Source selects where the frames come from: file, screen or webcam.
	Source string `json:"source" validate:"oneof=file screen webcam"`
	// Input is the image, directory or URL read by the file source.
	Input string `json:"input" validate:"required_if=Source file"`
	// Device is the camera index used by the webcam source.
	Device int `json:"device" validate:"gte=0"`
	// Region restricts the screen capture to x0,y0,x1,y1 when set.
	Region *image.Rectangle `json:"region,omitempty"`
	// Cascade is the path to the pigo face cascade file.
	Cascade string `json:"cascade"`

	SensorWidth   int `json:"sensor_width" validate:"gt=0"`
	SensorHeight  int `json:"sensor_height" validate:"gt=0"`
	OverlayWidth  int `json:"overlay_width" validate:"gt=0"`
	OverlayHeight int `json:"overlay_height" validate:"gt=0"`

	// Framerate caps the number of frames per second pulled from the source, 0 means unlimited.
	Framerate float64 `json:"framerate" validate:"gte=0"`
	// Mirror flips the frames horizontally.
	Mirror bool `json:"mirror"`
	// NumFrames stops the run after the given number of frames, 0 means until the source ends.
	NumFrames int `json:"num_frames" validate:"gte=0"`

	BgColor   string  `json:"bg_color" validate:"color"`
	Color     string  `json:"color" validate:"color"`
	FillColor string  `json:"fill_color" validate:"omitempty,color"`
	LineWidth float64 `json:"line_width" validate:"gt=0"`

	// MinScore discards the faces scoring below it.
	MinScore float64 `json:"min_score" validate:"gte=0,lte=100"`
	// MinArea discards the faces whose box covers fewer pixels.
	MinArea float64 `json:"min_area" validate:"gte=0"`

	Detector PigoOptions `json:"detector"`

	Preview bool `json:"preview"`
	Diag    bool `json:"diag"`
	// FramesOut is the directory, or the pipe name, receiving the annotated frames.
	FramesOut    string `json:"frames_out"`
	FramesFormat string `json:"frames_format" validate:"omitempty,oneof=.jpg .jpeg .png .bmp"`
	// Detections is the JSON lines file, or the pipe name, receiving the detections.
	Detections string `json:"detections"`
}

// DefaultConfig returns the settings of a camera sized 1640x922 shown on a 570x320 overlay.
func DefaultConfig() Config {
	return Config{
		Source:        SourceWebcam,
		SensorWidth:   1640,
		SensorHeight:  922,
		OverlayWidth:  570,
		OverlayHeight: 320,
		Framerate:     30,
		Mirror:        true,
		BgColor:       "black",
		Color:         "white",
		FillColor:     "black",
		LineWidth:     2,
		Detector:      DefaultPigoOptions(),
		Preview:       true,
		FramesFormat:  ".jpg",
	}
}

// LoadConfig reads a JSON config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read the config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		_, err := utils.HexToRGBA(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("could not register the color validation: %v", err))
	}
	return v
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Region != nil && c.Region.Empty() {
		return fmt.Errorf("invalid configuration: empty screen region %v", *c.Region)
	}
	d := c.Detector
	if d.MinSize <= 0 || (d.MaxSize > 0 && d.MaxSize < d.MinSize) {
		return fmt.Errorf("invalid configuration: face size range %d-%d", d.MinSize, d.MaxSize)
	}
	if d.MaxQuality <= d.MinQuality {
		return fmt.Errorf("invalid configuration: quality range %.2f-%.2f", d.MinQuality, d.MaxQuality)
	}
	return nil
}

// SensorSize returns the resolution requested from the camera.
func (c Config) SensorSize() image.Point {
	return image.Pt(c.SensorWidth, c.SensorHeight)
}

// OverlaySize returns the dimensions of the annotation overlay.
func (c Config) OverlaySize() image.Point {
	return image.Pt(c.OverlayWidth, c.OverlayHeight)
}

// Colors resolves the background, outline and fill colors.
// The fill color is nil when not set, leaving the boxes hollow.
func (c Config) Colors() (bg, fg, fill color.Color, err error) {
	bgc, err := utils.HexToRGBA(c.BgColor)
	if err != nil {
		return nil, nil, nil, err
	}
	fgc, err := utils.HexToRGBA(c.Color)
	if err != nil {
		return nil, nil, nil, err
	}
	if c.FillColor == "" {
		return bgc, fgc, nil, nil
	}
	fillc, err := utils.HexToRGBA(c.FillColor)
	if err != nil {
		return nil, nil, nil, err
	}
	return bgc, fgc, fillc, nil
}
