package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gioui.org/app"
	"github.com/esimov/mirror"
	"github.com/esimov/mirror/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const HelpBanner = `
┌┬┐┬┬─┐┬─┐┌─┐┬─┐
│││││├┬┘├┬┘│ │├┬┘
┴ ┴┴┴└─┴└─└─┘┴└─

Live face detection mirror.
    Version: %s

`

// Version indicates the current build version.
var Version string

var defaults = mirror.DefaultConfig()

var (
	// Flags
	configFile = flag.String("config", "", "JSON config file, the flags take precedence over it")
	source     = flag.String("source", defaults.Source, "Frame source: webcam, screen or file")
	input      = flag.String("in", "", "Source image, directory or URL (selects the file source)")
	device     = flag.Int("device", defaults.Device, "Webcam device index")
	region     = flag.String("region", "", "Screen region to capture as x0,y0,x1,y1")
	cascade    = flag.String("cc", "", "Cascade classifier")
	numFrames  = flag.Int("num_frames", 0, "Number of frames to run for, otherwise runs forever")
	sensor     = flag.String("sensor", sizeString(defaults.SensorSize()), "Camera resolution as WxH")
	overlay    = flag.String("overlay", sizeString(defaults.OverlaySize()), "Overlay dimensions as WxH")
	framerate  = flag.Float64("fps", defaults.Framerate, "Maximum number of frames per second, 0 for unlimited")
	hflip      = flag.Bool("mirror", defaults.Mirror, "Flip the frames horizontally")
	bgColor    = flag.String("bg", defaults.BgColor, "Overlay background color")
	fgColor    = flag.String("color", defaults.Color, "Bounding box outline color")
	fillColor  = flag.String("fill", defaults.FillColor, "Bounding box fill color, empty for hollow boxes")
	lineWidth  = flag.Float64("line", defaults.LineWidth, "Bounding box outline width")
	minScore   = flag.Float64("score", defaults.MinScore, "Minimum joy score of the reported faces")
	minArea    = flag.Float64("area", defaults.MinArea, "Minimum bounding box area of the reported faces")
	minSize    = flag.Int("minsize", defaults.Detector.MinSize, "Minimum face size in pixels")
	maxSize    = flag.Int("maxsize", defaults.Detector.MaxSize, "Maximum face size in pixels, 0 for the frame size")
	faceAngle  = flag.Float64("angle", defaults.Detector.Angle, "Plane rotated faces angle")
	iou        = flag.Float64("iou", defaults.Detector.IoUThreshold, "Intersection over union threshold of the clustered detections")
	preview    = flag.Bool("preview", defaults.Preview, "Show the annotated frames in a window")
	diag       = flag.Bool("diag", false, "Log the frame rate, the number of faces and the average joy score of each frame")
	framesOut  = flag.String("out", "", "Directory receiving the annotated frames, - for stdout")
	format     = flag.String("format", defaults.FramesFormat, "Encoding of the annotated frames: .jpg, .png or .bmp")
	detections = flag.String("detections", "", "JSON lines file receiving the detections, - for stdout")
	logFile    = flag.String("log", "", "Log file, rotated when it grows large")
	logLevel   = flag.String("level", "info", "Log level: debug, info, warn or error")
)

func init() {
	flag.IntVar(numFrames, "n", 0, "Shorthand for -num_frames")
}

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		flag.Usage()
		log.Fatalf(
			utils.DecorateText("\nInvalid options: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}
	if cfg.Cascade == "" {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease specify a face classifier with the -cc flag!\n", utils.ErrorMessage))
	}

	logger, err := utils.NewLogger(utils.LoggerOptions{
		Level:    *logLevel,
		File:     *logFile,
		NoColors: !term.IsTerminal(int(os.Stderr.Fd())),
	})
	if err != nil {
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	if !cfg.Preview {
		os.Exit(run(cfg, logger))
	}
	// The Gio event loop needs the main thread on some platforms.
	go func() {
		os.Exit(run(cfg, logger))
	}()
	app.Main()
}

// run executes the mirror and returns the process exit code.
func run(cfg mirror.Config, logger *logrus.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := mirror.New(cfg, logger)

	// The spinner would interleave with the per frame diagnostics.
	var spinner *utils.Spinner
	if !cfg.Diag {
		spinnerText := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ MIRROR", utils.StatusMessage),
			utils.DecorateText("is looking for faces...", utils.DefaultMessage))
		spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)

		m.OnFrame = func(r mirror.Result) {
			spinner.SetMessage(fmt.Sprintf("%s %s",
				utils.DecorateText("⚡ MIRROR", utils.StatusMessage),
				utils.DecorateText(fmt.Sprintf("frame #%05d (%5.2f fps), %d face(s)", r.Index, r.Rate, len(r.Faces)), utils.DefaultMessage)))
		}
		spinner.Start()
	}

	sum, err := m.Run(ctx)

	if spinner != nil {
		if err != nil {
			spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("⚡ MIRROR", utils.StatusMessage),
				utils.DecorateText("stopped with an error", utils.DefaultMessage),
				utils.DecorateText("✘", utils.ErrorMessage),
			)
		} else {
			spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("⚡ MIRROR", utils.StatusMessage),
				utils.DecorateText(fmt.Sprintf("processed %d frame(s)", sum.Frames), utils.DefaultMessage),
				utils.DecorateText("✔", utils.SuccessMessage),
			)
		}
		spinner.Stop()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nError running the mirror: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err.Error()), utils.DefaultMessage),
		)
		return 1
	}

	fmt.Fprintf(os.Stderr, "\nFaces found: %s, average joy score: %s\n",
		utils.DecorateText(fmt.Sprintf("%d", sum.Faces), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprintf("%.2f", sum.AvgJoyScore), utils.SuccessMessage),
	)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n", utils.DecorateText(utils.FormatTime(sum.Elapsed), utils.SuccessMessage))
	return 0
}
