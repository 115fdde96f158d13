package mirror

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"
)

// PipeName is the destination name that indicates stdout is being used.
const PipeName = "-"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FaceRecord is the serialized form of a detected face.
type FaceRecord struct {
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Rect     [4]float64 `json:"rect"`
	JoyScore float64    `json:"joy_score"`
}

// DetectionRecord is one line of the detection log.
type DetectionRecord struct {
	Session     string       `json:"session"`
	Frame       int          `json:"frame"`
	Time        time.Time    `json:"time"`
	FPS         float64      `json:"fps"`
	NumFaces    int          `json:"num_faces"`
	AvgJoyScore float64      `json:"avg_joy_score"`
	Faces       []FaceRecord `json:"faces"`
}

// DetectionWriter appends the detections of each frame as JSON lines.
type DetectionWriter struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *jsoniter.Encoder
	session string
	now     func() time.Time
}

// NewDetectionWriter writes the records of the session to w.
func NewDetectionWriter(w io.Writer, session string) *DetectionWriter {
	return &DetectionWriter{
		w:       w,
		enc:     json.NewEncoder(w),
		session: session,
		now:     time.Now,
	}
}

// CreateDetectionWriter opens the detection log at path, or stdout for the pipe name.
func CreateDetectionWriter(path, session string) (*DetectionWriter, error) {
	if path == PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return NewDetectionWriter(os.Stdout, session), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create the detection log: %w", err)
	}
	return NewDetectionWriter(f, session), nil
}

// Write encodes the result as a single JSON line.
// The scale maps the boxes to the overlay rectangles stored next to them.
func (d *DetectionWriter) Write(res Result, scale Scale) error {
	rec := DetectionRecord{
		Session:     d.session,
		Frame:       res.Index,
		Time:        d.now().UTC(),
		FPS:         res.Rate,
		NumFaces:    len(res.Faces),
		AvgJoyScore: AverageScore(res.Faces),
		Faces:       make([]FaceRecord, 0, len(res.Faces)),
	}
	for _, face := range res.Faces {
		r := scale.Transform(face.Box)
		rec.Faces = append(rec.Faces, FaceRecord{
			X:        face.Box.X,
			Y:        face.Box.Y,
			Width:    face.Box.Width,
			Height:   face.Box.Height,
			Rect:     [4]float64{r.X1, r.Y1, r.X2, r.Y2},
			JoyScore: face.JoyScore,
		})
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enc.Encode(rec); err != nil {
		return fmt.Errorf("could not write the detection record: %w", err)
	}
	return nil
}

// Close closes the underlying writer unless it is stdout.
func (d *DetectionWriter) Close() error {
	if c, ok := d.w.(io.Closer); ok && d.w != os.Stdout {
		return c.Close()
	}
	return nil
}

// FrameWriter stores the annotated frames, either as numbered files
// inside a directory or as a continuous stream written to stdout.
type FrameWriter struct {
	mu     sync.Mutex
	dir    string
	ext    string
	stream io.Writer
}

// NewFrameWriter prepares the destination of the annotated frames.
// The pipe name selects stdout, which must not be a terminal.
// The extension picks the encoding, jpeg being the default.
func NewFrameWriter(dst, ext string) (*FrameWriter, error) {
	if ext == "" {
		ext = ".jpg"
	}
	ext = strings.ToLower(ext)
	if !isValidExtension("frame"+ext) || ext == ".gif" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if dst == PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return &FrameWriter{ext: ext, stream: os.Stdout}, nil
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("unable to create the destination directory: %w", err)
	}
	return &FrameWriter{dir: dst, ext: ext}, nil
}

// NewFrameStreamWriter writes every frame one after the other to w.
func NewFrameStreamWriter(w io.Writer, ext string) *FrameWriter {
	if ext == "" {
		ext = ".jpg"
	}
	return &FrameWriter{ext: ext, stream: w}
}

// Path returns the file name used for the frame with the given index.
func (fw *FrameWriter) Path(index int) string {
	return filepath.Join(fw.dir, fmt.Sprintf("frame_%05d%s", index, fw.ext))
}

// Write encodes the frame with the given index.
func (fw *FrameWriter) Write(index int, img image.Image) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stream != nil {
		return encodeImg(fw.stream, fw.ext, img)
	}

	out := fw.Path(index)
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	if err := encodeImg(f, fw.ext, img); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	return f.Close()
}

// Close is a no-op, the frame files are closed after each write.
func (fw *FrameWriter) Close() error {
	return nil
}
