package mirror

// DetectedFace is a single detection: the face region and the joy score estimated by the detector.
type DetectedFace struct {
	Box      BoundingBox
	JoyScore float64
}

// Frame is the ordered list of faces detected during one inference cycle.
type Frame []DetectedFace

// AverageScore returns the mean joy score of the detected faces.
// An empty frame yields 0.0.
func AverageScore(faces Frame) float64 {
	if len(faces) == 0 {
		return 0.0
	}
	var sum float64
	for _, face := range faces {
		sum += face.JoyScore
	}
	return sum / float64(len(faces))
}

// Filter transforms the detections of a frame, usually by discarding some of them.
type Filter func(Frame) Frame

// NewScoreFilter keeps only the faces whose joy score is at least min.
func NewScoreFilter(min float64) Filter {
	return func(in Frame) Frame {
		out := make(Frame, 0, len(in))
		for _, f := range in {
			if f.JoyScore >= min {
				out = append(out, f)
			}
		}
		return out
	}
}

// NewAreaFilter drops the faces whose bounding box covers less than area pixels.
func NewAreaFilter(area float64) Filter {
	return func(in Frame) Frame {
		out := make(Frame, 0, len(in))
		for _, f := range in {
			if f.Box.Area() >= area {
				out = append(out, f)
			}
		}
		return out
	}
}

// ChainFilters applies the filters in order. Nil filters are skipped.
func ChainFilters(filters ...Filter) Filter {
	return func(in Frame) Frame {
		for _, fn := range filters {
			if fn != nil {
				in = fn(in)
			}
		}
		return in
	}
}
