package main

import (
	"flag"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/esimov/mirror"
	"github.com/stretchr/testify/assert"
)

func TestResolveSource(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		source   string
		explicit bool
		want     string
	}{
		{name: "no input", source: mirror.SourceWebcam, want: mirror.SourceWebcam},
		{name: "input implies file", input: "frames/", source: mirror.SourceWebcam, want: mirror.SourceFile},
		{name: "explicit source wins", input: "frames/", source: mirror.SourceScreen, explicit: true, want: mirror.SourceScreen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := mirror.DefaultConfig()
			cfg.Input, cfg.Source = tc.input, tc.source
			resolveSource(&cfg, tc.explicit)
			assert.Equal(t, tc.want, cfg.Source)
		})
	}
}

func TestHasKey(t *testing.T) {
	assert.True(t, hasKey([]byte(`{"source": "webcam"}`), "source"))
	assert.False(t, hasKey([]byte(`{"input": "frames/"}`), "source"))
	assert.False(t, hasKey([]byte(`{"detector": {"source": "x"}}`), "source"))
}

func TestBuildConfig_InputFlagWithConfigFile(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "mirror.json")
	assert.NoError(os.WriteFile(path, []byte(`{"overlay_width": 285}`), 0644))
	assert.NoError(flag.Set("config", path))
	assert.NoError(flag.Set("in", dir))

	cfg, err := buildConfig()
	assert.NoError(err)
	assert.Equal(mirror.SourceFile, cfg.Source)
	assert.Equal(dir, cfg.Input)
	assert.Equal(285, cfg.OverlayWidth)

	// a source chosen in the config file is kept
	assert.NoError(os.WriteFile(path, []byte(`{"source": "screen", "region": {"Min": {"X": 0, "Y": 0}, "Max": {"X": 10, "Y": 10}}}`), 0644))
	cfg, err = buildConfig()
	assert.NoError(err)
	assert.Equal(mirror.SourceScreen, cfg.Source)
	assert.Equal(image.Rect(0, 0, 10, 10), *cfg.Region)

	// and so is the one given on the command line
	assert.NoError(flag.Set("source", mirror.SourceWebcam))
	cfg, err = buildConfig()
	assert.NoError(err)
	assert.Equal(mirror.SourceWebcam, cfg.Source)
}
