/*
Package mirror detects the faces present on a live video feed and draws their bounding boxes
on an overlay of reduced size, reporting the average joy score of every processed frame.

The frames are pulled from a FrameSource (webcam, screen capture, image files or URL),
the faces are located by a Detector (a pigo cascade classifier by default)
and each bounding box is mapped from the sensor resolution onto the overlay with Transform.

The package provides a command line interface. To check the supported flags type:

	$ mirror --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"

		"github.com/esimov/mirror"
	)

	func main() {
		cfg := mirror.DefaultConfig()
		cfg.Cascade = "cascade/facefinder"

		sum, err := mirror.New(cfg, nil).Run(context.Background())
		if err != nil {
			fmt.Printf("Error running the mirror: %s", err.Error())
		}
		fmt.Printf("%d frames processed", sum.Frames)
	}
*/
package mirror
