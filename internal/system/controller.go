package system

import (
	"image"
	"os/exec"
	"runtime"

	"screen-state-recognizer/internal/capture"
)

// Environment is what the host offers to the recognizer.
type Environment struct {
	OS           string            `json:"os"`
	Arch         string            `json:"arch"`
	OCRBinary    string            `json:"ocr_binary,omitempty"`
	OCRAvailable bool              `json:"ocr_available"`
	Displays     []image.Rectangle `json:"displays"`
}

type Controller struct {
	osType   string
	arch     string
	lookPath func(string) (string, error)
	monitors func() []image.Rectangle
}

func NewController() *Controller {
	return &Controller{
		osType:   runtime.GOOS,
		arch:     runtime.GOARCH,
		lookPath: exec.LookPath,
		monitors: capture.Monitors,
	}
}

func (c *Controller) GetOSName() string {
	return c.osType
}

// OCRBinary returns the path of the tesseract executable. The cgo binding
// links libtesseract directly, but the binary being installed is the usual
// sign that language data is present too.
func (c *Controller) OCRBinary() (string, bool) {
	name := "tesseract"
	if c.osType == "windows" {
		name = "tesseract.exe"
	}
	path, err := c.lookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// IsSystemSupported reports whether at least one display can be captured.
func (c *Controller) IsSystemSupported() bool {
	return len(c.monitors()) > 0
}

func (c *Controller) Probe() Environment {
	env := Environment{
		OS:       c.osType,
		Arch:     c.arch,
		Displays: c.monitors(),
	}
	if env.Displays == nil {
		env.Displays = []image.Rectangle{}
	}
	env.OCRBinary, env.OCRAvailable = c.OCRBinary()
	return env
}
