package camera

import (
	"errors"
	"fmt"

	stream "github.com/mpoegel/sequoia-uplink/pkg/stream"
	gocv "gocv.io/x/gocv"
)

// Camera is a gocv capture device. It implements stream.Device.
type Camera struct {
	index int
	cam   *gocv.VideoCapture
}

// Open opens device index and asks for width x height. The backend may pick
// another mode; use Resolution to see what it settled on.
func Open(index, width, height int) (*Camera, error) {
	cam, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, err
	}
	if !cam.IsOpened() {
		cam.Close()
		return nil, fmt.Errorf("device %d did not open", index)
	}

	cam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &Camera{index: index, cam: cam}, nil
}

// OpenDevice adapts Open to stream.OpenFunc.
func OpenDevice(index, width, height int) (stream.Device, error) {
	c, err := Open(index, width, height)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Resolution is the frame size the backend negotiated.
func (c *Camera) Resolution() (width, height int) {
	if c.cam == nil {
		return 0, 0
	}
	return int(c.cam.Get(gocv.VideoCaptureFrameWidth)), int(c.cam.Get(gocv.VideoCaptureFrameHeight))
}

func (c *Camera) Read() (stream.Frame, error) {
	if c.cam == nil {
		return nil, errors.New("device is closed")
	}

	img := gocv.NewMat()
	if ok := c.cam.Read(&img); !ok {
		img.Close()
		return nil, errors.New("cannot read device")
	}

	if img.Empty() {
		img.Close()
		return nil, errors.New("no image on device")
	}

	return &Frame{img: img}, nil
}

// Close releases the device. Calling it more than once is a no-op.
func (c *Camera) Close() error {
	if c.cam == nil {
		return nil
	}
	err := c.cam.Close()
	c.cam = nil
	return err
}

// Frame is a captured image held in OpenCV memory.
type Frame struct {
	img gocv.Mat
}

// NewFrame takes ownership of img.
func NewFrame(img gocv.Mat) *Frame {
	return &Frame{img: img}
}

func (f *Frame) Size() (width, height int) {
	return f.img.Cols(), f.img.Rows()
}

func (f *Frame) JPEG(quality int) ([]byte, error) {
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("quality %d out of range", quality)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases C memory that Close frees
	data := append([]byte(nil), buf.GetBytes()...)
	if len(data) == 0 {
		return nil, errors.New("encoder produced no data")
	}
	return data, nil
}

func (f *Frame) Close() {
	f.img.Close()
}
