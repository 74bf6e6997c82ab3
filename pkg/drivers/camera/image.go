package camera

import (
	"fmt"

	"alpacapi/pkg/alpaca"
)

// ImageType is the pixel format of a frame.
type ImageType int

const (
	ImageRaw8 ImageType = iota
	ImageRaw16
	ImageRGB24
	ImageY8
)

var imageTypeNames = map[ImageType]string{
	ImageRaw8:  "RAW8",
	ImageRaw16: "RAW16",
	ImageRGB24: "RGB24",
	ImageY8:    "Y8",
}

func (t ImageType) String() string {
	if name, ok := imageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ImageType(%d)", int(t))
}

// Image is a frame as read from the sensor, stored row by row. RAW16 frames
// use Pix16; the others use Pix8 with three bytes per pixel for RGB24.
// MaxValue is the largest code the sensor produces, 0 meaning the full
// range of the pixel type.
type Image struct {
	Type     ImageType
	Width    int
	Height   int
	MaxValue int
	Pix8     []uint8
	Pix16    []uint16
}

func (img *Image) channels() int {
	if img.Type == ImageRGB24 {
		return 3
	}
	return 1
}

// FullScale is the value of a saturated pixel.
func (img *Image) FullScale() int {
	full := 255
	if img.Type == ImageRaw16 {
		full = 65535
	}
	if img.MaxValue > 0 && img.MaxValue < full {
		return img.MaxValue
	}
	return full
}

func (img *Image) validate() error {
	n := img.Width * img.Height
	switch img.Type {
	case ImageRaw16:
		if len(img.Pix16) != n {
			return fmt.Errorf("%s image %dx%d has %d pixels", img.Type, img.Width, img.Height, len(img.Pix16))
		}
	case ImageRaw8, ImageY8, ImageRGB24:
		if len(img.Pix8) != n*img.channels() {
			return fmt.Errorf("%s image %dx%d has %d bytes", img.Type, img.Width, img.Height, len(img.Pix8))
		}
	default:
		return fmt.Errorf("unsupported image type %s", img.Type)
	}
	return nil
}

// ImageArray transposes the frame into the x-major layout of the Alpaca
// imagearray command. Integer frames are announced as Int32 and sent with
// their native width.
func (img *Image) ImageArray() (*alpaca.ImageArray, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}

	w, h := img.Width, img.Height
	arr := &alpaca.ImageArray{
		Type: alpaca.ElementInt32,
		Rank: 2,
		Dims: [3]int{w, h, 0},
	}

	switch img.Type {
	case ImageRaw16:
		data := make([]uint16, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[x*h+y] = img.Pix16[y*w+x]
			}
		}
		arr.Transmission = alpaca.ElementUInt16
		arr.Data = data

	case ImageRGB24:
		data := make([]uint8, w*h*3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				copy(data[(x*h+y)*3:(x*h+y)*3+3], img.Pix8[(y*w+x)*3:])
			}
		}
		arr.Rank = 3
		arr.Dims[2] = 3
		arr.Transmission = alpaca.ElementByte
		arr.Data = data

	default:
		data := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[x*h+y] = img.Pix8[y*w+x]
			}
		}
		arr.Transmission = alpaca.ElementByte
		arr.Data = data
	}
	return arr, nil
}
