package alpaca

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ImageBytesMimeType is the content type of the binary image transfer.
const ImageBytesMimeType = "application/imagebytes"

const (
	// BinaryHeaderSize is the length of the header in bytes. It is also the
	// DataStart value emitted: element data begins right after the header.
	BinaryHeaderSize      = 44
	BinaryMetadataVersion = 1
)

type ImageElementType int32

const (
	ElementUnknown ImageElementType = iota
	ElementInt16
	ElementInt32
	ElementDouble
	ElementSingle
	ElementDecimal
	ElementByte
	ElementInt64
	ElementUInt16
)

var elementTypeNames = map[ImageElementType]string{
	ElementUnknown: "Unknown",
	ElementInt16:   "Int16",
	ElementInt32:   "Int32",
	ElementDouble:  "Double",
	ElementSingle:  "Single",
	ElementDecimal: "Decimal",
	ElementByte:    "Byte",
	ElementInt64:   "Int64",
	ElementUInt16:  "UInt16",
}

func (t ImageElementType) String() string {
	if n, ok := elementTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ImageElementType(%d)", int32(t))
}

// Size is the on-wire width of one element, 0 when the type can't be sent.
func (t ImageElementType) Size() int {
	switch t {
	case ElementByte:
		return 1
	case ElementInt16, ElementUInt16:
		return 2
	case ElementInt32, ElementSingle:
		return 4
	case ElementDouble, ElementInt64:
		return 8
	}
	return 0
}

func (t ImageElementType) float() bool {
	return t == ElementSingle || t == ElementDouble
}

// BinaryImageHeader is the fixed little-endian header of the image bytes format.
type BinaryImageHeader struct {
	MetadataVersion         int32
	ErrorNumber             int32
	ClientTransactionID     uint32
	ServerTransactionID     uint32
	DataStart               int32
	ImageElementType        ImageElementType
	TransmissionElementType ImageElementType
	Rank                    int32
	Dimension1              int32
	Dimension2              int32
	Dimension3              int32
}

func (h BinaryImageHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, BinaryHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], uint32(h.MetadataVersion))
	le.PutUint32(b[4:], uint32(h.ErrorNumber))
	le.PutUint32(b[8:], h.ClientTransactionID)
	le.PutUint32(b[12:], h.ServerTransactionID)
	le.PutUint32(b[16:], uint32(h.DataStart))
	le.PutUint32(b[20:], uint32(h.ImageElementType))
	le.PutUint32(b[24:], uint32(h.TransmissionElementType))
	le.PutUint32(b[28:], uint32(h.Rank))
	le.PutUint32(b[32:], uint32(h.Dimension1))
	le.PutUint32(b[36:], uint32(h.Dimension2))
	le.PutUint32(b[40:], uint32(h.Dimension3))
	return b, nil
}

func (h *BinaryImageHeader) UnmarshalBinary(b []byte) error {
	if len(b) < BinaryHeaderSize {
		return fmt.Errorf("image header too short: %d bytes", len(b))
	}
	le := binary.LittleEndian
	h.MetadataVersion = int32(le.Uint32(b[0:]))
	h.ErrorNumber = int32(le.Uint32(b[4:]))
	h.ClientTransactionID = le.Uint32(b[8:])
	h.ServerTransactionID = le.Uint32(b[12:])
	h.DataStart = int32(le.Uint32(b[16:]))
	h.ImageElementType = ImageElementType(le.Uint32(b[20:]))
	h.TransmissionElementType = ImageElementType(le.Uint32(b[24:]))
	h.Rank = int32(le.Uint32(b[28:]))
	h.Dimension1 = int32(le.Uint32(b[32:]))
	h.Dimension2 = int32(le.Uint32(b[36:]))
	h.Dimension3 = int32(le.Uint32(b[40:]))
	return nil
}

// ImageArray is a 2-D or 3-D pixel array ready for transfer. Data is a
// []uint8, []int16, []uint16, []int32, []int64, []float32 or []float64
// laid out with the last dimension varying fastest: element (x, y) of a
// rank 2 array is Data[x*Dims[1]+y], element (x, y, p) of a rank 3 array is
// Data[(x*Dims[1]+y)*Dims[2]+p].
type ImageArray struct {
	Type         ImageElementType
	Transmission ImageElementType
	Rank         int
	Dims         [3]int
	Data         any
}

// Len is the number of elements described by Rank and Dims.
func (a *ImageArray) Len() int {
	switch a.Rank {
	case 2:
		return a.Dims[0] * a.Dims[1]
	case 3:
		return a.Dims[0] * a.Dims[1] * a.Dims[2]
	}
	return 0
}

func (a *ImageArray) dataLen() int {
	switch d := a.Data.(type) {
	case []uint8:
		return len(d)
	case []int16:
		return len(d)
	case []uint16:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	}
	return -1
}

// Validate checks that the array shape matches its data.
func (a *ImageArray) Validate() error {
	if a.Rank != 2 && a.Rank != 3 {
		return fmt.Errorf("invalid image rank %d", a.Rank)
	}
	n := a.dataLen()
	if n < 0 {
		return fmt.Errorf("unsupported image data %T", a.Data)
	}
	if n != a.Len() {
		return fmt.Errorf("image data has %d elements, dimensions %v need %d", n, a.Dims, a.Len())
	}
	return nil
}

// TransmissionType is the element type used on the wire.
func (a *ImageArray) TransmissionType() ImageElementType {
	if a.Transmission == ElementUnknown {
		return a.Type
	}
	return a.Transmission
}

func (a *ImageArray) header(t Trailer) BinaryImageHeader {
	h := BinaryImageHeader{
		MetadataVersion:         BinaryMetadataVersion,
		ErrorNumber:             int32(t.ErrorNumber),
		ClientTransactionID:     t.ClientTransactionID,
		ServerTransactionID:     t.ServerTransactionID,
		DataStart:               BinaryHeaderSize,
		ImageElementType:        a.Type,
		TransmissionElementType: a.TransmissionType(),
		Rank:                    int32(a.Rank),
		Dimension1:              int32(a.Dims[0]),
		Dimension2:              int32(a.Dims[1]),
	}
	if a.Rank == 3 {
		h.Dimension3 = int32(a.Dims[2])
	}
	return h
}

// EncodeElements converts the array data to its transmission type.
func (a *ImageArray) EncodeElements() ([]byte, error) {
	tt := a.TransmissionType()
	if tt.Size() == 0 {
		return nil, fmt.Errorf("cannot transmit %s elements", tt)
	}
	if a.Type.float() && !tt.float() {
		return nil, fmt.Errorf("cannot transmit %s data as %s", a.Type, tt)
	}

	switch d := a.Data.(type) {
	case []uint8:
		return encodeElements(d, tt)
	case []int16:
		return encodeElements(d, tt)
	case []uint16:
		return encodeElements(d, tt)
	case []int32:
		return encodeElements(d, tt)
	case []int64:
		return encodeElements(d, tt)
	case []float32:
		return encodeElements(d, tt)
	case []float64:
		return encodeElements(d, tt)
	}
	return nil, fmt.Errorf("unsupported image data %T", a.Data)
}

type element interface {
	~uint8 | ~int16 | ~uint16 | ~int32 | ~int64 | ~float32 | ~float64
}

func encodeElements[T element](data []T, tt ImageElementType) ([]byte, error) {
	size := tt.Size()
	out := make([]byte, len(data)*size)
	le := binary.LittleEndian

	for i, v := range data {
		f := float64(v)
		b := out[i*size:]
		switch tt {
		case ElementByte:
			if f < 0 || f > math.MaxUint8 {
				return nil, outOfRange(i, f, tt)
			}
			b[0] = uint8(f)
		case ElementInt16:
			if f < math.MinInt16 || f > math.MaxInt16 {
				return nil, outOfRange(i, f, tt)
			}
			le.PutUint16(b, uint16(int16(f)))
		case ElementUInt16:
			if f < 0 || f > math.MaxUint16 {
				return nil, outOfRange(i, f, tt)
			}
			le.PutUint16(b, uint16(f))
		case ElementInt32:
			if f < math.MinInt32 || f > math.MaxInt32 {
				return nil, outOfRange(i, f, tt)
			}
			le.PutUint32(b, uint32(int32(f)))
		case ElementInt64:
			le.PutUint64(b, uint64(int64(v)))
		case ElementSingle:
			le.PutUint32(b, math.Float32bits(float32(f)))
		case ElementDouble:
			le.PutUint64(b, math.Float64bits(f))
		}
	}
	return out, nil
}

func outOfRange(i int, v float64, tt ImageElementType) error {
	return fmt.Errorf("element %d (%v) does not fit in %s", i, v, tt)
}

// WriteImageBytes writes the binary header followed by the element data.
// When the trailer carries an error, the header has rank 0 and the error
// message follows as UTF-8 text.
func WriteImageBytes(w io.Writer, t Trailer, img *ImageArray) error {
	var h BinaryImageHeader
	var data []byte

	if t.ErrorNumber != Success || img == nil {
		h = BinaryImageHeader{
			MetadataVersion:     BinaryMetadataVersion,
			ErrorNumber:         int32(t.ErrorNumber),
			ClientTransactionID: t.ClientTransactionID,
			ServerTransactionID: t.ServerTransactionID,
			DataStart:           BinaryHeaderSize,
		}
		data = []byte(t.ErrorMessage)
	} else {
		if err := img.Validate(); err != nil {
			return err
		}
		var err error
		if data, err = img.EncodeElements(); err != nil {
			return err
		}
		h = img.header(t)
	}

	hdr, _ := h.MarshalBinary()
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
