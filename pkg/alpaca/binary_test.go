package alpaca

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryHeaderLayout(t *testing.T) {
	h := BinaryImageHeader{
		MetadataVersion:         1,
		ErrorNumber:             0x401,
		ClientTransactionID:     7,
		ServerTransactionID:     0xDEADBEEF,
		DataStart:               BinaryHeaderSize,
		ImageElementType:        ElementInt32,
		TransmissionElementType: ElementUInt16,
		Rank:                    3,
		Dimension1:              100,
		Dimension2:              50,
		Dimension3:              3,
	}

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 44)

	le := binary.LittleEndian
	assert.Equal(t, uint32(1), le.Uint32(b[0:]))
	assert.Equal(t, uint32(0x401), le.Uint32(b[4:]))
	assert.Equal(t, uint32(7), le.Uint32(b[8:]))
	assert.Equal(t, uint32(0xDEADBEEF), le.Uint32(b[12:]))
	assert.Equal(t, uint32(44), le.Uint32(b[16:]))
	assert.Equal(t, uint32(2), le.Uint32(b[20:]))
	assert.Equal(t, uint32(8), le.Uint32(b[24:]))
	assert.Equal(t, uint32(3), le.Uint32(b[28:]))
	assert.Equal(t, uint32(100), le.Uint32(b[32:]))
	assert.Equal(t, uint32(50), le.Uint32(b[36:]))
	assert.Equal(t, uint32(3), le.Uint32(b[40:]))

	var decoded BinaryImageHeader
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, h, decoded)

	assert.Error(t, decoded.UnmarshalBinary(b[:43]))
}

func TestWriteImageBytes16Bit(t *testing.T) {
	const w, h = 100, 50
	data := make([]uint16, w*h)
	for i := range data {
		data[i] = uint16(i * 13)
	}
	img := &ImageArray{Type: ElementInt32, Transmission: ElementUInt16, Rank: 2, Dims: [3]int{w, h}, Data: data}

	var buf bytes.Buffer
	require.NoError(t, WriteImageBytes(&buf, Trailer{ClientTransactionID: 3, ServerTransactionID: 4}, img))
	require.Equal(t, 44+w*h*2, buf.Len())

	var hdr BinaryImageHeader
	require.NoError(t, hdr.UnmarshalBinary(buf.Bytes()))
	assert.Equal(t, int32(1), hdr.MetadataVersion)
	assert.Equal(t, int32(0), hdr.ErrorNumber)
	assert.Equal(t, uint32(3), hdr.ClientTransactionID)
	assert.Equal(t, uint32(4), hdr.ServerTransactionID)
	assert.Equal(t, int32(44), hdr.DataStart)
	assert.Equal(t, ElementInt32, hdr.ImageElementType)
	assert.Equal(t, ElementUInt16, hdr.TransmissionElementType)
	assert.Equal(t, int32(2), hdr.Rank)
	assert.Equal(t, int32(w), hdr.Dimension1)
	assert.Equal(t, int32(h), hdr.Dimension2)
	assert.Equal(t, int32(0), hdr.Dimension3)

	payload := buf.Bytes()[44:]
	for _, i := range []int{0, 1, 4999} {
		assert.Equal(t, data[i], binary.LittleEndian.Uint16(payload[i*2:]))
	}
}

func TestWriteImageBytesRGB(t *testing.T) {
	img := &ImageArray{
		Type:         ElementInt32,
		Transmission: ElementByte,
		Rank:         3,
		Dims:         [3]int{2, 1, 3},
		Data:         []uint8{1, 2, 3, 4, 5, 6},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteImageBytes(&buf, Trailer{}, img))

	var hdr BinaryImageHeader
	require.NoError(t, hdr.UnmarshalBinary(buf.Bytes()))
	assert.Equal(t, int32(3), hdr.Rank)
	assert.Equal(t, int32(3), hdr.Dimension3)
	assert.Equal(t, ElementByte, hdr.TransmissionElementType)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf.Bytes()[44:])
}

func TestWriteImageBytesError(t *testing.T) {
	tests := []struct {
		name string
		t    Trailer
		img  *ImageArray
	}{
		{"error trailer", Trailer{ServerTransactionID: 9, ErrorNumber: InvalidOperation, ErrorMessage: "No image available"}, nil},
		{"error with image", Trailer{ErrorNumber: CameraBusy, ErrorMessage: "Camera is busy"}, &ImageArray{Type: ElementByte, Rank: 2, Dims: [3]int{1, 1}, Data: []uint8{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteImageBytes(&buf, tt.t, tt.img))

			var hdr BinaryImageHeader
			require.NoError(t, hdr.UnmarshalBinary(buf.Bytes()))
			assert.Equal(t, int32(tt.t.ErrorNumber), hdr.ErrorNumber)
			assert.Equal(t, tt.t.ServerTransactionID, hdr.ServerTransactionID)
			assert.Equal(t, int32(44), hdr.DataStart)
			assert.Equal(t, int32(0), hdr.Rank)
			assert.Equal(t, tt.t.ErrorMessage, string(buf.Bytes()[44:]))
		})
	}
}

func TestEncodeElements(t *testing.T) {
	tests := []struct {
		name    string
		img     ImageArray
		want    []byte
		wantErr bool
	}{
		{
			name: "int32 as int32",
			img:  ImageArray{Type: ElementInt32, Rank: 2, Dims: [3]int{1, 2}, Data: []int32{-1, 70000}},
			want: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x70, 0x11, 0x01, 0x00},
		},
		{
			name: "int16 negative",
			img:  ImageArray{Type: ElementInt16, Rank: 2, Dims: [3]int{1, 1}, Data: []int16{-2}},
			want: []byte{0xFE, 0xFF},
		},
		{
			name: "double",
			img:  ImageArray{Type: ElementDouble, Rank: 2, Dims: [3]int{1, 1}, Data: []float64{1}},
			want: []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F},
		},
		{
			name:    "value does not fit",
			img:     ImageArray{Type: ElementInt32, Transmission: ElementByte, Rank: 2, Dims: [3]int{1, 1}, Data: []int32{256}},
			wantErr: true,
		},
		{
			name:    "negative as unsigned",
			img:     ImageArray{Type: ElementInt32, Transmission: ElementUInt16, Rank: 2, Dims: [3]int{1, 1}, Data: []int32{-1}},
			wantErr: true,
		},
		{
			name:    "float as integer",
			img:     ImageArray{Type: ElementDouble, Transmission: ElementInt32, Rank: 2, Dims: [3]int{1, 1}, Data: []float64{1}},
			wantErr: true,
		},
		{
			name:    "decimal",
			img:     ImageArray{Type: ElementDecimal, Rank: 2, Dims: [3]int{1, 1}, Data: []float64{1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.img.EncodeElements()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageArrayValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     ImageArray
		wantErr bool
	}{
		{"rank 2", ImageArray{Rank: 2, Dims: [3]int{2, 3}, Data: make([]uint16, 6)}, false},
		{"rank 3", ImageArray{Rank: 3, Dims: [3]int{2, 3, 3}, Data: make([]uint8, 18)}, false},
		{"short data", ImageArray{Rank: 2, Dims: [3]int{2, 3}, Data: make([]uint16, 5)}, true},
		{"bad rank", ImageArray{Rank: 1, Dims: [3]int{6}, Data: make([]uint16, 6)}, true},
		{"unsupported data", ImageArray{Rank: 2, Dims: [3]int{1, 1}, Data: []string{"x"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
