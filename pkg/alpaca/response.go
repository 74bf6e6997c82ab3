package alpaca

import (
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"
)

const flushThreshold = 64 << 10

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Trailer holds the fields closing every response.
type Trailer struct {
	ClientTransactionID uint32
	ServerTransactionID uint32
	ErrorNumber         ErrorCode
	ErrorMessage        string
}

type field struct {
	key   string
	value any
}

// Response collects the fields a handler answers with. Fields are written
// in the order they were added, followed by the trailer.
type Response struct {
	fields      []field
	image       *ImageArray
	imageBinary bool
}

func NewResponse() *Response {
	return &Response{}
}

func (r *Response) add(key string, value any) {
	for i := range r.fields {
		if r.fields[i].key == key {
			r.fields[i].value = value
			return
		}
	}
	r.fields = append(r.fields, field{key, value})
}

func (r *Response) AddString(key, value string) {
	r.add(key, value)
}

func (r *Response) AddBool(key string, value bool) {
	r.add(key, value)
}

func (r *Response) AddInt(key string, value int) {
	r.add(key, value)
}

func (r *Response) AddFloat(key string, value float64) {
	r.add(key, value)
}

// Add appends an arbitrary JSON-encodable value.
func (r *Response) Add(key string, value any) {
	r.add(key, value)
}

// SetValue sets the standard "Value" field.
func (r *Response) SetValue(value any) {
	r.add("Value", value)
}

// Value returns the "Value" field, if set.
func (r *Response) Value() (any, bool) {
	return r.Field("Value")
}

// Field returns a previously added field.
func (r *Response) Field(key string) (any, bool) {
	for _, f := range r.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// SetImage answers with a pixel array. It is sent in the binary format when
// the client accepts it, otherwise as a JSON nested array.
func (r *Response) SetImage(img *ImageArray) {
	r.image = img
	r.imageBinary = true
}

// OfferImageBytes marks the response as eligible for the binary format even
// if no image gets attached, so errors reach binary clients as a header.
func (r *Response) OfferImageBytes() {
	r.imageBinary = true
}

func (r *Response) Image() *ImageArray {
	return r.image
}

// Binary reports whether the response is sent as image bytes for req.
func (r *Response) Binary(req *Request) bool {
	return r.imageBinary && req != nil && req.AcceptsImageBytes()
}

// WriteJSON streams the fields and the trailer as a JSON object.
func (r *Response) WriteJSON(w io.Writer, t Trailer) error {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for _, f := range r.fields {
		stream.WriteObjectField(f.key)
		writeValue(stream, f.value)
		stream.WriteMore()
	}

	if r.image != nil && t.ErrorNumber == Success {
		writeImageJSON(stream, r.image)
	}

	stream.WriteObjectField("ClientTransactionID")
	stream.WriteUint32(t.ClientTransactionID)
	stream.WriteMore()
	stream.WriteObjectField("ServerTransactionID")
	stream.WriteUint32(t.ServerTransactionID)
	stream.WriteMore()
	stream.WriteObjectField("ErrorNumber")
	stream.WriteInt(int(t.ErrorNumber))
	stream.WriteMore()
	stream.WriteObjectField("ErrorMessage")
	stream.WriteString(t.ErrorMessage)
	stream.WriteObjectEnd()

	if err := stream.Flush(); err != nil {
		return err
	}
	return stream.Error
}

func writeValue(stream *jsoniter.Stream, value any) {
	switch v := value.(type) {
	case string:
		stream.WriteString(v)
	case bool:
		stream.WriteBool(v)
	case int:
		stream.WriteInt(v)
	case int32:
		stream.WriteInt32(v)
	case int64:
		stream.WriteInt64(v)
	case uint32:
		stream.WriteUint32(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			stream.WriteNil()
			return
		}
		stream.WriteFloat64(v)
	default:
		stream.WriteVal(v)
	}
}

// writeImageJSON writes the Type, Rank and Value fields of an image array.
// Integer data is sent as Int32, floating point data as Double.
func writeImageJSON(stream *jsoniter.Stream, img *ImageArray) {
	jsonType := ElementInt32
	if img.Type.float() {
		jsonType = ElementDouble
	}
	stream.WriteObjectField("Type")
	stream.WriteInt32(int32(jsonType))
	stream.WriteMore()
	stream.WriteObjectField("Rank")
	stream.WriteInt(img.Rank)
	stream.WriteMore()
	stream.WriteObjectField("Value")

	switch d := img.Data.(type) {
	case []uint8:
		writeNested(stream, img, d, writeIntElement[uint8])
	case []int16:
		writeNested(stream, img, d, writeIntElement[int16])
	case []uint16:
		writeNested(stream, img, d, writeIntElement[uint16])
	case []int32:
		writeNested(stream, img, d, writeIntElement[int32])
	case []int64:
		writeNested(stream, img, d, writeIntElement[int64])
	case []float32:
		writeNested(stream, img, d, writeFloatElement[float32])
	case []float64:
		writeNested(stream, img, d, writeFloatElement[float64])
	default:
		stream.WriteEmptyArray()
	}
	stream.WriteMore()
}

func writeIntElement[T ~uint8 | ~int16 | ~uint16 | ~int32 | ~int64](stream *jsoniter.Stream, v T) {
	stream.WriteInt64(int64(v))
}

func writeFloatElement[T ~float32 | ~float64](stream *jsoniter.Stream, v T) {
	stream.WriteFloat64(float64(v))
}

func writeNested[T element](stream *jsoniter.Stream, img *ImageArray, data []T, write func(*jsoniter.Stream, T)) {
	dim1, dim2, dim3 := img.Dims[0], img.Dims[1], img.Dims[2]
	if img.Rank != 3 {
		dim3 = 1
	}

	stream.WriteArrayStart()
	for x := 0; x < dim1; x++ {
		if x > 0 {
			stream.WriteMore()
		}
		stream.WriteArrayStart()
		for y := 0; y < dim2; y++ {
			if y > 0 {
				stream.WriteMore()
			}
			base := (x*dim2 + y) * dim3
			if img.Rank != 3 {
				write(stream, data[base])
				continue
			}
			stream.WriteArrayStart()
			for p := 0; p < dim3; p++ {
				if p > 0 {
					stream.WriteMore()
				}
				write(stream, data[base+p])
			}
			stream.WriteArrayEnd()
		}
		stream.WriteArrayEnd()

		if stream.Buffered() > flushThreshold {
			stream.Flush()
		}
	}
	stream.WriteArrayEnd()
}
