package pdfread

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Decompressed streams larger than this abort loading.
const maxStreamSize = 256 * 1024 * 1024

// DecodeStream returns the decoded data of a stream object, applying its
// filter chain. Image filters pass through untouched since their pixel data
// never reaches the text pipeline.
func DecodeStream(dict Dict, data []byte) ([]byte, error) {
	filterObj, ok := dict["Filter"]
	if !ok {
		return data, nil
	}

	var filters []string
	var parms []Dict
	switch filterObj.Kind {
	case KindName:
		filters = []string{filterObj.Name}
		if p, ok := dict["DecodeParms"]; ok && p.Kind == KindDict {
			parms = []Dict{p.Dict}
		} else {
			parms = []Dict{nil}
		}
	case KindArray:
		for _, f := range filterObj.Array {
			if f.Kind == KindName {
				filters = append(filters, f.Name)
			}
		}
		if arr, ok := dict["DecodeParms"]; ok && arr.Kind == KindArray {
			for _, p := range arr.Array {
				if p != nil && p.Kind == KindDict {
					parms = append(parms, p.Dict)
				} else {
					parms = append(parms, nil)
				}
			}
		}
		for len(parms) < len(filters) {
			parms = append(parms, nil)
		}
	default:
		return data, nil
	}

	var err error
	for i, filter := range filters {
		switch filter {
		case "FlateDecode", "Fl":
			data, err = flateDecode(parms[i], data)
		case "ASCIIHexDecode", "AHx":
			data, err = asciiHexDecode(data)
		case "DCTDecode", "DCT", "CCITTFaxDecode", "CCF", "JBIG2Decode", "JPXDecode":
			// image data, untouched
		default:
			err = fmt.Errorf("unsupported stream filter %s", filter)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s stream: %w", filter, err)
		}
	}
	return data, nil
}

func flateDecode(parms Dict, data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxStreamSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxStreamSize {
		return nil, fmt.Errorf("stream exceeds %d bytes", maxStreamSize)
	}
	if parms == nil {
		return out, nil
	}
	predictor, ok := parms.Int("Predictor")
	if !ok || predictor == 1 {
		return out, nil
	}
	if predictor == 2 {
		return tiffPredictor(parms, out), nil
	}
	if predictor >= 10 && predictor <= 15 {
		return pngPredictor(parms, out), nil
	}
	return out, nil
}

func rowBytes(parms Dict) int {
	colors, _ := parms.Int("Colors")
	bits, _ := parms.Int("BitsPerComponent")
	columns, _ := parms.Int("Columns")
	if colors == 0 {
		colors = 1
	}
	if bits == 0 {
		bits = 8
	}
	if columns == 0 {
		columns = 1
	}
	return int((columns*colors*bits + 7) / 8)
}

func tiffPredictor(parms Dict, data []byte) []byte {
	rb := rowBytes(parms)
	if rb == 0 {
		return data
	}
	out := make([]byte, len(data))
	for row := 0; row*rb < len(data); row++ {
		start := row * rb
		end := start + rb
		if end > len(data) {
			end = len(data)
		}
		copy(out[start:end], data[start:end])
		for i := start + 1; i < end; i++ {
			out[i] += out[i-1]
		}
	}
	return out
}

// pngPredictor undoes the per row PNG filters 0 to 4.
func pngPredictor(parms Dict, data []byte) []byte {
	rb := rowBytes(parms)
	stride := rb + 1
	if len(data) == 0 || stride <= 1 {
		return data
	}
	rows := len(data) / stride
	out := make([]byte, rows*rb)
	prev := make([]byte, rb)
	for row := 0; row < rows; row++ {
		src := data[row*stride+1 : row*stride+stride]
		dst := out[row*rb : row*rb+rb]
		switch data[row*stride] {
		case 1: // Sub
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + a
			}
		case 2: // Up
			for i := range dst {
				dst[i] = src[i] + prev[i]
			}
		case 3: // Average
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + byte((int(a)+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := range dst {
				var a, c byte
				if i > 0 {
					a = dst[i-1]
					c = prev[i-1]
				}
				dst[i] = src[i] + paeth(a, prev[i], c)
			}
		default:
			copy(dst, src)
		}
		copy(prev, dst)
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	i := 0
	for i < len(data) {
		for i < len(data) && isWhitespace(data[i]) {
			i++
		}
		if i >= len(data) || data[i] == '>' {
			break
		}
		hi := hexVal(data[i])
		i++
		for i < len(data) && isWhitespace(data[i]) {
			i++
		}
		var lo byte
		if i < len(data) && data[i] != '>' {
			lo = hexVal(data[i])
			i++
		}
		buf.WriteByte(hi<<4 | lo)
	}
	return buf.Bytes(), nil
}
