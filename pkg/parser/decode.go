package parser

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/ascii85"
	"io"
)

// decodeStream applies the stream's /Filter chain with matching /DecodeParms
func decodeStream(data []byte, dict Dict, offset int64) ([]byte, error) {
	var filters []Name
	var params []Dict

	switch f := dict["Filter"].(type) {
	case nil:
		return data, nil
	case Name:
		filters = []Name{f}
		p, _ := dict["DecodeParms"].(Dict)
		params = []Dict{p}
	case Array:
		parms, _ := dict["DecodeParms"].(Array)
		for i, item := range f {
			name, ok := item.(Name)
			if !ok {
				return nil, syntaxErrorf(offset, "filter entry is not a name")
			}
			filters = append(filters, name)
			var p Dict
			if i < len(parms) {
				p, _ = parms[i].(Dict)
			}
			params = append(params, p)
		}
	default:
		return nil, syntaxErrorf(offset, "invalid /Filter")
	}

	var err error
	for i, f := range filters {
		switch f {
		case "FlateDecode", "Fl":
			data, err = inflate(data)
			if err == nil {
				data, err = unpredict(data, params[i])
			}
		case "ASCIIHexDecode", "AHx":
			data, err = asciiHexDecode(data)
		case "ASCII85Decode", "A85":
			data, err = ascii85Decode(data)
		default:
			return nil, syntaxErrorf(offset, "unsupported filter /%s", f)
		}
		if err != nil {
			return nil, syntaxErrorf(offset, "/%s: %v", f, err)
		}
	}
	return data, nil
}

// inflate tries zlib first and falls back to raw deflate, which some
// producers emit without the zlib header
func inflate(data []byte) ([]byte, error) {
	if r, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer r.Close()
		out, err := io.ReadAll(r)
		if err == nil || len(out) > 0 {
			return out, nil
		}
	}

	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var digits []byte
	for _, b := range data {
		if b == '>' {
			break
		}
		if isHexDigit(b) {
			digits = append(digits, b)
		}
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}

	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = unhex(digits[2*i])<<4 | unhex(digits[2*i+1])
	}
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if idx := bytes.Index(data, []byte("~>")); idx >= 0 {
		data = data[:idx]
	}

	out := make([]byte, 4*len(data)+4)
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// unpredict reverses PNG row predictors (Predictor >= 10). TIFF predictor 2
// is not used by cross-reference or object streams and is rejected.
func unpredict(data []byte, params Dict) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, _ := params.Int("Predictor")
	if predictor <= 1 {
		return data, nil
	}
	if predictor < 10 {
		return nil, syntaxErrorf(0, "unsupported predictor %d", predictor)
	}

	colors := int64(1)
	if c, ok := params.Int("Colors"); ok && c > 0 {
		colors = c
	}
	bpc := int64(8)
	if b, ok := params.Int("BitsPerComponent"); ok && b > 0 {
		bpc = b
	}
	columns := int64(1)
	if c, ok := params.Int("Columns"); ok && c > 0 {
		columns = c
	}

	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)
	stride := rowLen + 1

	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for len(data) >= stride {
		filter := data[0]
		row := append([]byte(nil), data[1:stride]...)
		data = data[stride:]

		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch filter {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, syntaxErrorf(0, "invalid PNG filter type %d", filter)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
