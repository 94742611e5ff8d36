package directions

import "errors"

// errTruncated reports an encoded polyline that ends mid-coordinate.
var errTruncated = errors.New("directions: truncated polyline")

// LatLng is one decoded polyline vertex.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DecodePolyline decodes a Google encoded polyline into coordinates. Each
// value is a zigzag-encoded delta from the previous vertex at 1e-5 precision.
func DecodePolyline(encoded string) ([]LatLng, error) {
	var points []LatLng
	var lat, lng int64
	idx := 0
	for idx < len(encoded) {
		dLat, n, err := decodeValue(encoded[idx:])
		if err != nil {
			return nil, err
		}
		idx += n
		dLng, n, err := decodeValue(encoded[idx:])
		if err != nil {
			return nil, err
		}
		idx += n
		lat += dLat
		lng += dLng
		points = append(points, LatLng{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}
	return points, nil
}

func decodeValue(s string) (int64, int, error) {
	var result int64
	var shift uint
	for i := 0; i < len(s); i++ {
		b := int64(s[i]) - 63
		if b < 0 {
			return 0, 0, errTruncated
		}
		result |= (b & 0x1f) << shift
		if b < 0x20 {
			// zigzag decode
			if result&1 != 0 {
				return ^(result >> 1), i + 1, nil
			}
			return result >> 1, i + 1, nil
		}
		shift += 5
	}
	return 0, 0, errTruncated
}
