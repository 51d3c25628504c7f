package velodyne

import "fmt"

// Parameters describe one lidar model: wire sizes, block geometry, range
// limits, and the fixed vertical scanning angles.
type Parameters struct {
	MinimumRange     float64 // meters
	MaximumRange     float64 // meters
	PacketSize       int     // UDP payload size in bytes
	BlockSize        int     // bytes
	ChannelsPerBlock int
	BlocksPerPacket  int
	VerticalBeams    int
	VerticalAngles   []float64 // radians
}

const (
	// Every raw data block opens with this flag, bytes 0xFF 0xEE on the wire.
	blockFlag = 0xEEFF

	// Distance values on the wire are in 2 mm units.
	distanceToMeters = 0.002

	// Max value for the intensity (100%).
	maxIntensity = 100

	// Time between firings in microseconds.
	deltaTime = 50

	// Scans accumulate this many packets before publishing. One extra packet
	// is kept to interpolate the trailing azimuth angles.
	packetsPerScan = 5
)

// vlp16VerticalAngles are the fixed vertical scanning angles in radians.
var vlp16VerticalAngles = []float64{
	-0.2617993878, 0.01745329252, -0.2268928028, 0.05235987756,
	-0.1919862177, 0.0872664626, -0.1570796327, 0.1221730476,
	-0.1221730476, 0.1570796327, -0.0872664626, 0.1919862177,
	-0.05235987756, 0.2268928028, -0.01745329252, 0.2617993878,
}

// ModelParameters returns the wire parameters for a lidar model. Only the
// VLP16 is supported.
func ModelParameters(model string) (Parameters, error) {
	switch model {
	case "VLP16":
		return Parameters{
			MinimumRange:     0.2,
			MaximumRange:     100.0,
			PacketSize:       1248 - 42, // data packet sans header
			BlockSize:        2 + 2 + 3*32,
			ChannelsPerBlock: 32,
			BlocksPerPacket:  12,
			VerticalBeams:    16,
			VerticalAngles:   vlp16VerticalAngles,
		}, nil
	default:
		return Parameters{}, fmt.Errorf("velodyne: unknown lidar model %q", model)
	}
}
