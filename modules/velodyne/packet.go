package velodyne

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Scan is one decoded range scan slice, accumulated from several packets.
// Ranges and intensities are indexed by slice, then vertical beam. Range
// values keep their 2 mm wire units; RangeDenormalizer converts to meters.
type Scan struct {
	Phi   []float64 // vertical beam angles in radians
	Theta []float64 // azimuth per slice in radians, interpolated

	Ranges      [][]uint16
	Intensities [][]uint8

	RangeDenormalizer     float64
	IntensityDenormalizer float64
	InvalidRangeThreshold float64
	OutOfRangeThreshold   float64
	DeltaTime             int

	// InvalidBlocks counts data blocks whose flag did not match the wire
	// format. Their channels are still decoded, matching the device's
	// tolerance for occasional corruption.
	InvalidBlocks int
}

// rawBlock is one decoded data block: an azimuth plus one distance and
// reflectivity reading per channel.
type rawBlock struct {
	flagValid    bool
	azimuth      float64 // radians
	distance     []uint16
	reflectivity []uint8
}

// decodeBlock reads one data block. The layout is two little-endian uint16s
// (flag, azimuth in centidegrees) followed by three bytes per channel.
func decodeBlock(p Parameters, data []byte) rawBlock {
	block := rawBlock{
		flagValid:    binary.LittleEndian.Uint16(data[0:2]) == blockFlag,
		azimuth:      -degToRad(float64(binary.LittleEndian.Uint16(data[2:4])) / 100.0),
		distance:     make([]uint16, p.ChannelsPerBlock),
		reflectivity: make([]uint8, p.ChannelsPerBlock),
	}
	for i := 0; i < p.ChannelsPerBlock; i++ {
		channel := data[4+3*i:]
		block.distance[i] = binary.LittleEndian.Uint16(channel[0:2])
		block.reflectivity[i] = channel[2]
	}
	return block
}

// decodePacket splits one UDP payload into its data blocks.
func decodePacket(p Parameters, packet []byte) ([]rawBlock, error) {
	if len(packet) != p.PacketSize {
		return nil, fmt.Errorf("velodyne: packet is %d bytes, want %d", len(packet), p.PacketSize)
	}
	blocks := make([]rawBlock, p.BlocksPerPacket)
	for i := range blocks {
		blocks[i] = decodeBlock(p, packet[i*p.BlockSize:])
	}
	return blocks, nil
}

// decodeScan assembles a scan from the previous run's trailing packet plus a
// fresh batch. Rays come from the first packetsPerScan packets; the batch's
// last packet only contributes the azimuth needed to interpolate the final
// slice.
func decodeScan(p Parameters, prev []byte, batch [][]byte) (*Scan, error) {
	packets := append([][]byte{prev}, batch...)

	rays := packetsPerScan * p.BlocksPerPacket * p.ChannelsPerBlock
	if p.VerticalBeams <= 0 || rays%p.VerticalBeams != 0 {
		return nil, fmt.Errorf("velodyne: %d rays not divisible by %d vertical beams", rays, p.VerticalBeams)
	}
	slices := rays / p.VerticalBeams

	scan := &Scan{
		Phi:                   append([]float64(nil), p.VerticalAngles...),
		Ranges:                make([][]uint16, slices),
		Intensities:           make([][]uint8, slices),
		RangeDenormalizer:     distanceToMeters * 65535.0,
		IntensityDenormalizer: maxIntensity,
		InvalidRangeThreshold: p.MinimumRange,
		OutOfRangeThreshold:   p.MaximumRange,
		DeltaTime:             deltaTime,
	}
	for i := range scan.Ranges {
		scan.Ranges[i] = make([]uint16, p.VerticalBeams)
		scan.Intensities[i] = make([]uint8, p.VerticalBeams)
	}

	minRange := uint16(p.MinimumRange / distanceToMeters)
	maxRange := uint16(p.MaximumRange / distanceToMeters)
	azimuths := make([]float64, 0, len(packets)*p.BlocksPerPacket)

	for packetIndex, packet := range packets {
		blocks, err := decodePacket(p, packet)
		if err != nil {
			return nil, err
		}
		for blockIndex, block := range blocks {
			azimuths = append(azimuths, block.azimuth)
			if packetIndex >= packetsPerScan {
				continue
			}
			if !block.flagValid {
				scan.InvalidBlocks++
			}
			offset := (packetIndex*p.BlocksPerPacket + blockIndex) * p.ChannelsPerBlock
			for i := 0; i < p.ChannelsPerBlock; i++ {
				index := offset + i
				phiIndex := index % p.VerticalBeams
				thetaIndex := index / p.VerticalBeams
				distance := block.distance[i]
				if distance < minRange || maxRange < distance {
					continue
				}
				scan.Ranges[thetaIndex][phiIndex] = distance
				scan.Intensities[thetaIndex][phiIndex] = block.reflectivity[i]
			}
		}
	}

	// Every second azimuth is missing on the wire and interpolated from its
	// neighbours. Requires two channel sets per block.
	if p.VerticalBeams*2 != p.ChannelsPerBlock {
		return nil, fmt.Errorf("velodyne: expected one azimuth every second set, got %d beams for %d channels",
			p.VerticalBeams, p.ChannelsPerBlock)
	}
	used := packetsPerScan * p.BlocksPerPacket
	scan.Theta = make([]float64, 2*used)
	for i := 0; i < used; i++ {
		a1, a2 := azimuths[i], azimuths[i+1]
		scan.Theta[2*i] = a1
		scan.Theta[2*i+1] = a1 + 0.5*deltaAngle(a2, a1)
	}
	return scan, nil
}

// accumulator collects packets into scans. The first full batch only seeds
// the trailing packet, so the first Add cycle never yields a scan.
type accumulator struct {
	params Parameters
	prev   []byte
	batch  [][]byte
}

func newAccumulator(params Parameters) *accumulator {
	return &accumulator{params: params}
}

// Add feeds one packet. It returns a decoded scan once enough packets have
// accumulated, or nil while the batch is still filling.
func (a *accumulator) Add(packet []byte) (*Scan, error) {
	buf := append([]byte(nil), packet...)
	a.batch = append(a.batch, buf)
	if len(a.batch) < packetsPerScan {
		return nil, nil
	}

	batch := a.batch
	a.batch = nil
	prev := a.prev
	a.prev = batch[len(batch)-1]
	if prev == nil {
		return nil, nil
	}
	return decodeScan(a.params, prev, batch)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// deltaAngle returns the signed difference between two angles, wrapped to
// (-pi, pi].
func deltaAngle(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
