// Package velodyne drives a Velodyne VLP16 lidar. The driver binds a UDP
// socket, decodes raw data packets into range scan slices, and publishes
// them through the message schema registry when a RangeScanProto is loaded.
// Range and intensity tensors stay driver-side; the scalar schema model
// carries the scan geometry and denormalizers.
package velodyne

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/vk/appgraphgo/internal/ctxlog"
	"github.com/vk/appgraphgo/internal/registry"
	"github.com/vk/appgraphgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Name returns the module namespace.
func (m *Module) Name() string { return "velodyne_lidar" }

// Config defines the configuration keys of the VelodyneLidar component.
type Config struct {
	// IP is the address of the lidar device.
	IP string `cfg:"ip"`
	// Port is where the lidar device publishes data.
	Port int `cfg:"port"`
	// Type is the lidar model. Only "VLP16" is supported.
	Type string `cfg:"type"`
}

// scanProtoName is the message proto the driver publishes against when the
// application has it loaded.
const scanProtoName = "RangeScanProto"

// lidar is a live driver instance.
type lidar struct {
	conn  net.PacketConn
	done  chan struct{}
	scans atomic.Uint64
}

// Stop implements registry.Instance. Closing the socket unblocks the read
// loop; Stop returns once the loop has drained.
func (l *lidar) Stop(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Stopping lidar driver.")
	err := l.conn.Close()
	<-l.done
	return err
}

// StartLidar is the start handler for the 'velodyne_lidar.VelodyneLidar'
// component type.
func StartLidar(ctx context.Context, env *registry.Env, cfg *Config) (registry.Instance, error) {
	ip := cfg.IP
	if ip == "" {
		ip = "192.168.2.201"
	}
	port := cfg.Port
	if port == 0 {
		port = 2368
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("velodyne: port %d out of range", cfg.Port)
	}
	model := cfg.Type
	if model == "" {
		model = "VLP16"
	}
	params, err := ModelParameters(model)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("component", "velodyne_lidar.VelodyneLidar")
	conn, err := net.ListenPacket("udp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("velodyne: could not start socket: %w", err)
	}

	l := &lidar{conn: conn, done: make(chan struct{})}
	go l.readLoop(logger, env, params)

	logger.Info("Lidar driver listening.", "address", conn.LocalAddr().String(), "model", model)
	return l, nil
}

// readLoop drains the socket until it is closed, feeding the accumulator and
// publishing every completed scan.
func (l *lidar) readLoop(logger *slog.Logger, env *registry.Env, params Parameters) {
	defer close(l.done)

	acc := newAccumulator(params)
	buf := make([]byte, params.PacketSize+1)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			logger.Debug("Lidar socket closed.", "error", err)
			return
		}
		if n != params.PacketSize {
			logger.Warn("Dropping lidar packet with unexpected size.", "bytes", n)
			continue
		}
		scan, err := acc.Add(buf[:n])
		if err != nil {
			logger.Error("Failed to decode lidar packet batch.", "error", err)
			continue
		}
		if scan == nil {
			continue
		}
		if scan.InvalidBlocks > 0 {
			logger.Warn("Invalid raw packet.", "blocks", scan.InvalidBlocks)
		}
		l.scans.Add(1)

		msg, err := buildScanMessage(env.Schemas, scan)
		if err != nil {
			logger.Error("Failed to build range scan message.", "error", err)
			continue
		}
		if msg != nil {
			logger.Debug("Range scan published.", "uuid", msg.UUID, "slices", len(scan.Theta))
		} else {
			logger.Debug("Range scan decoded.", "slices", len(scan.Theta))
		}
	}
}

// buildScanMessage constructs a RangeScanProto message for a decoded scan,
// setting the fields the loaded proto declares. Returns nil when the proto
// is not loaded.
func buildScanMessage(reg *schema.Registry, scan *Scan) (*schema.Message, error) {
	if reg == nil {
		return nil, nil
	}
	proto, ok := reg.Proto(scanProtoName)
	if !ok {
		return nil, nil
	}
	builder, err := reg.Builder(scanProtoName)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"phi":                     scan.Phi,
		"theta":                   scan.Theta,
		"range_denormalizer":      scan.RangeDenormalizer,
		"intensity_denormalizer":  scan.IntensityDenormalizer,
		"invalid_range_threshold": scan.InvalidRangeThreshold,
		"out_of_range_threshold":  scan.OutOfRangeThreshold,
		"delta_time":              scan.DeltaTime,
	}
	for name, value := range fields {
		if _, declared := proto.Field(name); !declared {
			continue
		}
		if err := builder.Set(name, value); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

// Register registers the component handlers with the launcher.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("velodyne_lidar.VelodyneLidar", &registry.RegisteredComponent{
		NewConfig: func() any { return new(Config) },
		StartFn:   StartLidar,
	})
}
