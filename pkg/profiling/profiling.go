package profiling

import (
	"fmt"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/config"
)

// Profiler wraps the Pyroscope profiler
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
}

// ProfileTypes maps the enabled switches to Pyroscope profile types
func ProfileTypes(cfg *config.ProfilingConfig) []pyroscope.ProfileType {
	var types []pyroscope.ProfileType
	if cfg.CPUProfile {
		types = append(types, pyroscope.ProfileCPU)
	}
	if cfg.AllocProfile {
		types = append(types, pyroscope.ProfileAllocObjects, pyroscope.ProfileAllocSpace)
	}
	if cfg.InuseProfile {
		types = append(types, pyroscope.ProfileInuseObjects, pyroscope.ProfileInuseSpace)
	}
	if cfg.GoroutineProfile {
		types = append(types, pyroscope.ProfileGoroutines)
	}
	return types
}

// Start starts the Pyroscope profiler in push mode.
// It returns a nil Profiler when profiling is disabled.
func Start(cfg *config.ProfilingConfig, logger *zap.Logger) (*Profiler, error) {
	if !cfg.Enabled {
		logger.Debug("profiling is disabled")
		return nil, nil
	}

	profileTypes := ProfileTypes(cfg)
	tags := make(map[string]string, len(cfg.Tags))
	for k, v := range cfg.Tags {
		tags[k] = v
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		TenantID:          cfg.TenantID,
		Tags:              tags,
		ProfileTypes:      profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types_count", len(profileTypes)),
	)

	return &Profiler{profiler: profiler, logger: logger}, nil
}

// Stop flushes and stops the profiler
func (p *Profiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}

	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("profiler stop: %w", err)
	}

	p.logger.Info("Pyroscope profiler stopped")
	return nil
}
