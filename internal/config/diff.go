package config

import (
	"reflect"
	"strings"

	logx "sheetcache/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections and safe
// structured attrs for logging the transition.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 10)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Server != newCfg.Server {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.String("server.addr", strings.TrimSpace(newCfg.Server.Addr)),
			logx.Int("server.rate_per_sec", newCfg.Server.RatePerSec),
		)
	}

	if !reflect.DeepEqual(oldCfg.Ingest, newCfg.Ingest) {
		changed = append(changed, "ingest")
		attrs = append(attrs,
			logx.String("ingest.interval", strings.TrimSpace(newCfg.Ingest.Interval)),
			logx.Int("ingest.retry_attempts", newCfg.Ingest.RetryAttempts),
		)
	}

	// Registry and schema edits are logged but only take effect on restart.
	if !reflect.DeepEqual(oldCfg.Reports, newCfg.Reports) || !reflect.DeepEqual(oldCfg.Schemas, newCfg.Schemas) {
		changed = append(changed, "registry (restart required)")
		attrs = append(attrs, logx.Int("reports.count", len(newCfg.Reports)))
	}

	return changed, attrs
}
