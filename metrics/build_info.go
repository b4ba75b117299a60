package metrics

import (
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册恒为 1 的构建信息指标，标签携带服务版本、Go 版本与 VCS 修订号。
// 重复调用只保留第一次的标签。
func (m *Metrics) RegisterBuildInfo(serviceName, version string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	m.BuildInfo = m.NewGaugeVec(&prometheus.GaugeOpts{
		Name: "lookback_build_info",
		Help: "Build information of the pricing service, always 1",
	}, []string{"service", "version", "go_version", "revision"})
	m.BuildInfo.WithLabelValues(orUnknown(serviceName), orUnknown(version), runtime.Version(), vcsRevision()).Set(1)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "unknown"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
