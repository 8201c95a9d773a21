// Package console renders the periodic mining stats line.
package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dynamocoin/go-dynminer/internal/metrics"
	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/work"

	"github.com/charmbracelet/lipgloss"
)

// reportInterval is how often the stats line is emitted.
const reportInterval = 3 * time.Second

// Hashrate display thresholds, 1024 steps.
const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb
	tb = 1024 * gb
)

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	hashrateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	uptimeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	foundStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	acceptedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	rejectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	nonceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	brandStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	sepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// FormatHashrate renders a rate in H/s with 1024-step unit scaling.
func FormatHashrate(rate float64) string {
	switch {
	case rate >= tb:
		return fmt.Sprintf("%.2f TH/s", rate/tb)
	case rate >= gb:
		return fmt.Sprintf("%.2f GH/s", rate/gb)
	case rate >= mb:
		return fmt.Sprintf("%.2f MH/s", rate/mb)
	case rate >= kb:
		return fmt.Sprintf("%.2f KH/s", rate/kb)
	default:
		return fmt.Sprintf("%.2f H/s", rate)
	}
}

// FormatUptime renders elapsed seconds as NdNhNmNs, largest unit first.
func FormatUptime(seconds int) string {
	days := seconds / (24 * 3600)
	seconds %= 24 * 3600
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm%ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Reporter emits the stats line every few seconds and mirrors the counters
// into the prometheus gauges. Timing starts when the first job arrives.
type Reporter struct {
	version string
	shared  *work.Shared
	stats   *shares.Stats
	out     io.Writer
}

// NewReporter creates a reporter writing to out.
func NewReporter(version string, shared *work.Shared, stats *shares.Stats, out io.Writer) *Reporter {
	return &Reporter{
		version: version,
		shared:  shared,
		stats:   stats,
		out:     out,
	}
}

// Run blocks until the first job, then reports until the context ends.
func (r *Reporter) Run(ctx context.Context) {
	for r.shared.Num() == 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}

	start := time.Now()
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fmt.Fprintln(r.out, r.renderLine(now, start))
		}
	}
}

func (r *Reporter) renderLine(now, start time.Time) string {
	elapsed := now.Sub(start).Seconds()
	nonces := r.stats.NonceCount.Load()
	found := r.stats.ShareCount.Load()
	accepted := r.stats.AcceptedShareCount.Load()
	rejected := r.stats.RejectedShareCount.Load()
	diff := r.stats.LatestDiff.Load()

	hashrate := float64(nonces) / elapsed

	metrics.Hashrate.Set(hashrate)
	metrics.NoncesTried.Set(float64(nonces))
	metrics.SharesFound.Set(float64(found))
	metrics.SharesAccepted.Set(float64(accepted))
	metrics.SharesRejected.Set(float64(rejected))
	metrics.PoolDifficulty.Set(float64(diff))
	metrics.UptimeSeconds.Set(elapsed)

	sep := sepStyle.Render(" | ")
	return timestampStyle.Render(now.Format("2006-01-02 15:04:05")+": ") +
		hashrateStyle.Render(FormatHashrate(hashrate)) + sep +
		uptimeStyle.Render(fmt.Sprintf("Uptime: %6s", FormatUptime(int(elapsed)))) + sep +
		foundStyle.Render(fmt.Sprintf("S: %4d", found)) +
		acceptedStyle.Render(fmt.Sprintf("/%-4d", accepted)) + sep +
		rejectedStyle.Render(fmt.Sprintf("R: %4d", rejected)) + sep +
		diffStyle.Render(fmt.Sprintf("D:%-4d", diff)) + sep +
		nonceStyle.Render(fmt.Sprintf("N:%-8d", nonces)) + sep +
		brandStyle.Render("DynMiner "+r.version)
}
