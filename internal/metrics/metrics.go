package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ControlConnected is 1 while a control session to the playout server is open.
	ControlConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caspar_console_control_connected",
		Help: "Whether the console holds a live AMCP control session",
	})

	ControlConnectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caspar_console_control_connect_total",
		Help: "Control session connect attempts by result",
	}, []string{"result"})

	ProfileSaveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caspar_console_profile_save_total",
		Help: "Profile writes by result",
	}, []string{"result"})

	ActiveChannelTests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caspar_console_channel_tests_active",
		Help: "Channels currently showing the key/fill test pattern",
	})

	PreviewRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caspar_console_preview_running",
		Help: "Whether the local test pattern service is running",
	})

	PreviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caspar_console_preview_requests_total",
		Help: "Requests served by the test pattern service by status class",
	}, []string{"class"})

	StartupStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caspar_console_startup_step_duration_seconds",
		Help:    "Duration of each startup step",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"step", "result"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func SetControlConnected(v bool) { ControlConnected.Set(boolGauge(v)) }

func IncControlConnect(err error) { ControlConnectTotal.WithLabelValues(result(err)).Inc() }

func IncProfileSave(err error) { ProfileSaveTotal.WithLabelValues(result(err)).Inc() }

func SetActiveChannelTests(n int) { ActiveChannelTests.Set(float64(n)) }

func SetPreviewRunning(v bool) { PreviewRunning.Set(boolGauge(v)) }

// IncPreviewRequest counts a served request under its status class, e.g. "2xx".
func IncPreviewRequest(status int) {
	class := "other"
	if status >= 100 && status < 600 {
		class = string(rune('0'+status/100)) + "xx"
	}
	PreviewRequestsTotal.WithLabelValues(class).Inc()
}

// ObserveStartupStep records how long one startup step took.
func ObserveStartupStep(step string, d time.Duration, err error) {
	StartupStepDuration.WithLabelValues(step, result(err)).Observe(d.Seconds())
}
