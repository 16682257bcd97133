package opsdiag_test

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/danpasecinic/opsdiag"
)

func TestEnvironmentReport(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	store := storeWith(
		map[string]any{
			"database.host":     "db.local",
			"database.password": "hunter2",
			"auth.api_key":      "k",
			"auth.signingToken": "t",
		},
	)
	e := newEngine(opsdiag.WithClock(clk), opsdiag.WithConfigStore(store))
	clk.Add(90 * time.Second)

	report := e.EnvironmentReport()

	assert.Equal(t, os.Getpid(), report.Process.PID)
	assert.Equal(t, "1m30s", report.Process.Uptime)
	assert.True(t, clk.Now().Add(-90*time.Second).Equal(report.Process.StartTime))
	assert.Equal(t, runtime.Version(), report.Runtime.Version)
	assert.Equal(t, runtime.GOOS, report.OS.OS)
	assert.Equal(t, runtime.NumCPU(), report.OS.CPUs)
	assert.NotNil(t, report.Host.Addresses)

	assert.Equal(
		t, map[string]string{
			"database.host":     "db.local",
			"database.password": "[redacted]",
			"auth.api_key":      "[redacted]",
			"auth.signingtoken": "[redacted]",
		}, report.Configuration,
	)
}
