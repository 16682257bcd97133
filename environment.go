package opsdiag

import (
	"net"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pbnjay/memory"
)

type HostInfo struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

type OSInfo struct {
	OS               string `json:"os"`
	Arch             string `json:"arch"`
	CPUs             int    `json:"cpus"`
	TotalMemoryBytes uint64 `json:"totalMemoryBytes"`
}

type ProcessInfo struct {
	PID        int       `json:"pid"`
	Executable string    `json:"executable,omitempty"`
	Args       []string  `json:"args"`
	WorkingDir string    `json:"workingDir,omitempty"`
	StartTime  time.Time `json:"startTime"`
	Uptime     string    `json:"uptime"`
	Goroutines int       `json:"goroutines"`
}

type RuntimeInfo struct {
	Version    string `json:"version"`
	Compiler   string `json:"compiler"`
	GOMAXPROCS int    `json:"gomaxprocs"`
}

type EnvironmentReport struct {
	Host          HostInfo          `json:"host"`
	OS            OSInfo            `json:"os"`
	Process       ProcessInfo       `json:"process"`
	Runtime       RuntimeInfo       `json:"runtime"`
	Configuration map[string]string `json:"configuration"`
}

const redacted = "[redacted]"

var secretMarkers = []string{"password", "passwd", "secret", "token", "apikey", "api_key", "credential", "private"}

func (e *Engine) EnvironmentReport() EnvironmentReport {
	host, _ := os.Hostname()
	exe, _ := os.Executable()
	wd, _ := os.Getwd()

	return EnvironmentReport{
		Host: HostInfo{
			Name:      host,
			Addresses: hostAddresses(),
		},
		OS: OSInfo{
			OS:               runtime.GOOS,
			Arch:             runtime.GOARCH,
			CPUs:             runtime.NumCPU(),
			TotalMemoryBytes: memory.TotalMemory(),
		},
		Process: ProcessInfo{
			PID:        os.Getpid(),
			Executable: exe,
			Args:       append([]string(nil), os.Args...),
			WorkingDir: wd,
			StartTime:  e.started,
			Uptime:     e.config.clock.Since(e.started).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
		},
		Runtime: RuntimeInfo{
			Version:    runtime.Version(),
			Compiler:   runtime.Compiler,
			GOMAXPROCS: runtime.GOMAXPROCS(0),
		},
		Configuration: redact(e.config.store.Flatten()),
	}
}

func hostAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return []string{}
	}

	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		out = append(out, ipNet.IP.String())
	}
	sort.Strings(out)
	return out
}

func redact(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if isSecretKey(k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
