package startup

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"sdc-indexer/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one method and path template served by the endpoint.
type RouteInfo struct {
	Method string
	Path   string
}

const rule = "------------------------------------------------------------"

// section starts a titled block of startup output.
func section(title string) {
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

// Banner prints the banner and system information for a command.
func Banner(command string) {
	fmt.Fprintln(os.Stderr, `
`+rule+`
   ____  ___   ____   _           __
  / __/ / _ \ / __/  (_)___  ___/ /____ __ ___  ____
 _\ \  / // // /__  / // _ \/ _  // -_)\ \ // -_)/ __/
/___/ /____/ \___/ /_//_//_/\_,_/ \__//_\_\ \__//_/

`+rule)
	info := GetBuildInfo()
	logging.Info("  %s %s (%s, built %s)", command, info.Version, info.Commit, info.BuildTime)
	logging.Info("  Started %s", time.Now().Format(time.RFC1123))
	logging.Info("")

	section("SYSTEM INFORMATION")
	logging.Info("  Go %s on %s/%s", info.GoVersion, info.OS, info.Arch)
	procs := runtime.GOMAXPROCS(0)
	if procs < runtime.NumCPU() {
		logging.Info("  GOMAXPROCS %d of %d CPUs (container CPU limit)", procs, runtime.NumCPU())
	} else {
		logging.Info("  GOMAXPROCS %d", procs)
	}
	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname %s", hostname)
		}
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir %s", wd)
		}
	}
	logging.Info("")
}

// LogCatalogInit logs catalog initialization
func LogCatalogInit(driver string, duration time.Duration) {
	section("CATALOG INITIALIZATION")
	logging.Info("  [OK] %s catalog ready in %v", driver, duration)
	logging.Info("")
}

// LogOrbitsInit logs the perigee table source.
func LogOrbitsInit(source string, count int) {
	if count == 0 {
		logging.Info("  Orbit table: %s (empty, orbit-keyed names will not classify)", source)
		return
	}
	logging.Info("  Orbit table: %s (%d perigees)", source, count)
}

// LogIndexerInit opens the section of an indexing mode and lists its roots.
func LogIndexerInit(mode string, roots []string) {
	section(mode)
	logging.Info("  Roots: %d", len(roots))
	for _, root := range roots {
		logging.Info("    %s", root)
	}
}

// GetRoutes lists the routes of router sorted by path, then method. A
// route without a method matcher is reported with method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path})
		}
		return nil
	})

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, err
}

// LogServerStarted logs the HTTP endpoint and, at debug level, its routes.
func LogServerStarted(addr string, router *mux.Router) {
	section("HTTP ENDPOINT")
	logging.Info("  Metrics:   http://%s/metrics", addr)
	logging.Info("  Progress:  http://%s/progress", addr)

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	logging.Info("")
	section(fmt.Sprintf("SHUTDOWN INITIATED (%s)", reason))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete(elapsed time.Duration) {
	logging.Info("  [OK] Shutdown complete after %v", elapsed.Round(time.Millisecond))
}

// ensureWritableDir creates path if needed and proves it writable by
// creating and removing a uniquely named probe file.
func ensureWritableDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("  Creating directory %s", path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%s exists but is not a directory", path)
	}

	probe, err := os.CreateTemp(path, ".write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		logging.Warn("failed to close write probe %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write probe %s: %v", name, err)
	}
	return nil
}
