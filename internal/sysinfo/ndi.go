package sysinfo

import (
	"context"
	"errors"
	"os"
	"runtime"
)

var errNDINotFound = errors.New("ndi runtime not found")

// ndiProbe holds the host lookups so tests can substitute them.
type ndiProbe struct {
	goos   string
	getenv func(string) string
	exists func(string) bool
}

func defaultNDIProbe() ndiProbe {
	return ndiProbe{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
	}
}

// NDIVersion reports "Installed" when an NDI runtime is present on the host.
func NDIVersion() VersionSource {
	return defaultNDIProbe().version
}

func (p ndiProbe) version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var paths, envs []string
	switch p.goos {
	case "windows":
		envs = []string{"NDI_SDK_DIR", "NDI_RUNTIME_DIR_V6", "NDI_RUNTIME_DIR_V5"}
	case "darwin":
		paths = []string{
			"/Applications/NDI Video Monitor.app",
			"/Applications/NDI Tools/NDI Video Monitor.app",
			"/Library/NDI SDK for Apple",
		}
	default:
		paths = []string{"/usr/lib/libndi.so", "/usr/lib64/libndi.so", "/usr/local/lib/libndi.so"}
		envs = []string{"NDI_RUNTIME_DIR_V5", "NDI_RUNTIME_DIR_V4"}
	}
	for _, path := range paths {
		if p.exists(path) {
			return "Installed", nil
		}
	}
	for _, env := range envs {
		if p.getenv(env) != "" {
			return "Installed", nil
		}
	}
	return "", errNDINotFound
}
