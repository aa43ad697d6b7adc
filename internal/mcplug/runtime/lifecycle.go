package runtime

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydai/mcplug/pkg/mcplug"
)

const (
	defaultListTimeout = 30 * time.Second
	defaultCallTimeout = 30 * time.Second
)

// envLookup abstracts os.Getenv for testability.
type envLookup func(string) string

// effectiveLifecycle resolves the §4.4 precedence: disable-keepalive env
// beats keepalive env beats the server's configured lifecycle beats the
// ephemeral default. Read per call, never cached.
func effectiveLifecycle(name string, configured mcplug.Lifecycle, getenv envLookup) mcplug.Lifecycle {
	if matchesNameList(getenv("MCPLUG_DISABLE_KEEPALIVE"), name) {
		return mcplug.LifecycleEphemeral
	}
	if matchesNameList(getenv("MCPLUG_KEEPALIVE"), name) {
		return mcplug.LifecycleKeepAlive
	}
	if configured != mcplug.LifecycleUnset {
		return configured
	}
	return mcplug.LifecycleEphemeral
}

// matchesNameList reports whether a comma-separated env value names server
// or contains the wildcard "*".
func matchesNameList(raw, server string) bool {
	if raw == "" {
		return false
	}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "*" || item == server {
			return true
		}
	}
	return false
}

func listTimeout(getenv envLookup) time.Duration {
	return durationFromEnv(getenv("MCPLUG_LIST_TIMEOUT"), defaultListTimeout)
}

func callTimeout(getenv envLookup) time.Duration {
	return durationFromEnv(getenv("MCPLUG_CALL_TIMEOUT"), defaultCallTimeout)
}

func durationFromEnv(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func defaultEnvLookup() envLookup {
	return os.Getenv
}
