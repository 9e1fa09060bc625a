package config

import (
	"os"
	"strings"
)

// MirrorCacheEnabled turns on the redis read-through cache for mirror
// documents fetched by local id.
//
// Set via env:
// - MIRROR_CACHE_ENABLED=true
func MirrorCacheEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MIRROR_CACHE_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// OutboxDispatcherEnabled controls whether this instance runs the sync-event
// publisher loop. Disable on instances that only serve traffic.
//
// Set via env:
// - OUTBOX_DISPATCHER_ENABLED=false
func OutboxDispatcherEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DISPATCHER_ENABLED")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
