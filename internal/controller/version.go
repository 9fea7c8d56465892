package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ConfigVersion hashes a configuration document.
func ConfigVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// versionTracker remembers the version of the last applied document.
type versionTracker struct {
	mu   sync.Mutex
	last string
}

// observe records version and reports whether it differs from the previous one.
func (v *versionTracker) observe(version string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	changed := v.last != version
	v.last = version
	return changed
}

func (v *versionTracker) current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}
