// Package device holds the spoofed mobile identity presented to the service.
package device

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Name is the fixed device name and user-agent vendor.
const Name = "Xiaomi"

var osVersions = []string{
	"Android_7.1.2", "Android_8.0.0", "Android_8.1.0", "Android_9.0", "Android_10", "Android_11", "Android_12",
	"Android_13", "Android_6.0.1", "Android_5.1.1", "Android_4.4.4", "Android_4.3", "Android_4.2.2",
	"Android_4.1.2",
}

// Identity is the device model and OS version sent with every request. It is
// chosen once per installation and persisted alongside the credentials.
type Identity struct {
	Model     string
	OSVersion string
}

// Random draws a fresh identity from the static enumerations.
func Random(r *rand.Rand) Identity {
	return Identity{
		Model:     models[r.Intn(len(models))],
		OSVersion: osVersions[r.Intn(len(osVersions))],
	}
}

// Resolve returns the persisted identity, filling any missing half from r.
// changed reports whether the caller should persist the result.
func Resolve(model, osVersion string, r *rand.Rand) (id Identity, changed bool) {
	id = Identity{Model: model, OSVersion: osVersion}
	if id.Model == "" {
		id.Model = models[r.Intn(len(models))]
		changed = true
	}
	if id.OSVersion == "" {
		id.OSVersion = osVersions[r.Intn(len(osVersions))]
		changed = true
	}
	return id, changed
}

// UserAgent renders the user-agent header for this identity.
func (id Identity) UserAgent() string {
	return "123pan/v2.4.0(" + id.OSVersion + ";" + Name + ")"
}

// NewLoginUUID returns a random per-session login id in hex form.
func NewLoginUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Models returns a copy of the model enumeration.
func Models() []string {
	return append([]string(nil), models...)
}

// OSVersions returns a copy of the OS version enumeration.
func OSVersions() []string {
	return append([]string(nil), osVersions...)
}
