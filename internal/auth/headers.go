package auth

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/waabox/seerrdeck/internal/platform"
)

// Plex identity header names.
const (
	HeaderAccept           = "Accept"
	HeaderProduct          = "X-Plex-Product"
	HeaderVersion          = "X-Plex-Version"
	HeaderClientIdentifier = "X-Plex-Client-Identifier"
	HeaderModel            = "X-Plex-Model"
	HeaderPlatform         = "X-Plex-Platform"
	HeaderPlatformVersion  = "X-Plex-Platform-Version"
	HeaderDevice           = "X-Plex-Device"
	HeaderDeviceName       = "X-Plex-Device-Name"
	HeaderScreenResolution = "X-Plex-Device-Screen-Resolution"
	HeaderLanguage         = "X-Plex-Language"
)

// oauthVersion is the protocol marker plex.tv expects in X-Plex-Version, not the app version.
const oauthVersion = "Plex OAuth"

// requiredHeaders lists every header a request to plex.tv must carry, in send order.
var requiredHeaders = []string{
	HeaderAccept,
	HeaderProduct,
	HeaderVersion,
	HeaderClientIdentifier,
	HeaderModel,
	HeaderPlatform,
	HeaderPlatformVersion,
	HeaderDevice,
	HeaderDeviceName,
	HeaderScreenResolution,
	HeaderLanguage,
}

// Headers is an immutable set of Plex identity headers. The zero value is empty and
// fails Complete.
type Headers struct {
	values map[string]string
}

// BuildHeaders assembles the identity headers for one login attempt.
// Missing platform facts are sent as "Unknown"; an empty device id is an error.
func BuildHeaders(id DeviceID, product ProductInfo, facts platform.Facts) (Headers, error) {
	if id == "" {
		return Headers{}, fmt.Errorf("device id is empty")
	}
	productName := platform.OrUnknown(product.Name)
	deviceName := fmt.Sprintf("%s (%s)", platform.OrUnknown(facts.DeviceName), productName)

	values := map[string]string{
		HeaderAccept:           "application/json",
		HeaderProduct:          productName,
		HeaderVersion:          oauthVersion,
		HeaderClientIdentifier: string(id),
		HeaderModel:            platform.OrUnknown(facts.Model),
		HeaderPlatform:         platform.OrUnknown(facts.OSName),
		HeaderPlatformVersion:  platform.OrUnknown(facts.OSVersion),
		HeaderDevice:           platform.OrUnknown(facts.Brand),
		HeaderDeviceName:       deviceName,
		HeaderScreenResolution: resolution(facts.Screen),
		HeaderLanguage:         platform.OrUnknown(facts.Language),
	}
	return Headers{values: values}, nil
}

func resolution(s platform.Screen) string {
	w, h := s.Width, s.Height
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}

// Get returns the value of a header, or "" when it is not set.
func (h Headers) Get(name string) string {
	return h.values[name]
}

// Map returns a copy of the headers.
func (h Headers) Map() map[string]string {
	out := make(map[string]string, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

// Complete reports whether every required header is present and non-empty.
func (h Headers) Complete() bool {
	for _, name := range requiredHeaders {
		if h.values[name] == "" {
			return false
		}
	}
	return true
}

// Apply sets the headers on req.
func (h Headers) Apply(req *http.Request) {
	for _, name := range requiredHeaders {
		if v, ok := h.values[name]; ok {
			req.Header.Set(name, v)
		}
	}
}
