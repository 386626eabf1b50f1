package auth

import (
	"net/url"
	"strings"

	"github.com/cli/browser"
)

const plexDefaultAuthURL = "https://app.plex.tv/auth/#!"

// Launcher opens a URL for the user and returns without waiting for the page to close.
type Launcher interface {
	Open(url string) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(url string) error

// Open implements Launcher.
func (f LauncherFunc) Open(url string) error { return f(url) }

// BrowserLauncher opens URLs in the system browser.
type BrowserLauncher struct{}

// Open implements Launcher.
func (BrowserLauncher) Open(url string) error {
	return browser.OpenURL(url)
}

// AuthorizationURL builds the app.plex.tv page where the user approves pin.
// authBase is the page URL up to the "#!" marker; empty means app.plex.tv.
// Each key and value is percent-encoded on its own and the pairs are joined with "&".
func AuthorizationURL(authBase string, pin AuthPin, headers Headers) string {
	if authBase == "" {
		authBase = plexDefaultAuthURL
	}
	params := [][2]string{
		{"clientID", headers.Get(HeaderClientIdentifier)},
		{"context[device][product]", headers.Get(HeaderProduct)},
		{"context[device][version]", headers.Get(HeaderVersion)},
		{"context[device][platform]", headers.Get(HeaderPlatform)},
		{"context[device][platformVersion]", headers.Get(HeaderPlatformVersion)},
		{"context[device][device]", headers.Get(HeaderDevice)},
		{"context[device][deviceName]", headers.Get(HeaderDeviceName)},
		{"context[device][model]", headers.Get(HeaderModel)},
		{"context[device][screenResolution]", headers.Get(HeaderScreenResolution)},
		{"context[device][layout]", "mobile"},
		{"code", pin.Code},
	}

	pairs := make([]string, len(params))
	for i, p := range params {
		pairs[i] = encodeComponent(p[0]) + "=" + encodeComponent(p[1])
	}
	return authBase + "?" + strings.Join(pairs, "&")
}

// encodeComponent escapes s for use as a query key or value. Spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
