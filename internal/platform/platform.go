// Package platform reports the runtime facts the Plex identity headers describe:
// operating system, device, screen geometry and language.
package platform

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
	"golang.org/x/text/language"
)

// Unknown is the placeholder sent for any fact the runtime cannot provide.
const Unknown = "Unknown"

const defaultLanguage = "en"

// Facts describes the device this client runs on. Empty fields are reported as Unknown.
type Facts struct {
	OSName     string
	OSVersion  string
	Brand      string
	DeviceName string
	Model      string
	Screen     Screen
	Language   string
}

// Screen is the display geometry. For a terminal client it is the terminal size in cells.
type Screen struct {
	Width  int
	Height int
}

// ScreenProvider returns the current screen geometry.
type ScreenProvider interface {
	Size() Screen
}

// FixedScreen always reports the same geometry.
type FixedScreen Screen

// Size implements ScreenProvider.
func (s FixedScreen) Size() Screen { return Screen(s) }

// TerminalScreen reads the size of the terminal attached to the given file descriptor,
// falling back to 80x24 when it is not a terminal.
type TerminalScreen struct {
	FD int
}

// Size implements ScreenProvider.
func (s TerminalScreen) Size() Screen {
	w, h, err := term.GetSize(s.FD)
	if err != nil || w <= 0 || h <= 0 {
		return Screen{Width: 80, Height: 24}
	}
	return Screen{Width: w, Height: h}
}

// Detect collects facts about the current process environment.
// langTag overrides the locale read from LC_ALL / LANG when non-empty.
func Detect(screen ScreenProvider, langTag string) Facts {
	hostname, _ := os.Hostname()
	if langTag == "" {
		langTag = localeFromEnv()
	}
	facts := Facts{
		OSName:     osName(runtime.GOOS),
		OSVersion:  osVersion(),
		DeviceName: hostname,
		Model:      runtime.GOARCH,
		Language:   LanguageCode(langTag),
	}
	if screen != nil {
		facts.Screen = screen.Size()
	}
	return facts
}

// LanguageCode reduces a locale such as "pt_BR.UTF-8" or "en-GB" to its base language code.
// Unparseable or empty input yields "en".
func LanguageCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, ".@"); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.ReplaceAll(tag, "_", "-")
	if tag == "" || tag == "C" || tag == "POSIX" {
		return defaultLanguage
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return defaultLanguage
	}
	base, conf := parsed.Base()
	if conf == language.No {
		return defaultLanguage
	}
	return base.String()
}

func localeFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func osName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	case "":
		return ""
	default:
		return goos
	}
}

// osVersion reads VERSION_ID from /etc/os-release. Other systems report "".
func osVersion() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	return readOSRelease("/etc/os-release")
}

func readOSRelease(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "VERSION_ID="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

// OrUnknown returns v, or Unknown when v is blank.
func OrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}
