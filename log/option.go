package log

import (
	"io"
	"strings"
	"time"
)

// Option configures a [Logger].
type Option func(*config)

// WithOutput sets the destination of log records. A nil writer discards them.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.output = w }
}

// WithLevel sets the minimum level of records that are written.
func WithLevel(level Level) Option {
	return func(c *config) { c.level = level }
}

// WithFormat sets the record encoding.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithCaller controls whether records carry the source position of the call.
func WithCaller(enable bool) Option {
	return func(c *config) { c.caller = enable }
}

// WithTimeLayout sets the timestamp layout.
//
// Named layouts of package [time] are matched ignoring case and punctuation,
// so "rfc3339", "RFC-3339" and "RFC3339" are equivalent, as are a few short
// aliases such as "ms" for [time.StampMilli]. Any other string is used
// verbatim as a [time.Time.Format] layout. An empty layout, or "none",
// omits timestamps.
func WithTimeLayout(layout string) Option {
	return func(c *config) { c.timeLayout = resolveLayout(layout) }
}

var namedLayouts = map[string]string{
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"ansic":       time.ANSIC,
	"unixdate":    time.UnixDate,
	"rfc822":      time.RFC822,
	"rfc822z":     time.RFC822Z,
	"rfc1123":     time.RFC1123,
	"kitchen":     time.Kitchen,
	"datetime":    time.DateTime,
	"stamp":       time.Stamp,
	"stampmilli":  time.StampMilli,
	"ms":          time.StampMilli,
	"stampmicro":  time.StampMicro,
	"us":          time.StampMicro,
	"stampnano":   time.StampNano,
	"ns":          time.StampNano,
	"none":        "",
}

func resolveLayout(layout string) string {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}

		return -1
	}, layout)

	if key == "" {
		return ""
	}

	if std, ok := namedLayouts[key]; ok {
		return std
	}

	return layout
}
