package xlcalc

import "github.com/javajack/xlcalc/formula"

// DefaultVersion is the version tag used when none is configured.
const DefaultVersion = "default"

// Options holds the configuration of a Spreadsheet. It is fixed at
// construction and applied to every name the spreadsheet accepts.
type Options struct {
	isValid   formula.Validator
	normalize formula.Normalizer
	version   string
}

func defaultOptions() *Options {
	return &Options{
		isValid:   func(string) bool { return true },
		normalize: func(s string) string { return s },
		version:   DefaultVersion,
	}
}

// Option configures a Spreadsheet.
type Option func(*Options)

// WithValidator sets the predicate every normalized cell name must satisfy
// (default: accept every identifier).
func WithValidator(isValid func(string) bool) Option {
	return func(o *Options) {
		if isValid != nil {
			o.isValid = isValid
		}
	}
}

// WithNormalizer sets the canonicalization applied to cell names and
// formula variables (default: identity).
func WithNormalizer(normalize func(string) string) Option {
	return func(o *Options) {
		if normalize != nil {
			o.normalize = normalize
		}
	}
}

// WithVersion sets the version tag written on save and required on load
// (default: "default").
func WithVersion(version string) Option {
	return func(o *Options) { o.version = version }
}

func buildOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
