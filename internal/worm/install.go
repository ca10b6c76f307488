package worm

import (
	"log/slog"
	"slices"
	"strings"
)

// Selection names the fields an Installer guards.
//
// The zero value is the all-fields sentinel: every key present on the record
// at install time. Keys added afterwards are never guarded retroactively.
type Selection struct {
	keys     []string
	explicit bool
}

// AllFields returns the all-fields sentinel. Equivalent to Selection{}.
func AllFields() Selection {
	return Selection{}
}

// Fields returns an explicit selection. Calling it with no keys selects
// nothing. Duplicate keys are harmless.
func Fields(keys ...string) Selection {
	return Selection{keys: slices.Clone(keys), explicit: true}
}

// IsAll reports whether s is the all-fields sentinel.
func (s Selection) IsAll() bool { return !s.explicit }

// Keys returns the explicit keys, or nil for the all-fields sentinel.
func (s Selection) Keys() []string { return slices.Clone(s.keys) }

// String renders the selection for diagnostics.
func (s Selection) String() string {
	if !s.explicit {
		return "*"
	}
	return "[" + strings.Join(s.keys, " ") + "]"
}

func (s Selection) resolve(r *Record) []string {
	if !s.explicit {
		return r.Keys()
	}
	return s.keys
}

// Installer converts record fields into write-once fields.
type Installer struct {
	logger     *slog.Logger
	recordOpts []RecordOption
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger that receives the empty-install warning.
// Default is slog.Default() at the time of the Install call.
func WithLogger(l *slog.Logger) Option {
	return func(in *Installer) {
		in.logger = l
	}
}

// WithRecordOptions configures the record Install creates when it is given
// a nil record.
func WithRecordOptions(opts ...RecordOption) Option {
	return func(in *Installer) {
		in.recordOpts = append(in.recordOpts, opts...)
	}
}

// NewInstaller creates an Installer.
func NewInstaller(opts ...Option) *Installer {
	in := &Installer{}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Install guards the selected fields of r and returns r.
//
// A nil r is treated as an empty record created for the call. Each selected
// key is seeded with its current value, or created with a nil value when
// missing. Keys already Written keep their value and stay fixed; keys still
// Unwritten are re-seeded.
//
// When the resolved selection is empty and the record has no keys, there is
// nothing to guard and nothing to create: Install logs a warning and returns
// a new empty record instead of r. For a nil r that is the record created
// for the call.
func (in *Installer) Install(sel Selection, r *Record) *Record {
	base := r
	if base == nil {
		base = NewRecord(in.recordOpts...)
	}

	keys := sel.resolve(base)
	if len(keys) == 0 && base.Len() == 0 {
		if r != nil {
			base = r.sibling()
		}
		in.log().Warn("neither keys nor starting record given; fields added later are not guarded, returning an empty record",
			"record", base.ID(),
			"selection", sel.String(),
		)
		return base
	}

	for _, k := range keys {
		base.guard(k)
	}
	return base
}

func (in *Installer) log() *slog.Logger {
	if in.logger != nil {
		return in.logger
	}
	return slog.Default()
}

// Install guards sel on r using an installer that logs to slog.Default().
func Install(sel Selection, r *Record) *Record {
	return NewInstaller().Install(sel, r)
}
