// Package fleet is the coordination façade (C9): it wires the event
// store, projection engine, lock manager, cursor service, and
// checkpoint service into the single set of public operations spec §6
// exposes to the excluded CLI/plugin/HTTP layer.
package fleet

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

const (
	defaultDatabaseFilename = "fleet.db"
	defaultReservationTTL   = time.Hour
	defaultLockTTL          = 5 * time.Minute
)

// Options configures a Fleet instance (spec §6 "Configuration inputs").
type Options struct {
	project          string
	projectPath      string
	databaseFilename string
	inMemory         bool
	reservationTTL   time.Duration
	lockTTL          time.Duration
	checkpointsDir   string
	stallThreshold   time.Duration
	clock            clock.Clock
	telemetry        telemetry.Telemetry
}

// Option mutates Options; functional-options matches the teacher's own
// Config-building style.
type Option func(*Options)

// WithProjectPath sets the absolute project root. Required unless
// WithInMemory is set, since it determines .fleet/fleet.db's location
// and is the project key stamped on every row.
func WithProjectPath(path string) Option {
	return func(o *Options) { o.projectPath = path }
}

// WithProject sets the logical project key stamped on every event row.
// Defaults to projectPath; set explicitly when running against an
// in-memory database (which has no path of its own) or when the
// logical project key should differ from the filesystem location.
func WithProject(name string) Option {
	return func(o *Options) { o.project = name }
}

// WithDatabaseFilename overrides the default "fleet.db" name.
func WithDatabaseFilename(name string) Option {
	return func(o *Options) { o.databaseFilename = name }
}

// WithInMemory opens a throwaway in-memory database, bypassing
// projectPath entirely. Intended for tests.
func WithInMemory() Option {
	return func(o *Options) { o.inMemory = true }
}

// WithReservationTTL overrides the default TTL applied when a
// reserveFiles call doesn't supply one.
func WithReservationTTL(ttl time.Duration) Option {
	return func(o *Options) { o.reservationTTL = ttl }
}

// WithLockTTL overrides the default TTL applied when an acquireLock
// call doesn't supply one.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *Options) { o.lockTTL = ttl }
}

// WithCheckpointsDir overrides the default <project>/.fleet/checkpoints.
func WithCheckpointsDir(dir string) Option {
	return func(o *Options) { o.checkpointsDir = dir }
}

// WithStallThreshold sets the default window detectRecoveryCandidates
// uses when the caller doesn't supply its own.
func WithStallThreshold(d time.Duration) Option {
	return func(o *Options) { o.stallThreshold = d }
}

// WithClock overrides the production clock; tests inject clock.Fixed.
func WithClock(c clock.Clock) Option {
	return func(o *Options) { o.clock = c }
}

// WithTelemetry overrides the no-op telemetry backend.
func WithTelemetry(t telemetry.Telemetry) Option {
	return func(o *Options) { o.telemetry = t }
}

func newOptions(opts ...Option) *Options {
	o := &Options{
		databaseFilename: defaultDatabaseFilename,
		reservationTTL:   defaultReservationTTL,
		lockTTL:          defaultLockTTL,
		stallThreshold:   30 * time.Minute,
		clock:            clock.System{},
		telemetry:        telemetry.NoOp(),
	}
	for _, apply := range opts {
		apply(o)
	}
	if o.checkpointsDir == "" && o.projectPath != "" {
		o.checkpointsDir = filepath.Join(o.projectPath, ".fleet", "checkpoints")
	}
	if o.project == "" {
		o.project = o.projectPath
	}
	return o
}

// Validate checks Options for internal consistency before Open
// touches the filesystem or database (spec §6 configuration inputs).
func (o *Options) Validate() error {
	if !o.inMemory && o.projectPath == "" {
		return fmt.Errorf("fleet: projectPath is required unless WithInMemory is set")
	}
	if o.project == "" {
		return fmt.Errorf("fleet: project is required (set WithProjectPath or WithProject)")
	}
	if o.reservationTTL <= 0 {
		return fmt.Errorf("fleet: reservationTTL must be positive")
	}
	if o.lockTTL <= 0 {
		return fmt.Errorf("fleet: lockTTL must be positive")
	}
	return nil
}
