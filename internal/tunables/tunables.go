// Package tunables holds the numeric and behavioural constants an
// embedding application may override when wiring picofiber into its own
// process. The core itself owns no persisted configuration and reads no
// file path from the environment (spec §6) — an embedder that wants
// overrides loads a YAML document of its own choosing and hands it to
// Load.
package tunables

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Tunables are the values spec §6 and §9 call out as embedder-overridable:
// path/name length ceilings shared by every vfs.Backend, a pool growth
// factor, and a default tick duration.
type Tunables struct {
	Paths  PathTunables   `yaml:"paths"`
	Pool   PoolTunables   `yaml:"pool"`
	Kernel KernelTunables `yaml:"kernel"`
}

// PathTunables bounds the path/name lengths every vfs.Backend enforces.
type PathTunables struct {
	PathMax int `yaml:"path_max"`
	NameMax int `yaml:"name_max"`
}

// PoolTunables carries a pool growth factor. Only Validate reads it:
// fiber.Pool has a block count fixed at creation and never grows.
type PoolTunables struct {
	GrowthFactor float64 `yaml:"growth_factor"`
}

// KernelTunables carries a tick duration in milliseconds for the
// embedder's own use; the fiber kernel does not read it, and advances
// its tick once per scheduler-loop iteration. The fiber priority count (spec §3: levels 0..7) is
// fixed by the scheduler's lane array and is not embedder-overridable.
type KernelTunables struct {
	DefaultTickMillis int `yaml:"default_tick_millis"`
}

// Default returns the built-in values (vfs.DefaultPathMax/DefaultNameMax,
// no pool growth, a 10ms tick) used when an embedder supplies no
// overrides at all.
func Default() *Tunables {
	return &Tunables{
		Paths: PathTunables{
			PathMax: 256,
			NameMax: 64,
		},
		Pool: PoolTunables{
			GrowthFactor: 1.0,
		},
		Kernel: KernelTunables{
			DefaultTickMillis: 10,
		},
	}
}

// Load reads a YAML document of Tunables from filename, starting from
// Default so a partial document only overrides the fields it sets.
func Load(filename string) (*Tunables, error) {
	t := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("tunables: read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("tunables: parse %s: %w", filename, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate rejects values that would make the vtable or embedder tick
// loop unusable (zero or negative sizes, name longer than path).
func (t *Tunables) Validate() error {
	if t.Paths.PathMax <= 0 {
		return fmt.Errorf("tunables: path_max must be greater than 0")
	}
	if t.Paths.NameMax <= 0 {
		return fmt.Errorf("tunables: name_max must be greater than 0")
	}
	if t.Paths.NameMax > t.Paths.PathMax {
		return fmt.Errorf("tunables: name_max cannot exceed path_max")
	}
	if t.Kernel.DefaultTickMillis <= 0 {
		return fmt.Errorf("tunables: default_tick_millis must be greater than 0")
	}
	if t.Pool.GrowthFactor < 1.0 {
		return fmt.Errorf("tunables: growth_factor must be at least 1.0")
	}
	return nil
}
