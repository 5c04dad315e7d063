package mpcnet

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// PartyConfig is the per-process network configuration, loaded once and
// immutable for the process lifetime.
type PartyConfig struct {
	// ID is this party's zero-based index.
	ID int `toml:"id"`
	// Bind is the listen address for connections from higher-indexed peers.
	Bind string `toml:"bind"`
	// TimeoutMS bounds every round receive; 0 means the default.
	TimeoutMS int `toml:"timeout_ms"`

	Peers []PeerConfig `toml:"peers"`
}

type PeerConfig struct {
	ID      int    `toml:"id"`
	Address string `toml:"address"`
}

const defaultTimeout = 30 * time.Second

func (c *PartyConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// NumParties counts this party plus its peers.
func (c *PartyConfig) NumParties() int { return len(c.Peers) + 1 }

// LoadPartyConfig reads and validates a TOML party configuration file.
// Validation failures here are startup-time fatal, before any network io.
func LoadPartyConfig(path string) (*PartyConfig, error) {
	var cfg PartyConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrap(err, "mpcnet: parsing party config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *PartyConfig) validate() error {
	n := c.NumParties()
	if n < 2 {
		return errors.New("mpcnet: config needs at least one peer")
	}
	if c.ID < 0 || c.ID >= n {
		return errors.Errorf("mpcnet: party id %d out of range for %d parties", c.ID, n)
	}
	seen := map[int]bool{c.ID: true}
	for _, p := range c.Peers {
		if p.ID < 0 || p.ID >= n {
			return errors.Errorf("mpcnet: peer id %d out of range for %d parties", p.ID, n)
		}
		if seen[p.ID] {
			return errors.Errorf("mpcnet: duplicate party id %d", p.ID)
		}
		if p.Address == "" {
			return errors.Errorf("mpcnet: peer %d has no address", p.ID)
		}
		seen[p.ID] = true
	}
	if c.Bind == "" && c.ID != n-1 {
		return errors.New("mpcnet: bind address required to accept higher-indexed peers")
	}
	return nil
}
