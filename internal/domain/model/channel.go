package model

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownChannel is returned when a channel has no profile in the table.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrInvalidProfile is returned for a profile with out-of-range targets.
	ErrInvalidProfile = errors.New("invalid channel profile")
)

// ChannelProfile carries the service commitment for one channel.
type ChannelProfile struct {
	Name              string  `koanf:"-"`
	IsRealTime        bool    `koanf:"real_time"`
	SLATargetSeconds  int     `koanf:"sla_target_seconds"`
	SLATargetFraction float64 `koanf:"sla_target_fraction"`
}

// Validate checks the profile's ranges.
func (p ChannelProfile) Validate() error {
	if !(p.SLATargetFraction > 0 && p.SLATargetFraction <= 1) {
		return fmt.Errorf("%w: %s: sla_target_fraction %v not in (0,1]", ErrInvalidProfile, p.Name, p.SLATargetFraction)
	}
	if p.IsRealTime && p.SLATargetSeconds <= 0 {
		return fmt.Errorf("%w: %s: real-time channel needs sla_target_seconds > 0", ErrInvalidProfile, p.Name)
	}
	return nil
}

// ChannelTable is the explicit channel -> profile lookup. There is no default
// entry: a channel missing from the table is a configuration error.
type ChannelTable struct {
	profiles map[string]ChannelProfile
}

// NewChannelTable builds a table, validating every profile.
func NewChannelTable(profiles map[string]ChannelProfile) (*ChannelTable, error) {
	t := &ChannelTable{profiles: make(map[string]ChannelProfile, len(profiles))}
	for name, p := range profiles {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		t.profiles[name] = p
	}
	return t, nil
}

// Lookup returns the profile for channel or ErrUnknownChannel.
func (t *ChannelTable) Lookup(channel string) (ChannelProfile, error) {
	p, ok := t.profiles[channel]
	if !ok {
		return ChannelProfile{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return p, nil
}

// Names returns the configured channel names in sorted order.
func (t *ChannelTable) Names() []string {
	names := make([]string, 0, len(t.profiles))
	for n := range t.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured channels.
func (t *ChannelTable) Len() int { return len(t.profiles) }
