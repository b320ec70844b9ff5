// Package directory resolves per-cohort chat configuration from static
// settings.
package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// Static maps each school year to its announcement channel, audience role
// and optional upcoming-classes board channel.
type Static struct {
	channels map[domain.SchoolYear]string
	roles    map[domain.SchoolYear]string
	upcoming map[domain.SchoolYear]string
}

var _ domain.Directory = (*Static)(nil)

// New builds a directory from year-keyed maps such as the ones parsed from
// `L1:chan-1,L2:chan-2`. Unknown years and blank ids are rejected.
func New(channels, roles, upcoming map[string]string) (*Static, error) {
	parsedChannels, err := parse("announcement channel", channels)
	if err != nil {
		return nil, err
	}
	parsedRoles, err := parse("audience role", roles)
	if err != nil {
		return nil, err
	}
	parsedUpcoming, err := parse("upcoming channel", upcoming)
	if err != nil {
		return nil, err
	}
	return &Static{channels: parsedChannels, roles: parsedRoles, upcoming: parsedUpcoming}, nil
}

func parse(kind string, raw map[string]string) (map[domain.SchoolYear]string, error) {
	out := make(map[domain.SchoolYear]string, len(raw))
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		year := domain.SchoolYear(strings.ToUpper(strings.TrimSpace(key)))
		if !year.Valid() {
			return nil, fmt.Errorf("%s: unknown school year %q", kind, key)
		}
		value := strings.TrimSpace(raw[key])
		if value == "" {
			return nil, fmt.Errorf("%s for %s is empty", kind, year)
		}
		out[year] = value
	}
	return out, nil
}

// AnnouncementChannel returns the channel where e-classes of year are announced.
func (d *Static) AnnouncementChannel(year domain.SchoolYear) (string, bool) {
	if d == nil {
		return "", false
	}
	channelID, ok := d.channels[year]
	return channelID, ok
}

// AudienceRole returns the role pinged for e-classes of year.
func (d *Static) AudienceRole(year domain.SchoolYear) (string, bool) {
	if d == nil {
		return "", false
	}
	roleID, ok := d.roles[year]
	return roleID, ok
}

// UpcomingChannel returns the channel holding the upcoming-classes board of
// year. Years without one get no board.
func (d *Static) UpcomingChannel(year domain.SchoolYear) (string, bool) {
	if d == nil {
		return "", false
	}
	channelID, ok := d.upcoming[year]
	return channelID, ok
}

// Missing lists the school years lacking a channel or a role.
func (d *Static) Missing() []string {
	var missing []string
	for _, year := range domain.SchoolYears {
		if _, ok := d.AnnouncementChannel(year); !ok {
			missing = append(missing, string(year)+" announcement channel")
		}
		if _, ok := d.AudienceRole(year); !ok {
			missing = append(missing, string(year)+" audience role")
		}
	}
	return missing
}
