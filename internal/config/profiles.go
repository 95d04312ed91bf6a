package config

import (
	"os"
	"strings"

	"github.com/kiranshivaraju/a1gen/pkg/models"
)

// Profiles is the named connection profile table. It is built once at startup
// and never mutated afterwards; callers receive copies of its entries.
type Profiles struct {
	names    []string
	profiles map[string]models.Profile
}

// NewProfiles builds a table from the given profiles in order. The first entry
// becomes the default profile.
func NewProfiles(list ...models.Profile) Profiles {
	p := Profiles{profiles: make(map[string]models.Profile, len(list))}
	for _, prof := range list {
		if _, dup := p.profiles[prof.Name]; dup {
			continue
		}
		p.names = append(p.names, prof.Name)
		p.profiles[prof.Name] = prof
	}
	return p
}

func loadProfiles() Profiles {
	var names []string
	for _, n := range strings.Split(os.Getenv("A1_PROFILES"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		names = []string{DefaultProfile}
	}

	base := BaseProfile()
	list := make([]models.Profile, 0, len(names))
	for _, name := range names {
		suffix := "_" + strings.ToUpper(name)
		list = append(list, models.Profile{
			Name:      name,
			AppID:     envString("A1_APP_ID"+suffix, base.AppID),
			APIKey:    envString("A1_API_KEY"+suffix, base.APIKey),
			VersionID: envString("A1_VERSION_ID"+suffix, base.VersionID),
			CnetID:    envString("A1_CNET_ID"+suffix, base.CnetID),
			CnetPath:  envString("A1_CNET_PATH"+suffix, base.CnetPath),
		})
	}
	return NewProfiles(list...)
}

// Names returns the profile names in configuration order.
func (p Profiles) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Default returns the name of the default profile, or "" for an empty table.
func (p Profiles) Default() string {
	if len(p.names) == 0 {
		return ""
	}
	return p.names[0]
}

// Get returns the profile registered under name.
func (p Profiles) Get(name string) (models.Profile, bool) {
	prof, ok := p.profiles[name]
	return prof, ok
}

// Lookup resolves name to a profile, falling back to the default profile when
// name is blank or unknown. ok is false only when the table is empty.
func (p Profiles) Lookup(name string) (models.Profile, bool) {
	if prof, ok := p.profiles[name]; ok {
		return prof, true
	}
	return p.Get(p.Default())
}

// Len returns the number of profiles.
func (p Profiles) Len() int {
	return len(p.names)
}
