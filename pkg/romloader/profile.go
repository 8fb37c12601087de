// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"fmt"
	"slices"
	"strings"
)

// Profile describes one firmware generation of the programmer.
type Profile struct {
	Name            string
	BaudRate        int
	Verbs           []string
	ProgressMarkers bool // firmware streams '.' while erasing
}

var (
	// ProfileLegacy is the original 9600 baud firmware: erase, write and
	// read only, with no progress markers.
	ProfileLegacy = Profile{
		Name:     "legacy",
		BaudRate: 9600,
		Verbs:    []string{VerbErase, VerbWrite, VerbRead},
	}

	// ProfileStandard is the 115200 baud firmware with ident, reset and
	// erase progress markers.
	ProfileStandard = Profile{
		Name:            "standard",
		BaudRate:        115200,
		Verbs:           []string{VerbErase, VerbWrite, VerbRead, VerbIdent, VerbReset},
		ProgressMarkers: true,
	}
)

// Profiles lists the known profiles by name.
var Profiles = map[string]Profile{
	ProfileLegacy.Name:   ProfileLegacy,
	ProfileStandard.Name: ProfileStandard,
}

// ProfileByName looks up a profile, ignoring case.
func ProfileByName(name string) (Profile, error) {
	p, ok := Profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown protocol profile %q (use legacy or standard)", name)
	}
	return p, nil
}

// Supports reports whether verb is part of the profile.
func (p Profile) Supports(verb string) bool {
	return slices.Contains(p.Verbs, verb)
}
