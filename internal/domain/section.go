package domain

import (
	"fmt"
	"strings"
)

// Section is a store department. Targets and reports are kept per section.
type Section string

const (
	SectionInterior         Section = "interior"
	SectionGardenTools      Section = "utiles_jardin"
	SectionSeeds            Section = "semillas"
	SectionIndoorDeco       Section = "deco_interior"
	SectionMAF              Section = "maf"
	SectionNursery          Section = "vivero"
	SectionOutdoorDeco      Section = "deco_exterior"
	SectionSoil             Section = "tierra_aridos"
	SectionPlantCare        Section = "fitos"
	SectionPetsManufactured Section = "mascotas_manufacturado"
	SectionPetsLive         Section = "mascotas_vivo"
)

// Sections lists the fixed set of known sections.
var Sections = []Section{
	SectionInterior,
	SectionGardenTools,
	SectionSeeds,
	SectionIndoorDeco,
	SectionMAF,
	SectionNursery,
	SectionOutdoorDeco,
	SectionSoil,
	SectionPlantCare,
	SectionPetsManufactured,
	SectionPetsLive,
}

// DefaultLivePetFamilies are the four-digit code prefixes of live animals.
var DefaultLivePetFamilies = []string{
	"2104", "2204", "2305", "2405", "2504", "2606",
	"2705", "2707", "2708", "2805", "2806", "2906",
}

var firstDigitSections = map[byte]Section{
	'1': SectionInterior,
	'4': SectionGardenTools,
	'5': SectionSeeds,
	'6': SectionIndoorDeco,
	'7': SectionMAF,
	'8': SectionNursery,
	'9': SectionOutdoorDeco,
}

// ParseSection validates a section name.
func ParseSection(raw string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Sections {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", raw)
}

// NormalizeCode trims an article code as read from a spreadsheet, where
// numeric codes often come back as "1234567890.0".
func NormalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	code = strings.TrimSuffix(code, ".0")
	return code
}

// SectionForCode derives the section from the article code prefix. Codes
// shorter than ten digits or with no known prefix return "".
func SectionForCode(code string, livePetFamilies []string) Section {
	code = NormalizeCode(code)
	if len(code) < 10 {
		return ""
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if livePetFamilies == nil {
		livePetFamilies = DefaultLivePetFamilies
	}

	switch code[0] {
	case '2':
		for _, family := range livePetFamilies {
			if strings.HasPrefix(code, family) {
				return SectionPetsLive
			}
		}
		return SectionPetsManufactured
	case '3':
		switch {
		case code[1] == '1' || code[1] == '2':
			return SectionSoil
		case code[1] >= '3' && code[1] <= '9':
			return SectionPlantCare
		}
		return ""
	}

	return firstDigitSections[code[0]]
}
