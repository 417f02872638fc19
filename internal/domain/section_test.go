package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionForCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Section
	}{
		{name: "short code", code: "123456789", want: ""},
		{name: "non numeric", code: "12345A7890", want: ""},
		{name: "interior", code: "1000000001", want: SectionInterior},
		{name: "live pet family", code: "2104000001", want: SectionPetsLive},
		{name: "other pet family", code: "2103000001", want: SectionPetsManufactured},
		{name: "soil 31", code: "3100000001", want: SectionSoil},
		{name: "soil 32", code: "3200000001", want: SectionSoil},
		{name: "plant care", code: "3500000001", want: SectionPlantCare},
		{name: "prefix 30 unknown", code: "3000000001", want: ""},
		{name: "garden tools", code: "4000000001", want: SectionGardenTools},
		{name: "seeds", code: "5000000001", want: SectionSeeds},
		{name: "indoor deco", code: "6000000001", want: SectionIndoorDeco},
		{name: "maf", code: "7000000001", want: SectionMAF},
		{name: "nursery", code: "8000000001", want: SectionNursery},
		{name: "outdoor deco", code: "9000000001", want: SectionOutdoorDeco},
		{name: "spreadsheet float suffix", code: "8000000001.0", want: SectionNursery},
		{name: "prefix zero", code: "0000000001", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SectionForCode(tt.code, nil))
		})
	}
}

func TestSectionForCodeCustomFamilies(t *testing.T) {
	assert.Equal(t, SectionPetsManufactured, SectionForCode("2104000001", []string{"2999"}))
	assert.Equal(t, SectionPetsLive, SectionForCode("2999000001", []string{"2999"}))
}

func TestParseSectionAndCategory(t *testing.T) {
	s, err := ParseSection(" Vivero ")
	require.NoError(t, err)
	assert.Equal(t, SectionNursery, s)

	_, err = ParseSection("garage")
	assert.Error(t, err)

	c, err := ParseCategory("b")
	require.NoError(t, err)
	assert.Equal(t, CategoryB, c)

	_, err = ParseCategory("E")
	assert.Error(t, err)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsConfigError(&MissingTargetError{Section: SectionSeeds, Week: 3}))
	assert.True(t, IsConfigError(&MissingWeightError{Category: CategoryA}))
	assert.True(t, IsConfigError(&InvalidWeekError{Week: 60}))
	assert.False(t, IsConfigError(&InvalidPriceError{ArticleCode: "1", Price: 0}))
	assert.True(t, IsSequencingError(&OutOfOrderWeekError{Expected: 4, Got: 6}))

	err := &MissingTargetError{Section: SectionSeeds, Week: 3}
	assert.Contains(t, err.Error(), "semillas")
	assert.Contains(t, err.Error(), "week 3")
}
