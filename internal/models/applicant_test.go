package models

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestParseTier(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Tier
		wantErr bool
	}{
		{"geeignet", "geeignet", TierGeeignet, false},
		{"bedingt geeignet", "bedingt_geeignet", TierBedingtGeeignet, false},
		{"nicht geeignet", "nicht_geeignet", TierNichtGeeignet, false},
		{"unset", "unset", TierUnset, false},
		{"unknown value", "sehr_geeignet", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Geeignet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTier(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTier_Rank_TotalOrder(t *testing.T) {
	assert.Equal(t, 0, TierGeeignet.Rank())
	assert.Equal(t, 1, TierBedingtGeeignet.Rank())
	assert.Equal(t, 2, TierNichtGeeignet.Rank())
	assert.Equal(t, 3, TierUnset.Rank())

	// Values outside the closed set sort after every valid tier.
	assert.Greater(t, Tier("bogus").Rank(), TierUnset.Rank())
}

func TestTier_Eligible(t *testing.T) {
	assert.True(t, TierGeeignet.Eligible())
	assert.True(t, TierBedingtGeeignet.Eligible())
	assert.False(t, TierNichtGeeignet.Eligible())
	assert.False(t, TierUnset.Eligible())
}

func TestApplicant_Less_TierPrecedesMean(t *testing.T) {
	// A low-tier applicant with a strong mean never overtakes a
	// higher-tier applicant.
	z := &Applicant{ID: 1, Tier: TierGeeignet, MeanScore: f64(1.2)}
	y := &Applicant{ID: 2, Tier: TierUnset, MeanScore: f64(9.9)}

	assert.True(t, z.Less(y))
	assert.False(t, y.Less(z))
}

func TestApplicant_Less_MeanAscendingWithinTier(t *testing.T) {
	a := &Applicant{ID: 1, Tier: TierBedingtGeeignet, MeanScore: f64(2.0)}
	b := &Applicant{ID: 2, Tier: TierBedingtGeeignet, MeanScore: f64(3.5)}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestApplicant_Less_NilMeanSortsLastWithinTier(t *testing.T) {
	rated := &Applicant{ID: 5, Tier: TierGeeignet, MeanScore: f64(4.9)}
	unrated := &Applicant{ID: 1, Tier: TierGeeignet}

	assert.True(t, rated.Less(unrated))
	assert.False(t, unrated.Less(rated))
}

func TestApplicant_Less_StableByID(t *testing.T) {
	a := &Applicant{ID: 1, Tier: TierGeeignet, MeanScore: f64(3.0)}
	b := &Applicant{ID: 2, Tier: TierGeeignet, MeanScore: f64(3.0)}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	u1 := &Applicant{ID: 3, Tier: TierUnset}
	u2 := &Applicant{ID: 4, Tier: TierUnset}
	assert.True(t, u1.Less(u2))
}

func TestApplicant_Less_SortOrder(t *testing.T) {
	pool := []*Applicant{
		{ID: 1, Tier: TierUnset, MeanScore: f64(1.0)},
		{ID: 2, Tier: TierNichtGeeignet, MeanScore: f64(2.0)},
		{ID: 3, Tier: TierGeeignet},
		{ID: 4, Tier: TierGeeignet, MeanScore: f64(3.1)},
		{ID: 5, Tier: TierBedingtGeeignet, MeanScore: f64(1.5)},
		{ID: 6, Tier: TierGeeignet, MeanScore: f64(2.4)},
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Less(pool[j]) })

	gotIDs := make([]int64, len(pool))
	for i, a := range pool {
		gotIDs[i] = a.ID
	}
	assert.Equal(t, []int64{6, 4, 3, 5, 2, 1}, gotIDs)
}

func TestApplicant_Preferences(t *testing.T) {
	p1, p3 := int64(10), int64(30)

	a := &Applicant{FirstChoice: &p1, ThirdChoice: &p3}
	assert.Equal(t, []int64{10, 30}, a.Preferences())

	none := &Applicant{}
	assert.Empty(t, none.Preferences())
}

func TestPlacement_AutoAssignable(t *testing.T) {
	cap2 := 2

	p := &Placement{Capacity: &cap2}
	assert.True(t, p.AutoAssignable(0))
	assert.True(t, p.AutoAssignable(1))
	assert.False(t, p.AutoAssignable(2))
	assert.False(t, p.AutoAssignable(3))

	// Nil capacity means the placement never receives automatic
	// assignments.
	unbounded := &Placement{}
	assert.False(t, unbounded.AutoAssignable(0))
}
