package atlas

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dwigrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault_ExpandsFamilies(t *testing.T) {
	reg := NewDefault("/atlases")
	ids := reg.IDs()

	// fan2016, huang2022 and 10 densities x 2 network counts of schaefer2018.
	assert.Len(t, ids, 22)
	assert.Contains(t, ids, "fan2016")
	assert.Contains(t, ids, "huang2022")
	assert.Contains(t, ids, "schaefer2018_100_7")
	assert.Contains(t, ids, "schaefer2018_1000_17")

	d, ok := reg.Get("schaefer2018_400_17")
	require.True(t, ok)
	assert.Equal(t, "/atlases/schaefer2018/MNI152/space-MNI152_atlas-schaefer2018_res-1mm_den-400_desc-17networks_dseg.nii.gz", d.ReferenceImage)
	assert.Equal(t, "/atlases/schaefer2018/MNI152/space-MNI152_atlas-schaefer2018_res-1mm_den-400_desc-17networks_dseg.csv", d.RegionTable)
	assert.Equal(t, "index", d.LabelColumn)
	require.NotNil(t, d.IndexColumn)
	assert.Equal(t, 0, *d.IndexColumn)

	fan, ok := reg.Get("fan2016")
	require.True(t, ok)
	assert.Equal(t, "Label", fan.LabelColumn)
	assert.Nil(t, fan.IndexColumn)
	assert.Equal(t, "/atlases/fan2016/MNI152/space-MNI152_atlas-fan2016_res-1mm_dseg.nii.gz", fan.ReferenceImage)
}

func TestResolve(t *testing.T) {
	reg := NewDefault("/atlases")

	t.Run("sentinel expands to every id", func(t *testing.T) {
		got, err := reg.Resolve([]string{All})
		require.NoError(t, err)
		assert.Len(t, got, len(reg.IDs()))
	})

	t.Run("empty selection expands to every id", func(t *testing.T) {
		got, err := reg.Resolve(nil)
		require.NoError(t, err)
		assert.Len(t, got, len(reg.IDs()))
	})

	t.Run("explicit list is sorted and deduplicated", func(t *testing.T) {
		got, err := reg.Resolve([]string{"huang2022", "fan2016", "huang2022"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "fan2016", got[0].ID)
		assert.Equal(t, "huang2022", got[1].ID)
	})

	t.Run("resolution is idempotent", func(t *testing.T) {
		for _, sel := range [][]string{{All}, {"schaefer2018_200_7", "fan2016"}} {
			first, err := reg.Resolve(sel)
			require.NoError(t, err)
			ids := make([]string, 0, len(first))
			for _, d := range first {
				ids = append(ids, d.ID)
				_, ok := reg.Get(d.ID)
				assert.True(t, ok)
			}
			second, err := reg.Resolve(ids)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	})

	t.Run("unknown id lists valid ids", func(t *testing.T) {
		_, err := reg.Resolve([]string{"fan2016", "aal"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownAtlas)

		var unknown *UnknownAtlasError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "aal", unknown.ID)
		assert.Contains(t, unknown.Valid, "fan2016")
		assert.Contains(t, err.Error(), "huang2022")
	})
}

func TestRegister(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(Descriptor{ID: "custom"}))

	err := reg.Register(Descriptor{ID: "custom"})
	assert.ErrorIs(t, err, ErrDuplicateAtlas)

	assert.Error(t, reg.Register(Descriptor{ID: All}))
	assert.Error(t, reg.Register(Descriptor{}))

	err = reg.RegisterFamily(Family{Name: "broken", Densities: []int{100}})
	assert.ErrorContains(t, err, "no network counts")
}

func TestValidate(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	reg := NewDefault(root)

	descs, err := reg.Resolve([]string{"fan2016"})
	require.NoError(t, err)

	err = reg.Validate(ctx, descs)
	assert.ErrorIs(t, err, ErrAtlasFileMissing)

	testutil.WriteAtlasFiles(t, descs[0].ReferenceImage, descs[0].RegionTable)
	assert.NoError(t, reg.Validate(ctx, descs))
	assert.FileExists(t, filepath.Join(root, "fan2016", "MNI152", "space-MNI152_atlas-fan2016_res-1mm_dseg.csv"))
}
