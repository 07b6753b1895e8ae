package sqliteindex

import (
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The SQLite index must answer every role query exactly like the
// in-memory index over the same scan.
func TestIndex_MatchesMemoryIndex(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := testutil.WriteDataset(t, t.TempDir(),
		testutil.SubjectFixture{ID: "01", Sessions: []string{"1", "2"}},
		testutil.SubjectFixture{ID: "02", Sessions: []string{"1"}, Omit: []string{"space-dwi_dwiref.nii.gz"}},
		testutil.SubjectFixture{ID: "03"},
	)

	files, err := dataset.Scan(ctx, root)
	require.NoError(t, err)
	mem := dataset.NewMemoryIndex(files)

	idx, err := Build(ctx, filepath.Join(t.TempDir(), "db"), root, true)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	wantSubjects, err := mem.Subjects(ctx)
	require.NoError(t, err)
	gotSubjects, err := idx.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantSubjects, gotSubjects)

	for _, sub := range wantSubjects {
		wantSes, err := mem.Sessions(ctx, sub)
		require.NoError(t, err)
		gotSes, err := idx.Sessions(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, wantSes, gotSes, "sessions of %s", sub)

		roles := append([]dataset.Role{}, dataset.SubjectRoles...)
		roles = append(roles, dataset.SessionRoles...)
		for _, ses := range append([]string{""}, wantSes...) {
			for _, role := range roles {
				q, ok := dataset.QueryFor(role, sub, ses)
				if !ok {
					continue
				}
				want, err := mem.Get(ctx, q)
				require.NoError(t, err)
				got, err := idx.Get(ctx, q)
				require.NoError(t, err)
				assert.Equal(t, want, got, "role %s of %s/%s", role, sub, ses)
			}
		}
	}
}

func TestBuild_ReusesAndResets(t *testing.T) {
	ctx, logs := testutil.NewContext(t)
	dbDir := filepath.Join(t.TempDir(), "db")
	root := testutil.WriteDataset(t, t.TempDir(), testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}})

	idx, err := Build(ctx, dbDir, root, false)
	require.NoError(t, err)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	require.NoError(t, idx.Close())

	// A second subject appears; without reset the stored scan is reused.
	testutil.WriteDataset(t, root, testutil.SubjectFixture{ID: "02", Sessions: []string{"1"}})
	idx, err = Build(ctx, dbDir, root, false)
	require.NoError(t, err)
	subjects, err := idx.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"01"}, subjects)
	assert.Contains(t, logs.String(), "reusing stored dataset")
	require.NoError(t, idx.Close())

	idx, err = Build(ctx, dbDir, root, true)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	subjects, err = idx.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02"}, subjects)
}

func TestResolverOverSQLite(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := testutil.WriteDataset(t, t.TempDir(), testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}})

	idx, err := Build(ctx, filepath.Join(t.TempDir(), "db"), root, true)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	set, err := dataset.NewResolver(idx, root).ResolveSubject(ctx, "01", false)
	require.NoError(t, err)
	require.Len(t, set.Sessions, 1)
	assert.Equal(t,
		filepath.Join(root, "sub-01", "ses-1", "dwi", "sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz"),
		set.Sessions[0].Files[dataset.DWINifti])
}
