package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, subjects ...testutil.SubjectFixture) (context.Context, *Resolver, string) {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	root := testutil.WriteDataset(t, t.TempDir(), subjects...)
	files, err := Scan(ctx, root)
	require.NoError(t, err)
	return ctx, NewResolver(NewMemoryIndex(files), root), root
}

func TestScan(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := testutil.WriteDataset(t, t.TempDir(), testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}})
	testutil.WriteFile(t, filepath.Join(root, "dataset_description.json"), "{}")
	testutil.WriteFile(t, filepath.Join(root, ".cache", "sub-99_T1w.nii.gz"), "")

	files, err := Scan(ctx, root)
	require.NoError(t, err)

	// 8 anatomical + 8 diffusion files; the description, the eddy qc file
	// and the hidden cache carry no subject or are skipped.
	assert.Len(t, files, 16)
	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1].Path, files[i].Path)
	}
	for _, f := range files {
		assert.Equal(t, "01", f.Entities[bids.Subject], f.Path)
	}
}

func TestQueryMatches(t *testing.T) {
	ents := bids.ParseEntities("/d/sub-01/anat/sub-01_space-MNI152NLin2009cAsym_desc-preproc_T1w.nii.gz")

	testCases := []struct {
		name  string
		query Query
		want  bool
	}{
		{name: "subject only", query: Query{Subject: "01"}, want: true},
		{name: "other subject", query: Query{Subject: "02"}, want: false},
		{name: "matching entities", query: Query{Subject: "01", Entities: map[string]string{bids.Desc: "preproc", bids.Datatype: "anat"}}, want: true},
		{name: "mismatching entity", query: Query{Subject: "01", Entities: map[string]string{bids.Desc: "brain"}}, want: false},
		{name: "absent violated", query: Query{Subject: "01", Absent: []string{bids.Space}}, want: false},
		{name: "session required", query: Query{Subject: "01", Session: "1"}, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.query.Matches(ents))
		})
	}
}

func TestResolveSubject(t *testing.T) {
	ctx, r, root := newResolver(t,
		testutil.SubjectFixture{ID: "01", Sessions: []string{"2", "1"}},
		testutil.SubjectFixture{ID: "02", Sessions: []string{"1"}},
	)

	set, err := r.ResolveSubject(ctx, "01", false)
	require.NoError(t, err)

	assert.Equal(t, "01", set.SubjectID)
	assert.Equal(t, filepath.Join(root, "sub-01", "anat", "sub-01_desc-preproc_T1w.nii.gz"), set.Anat[T1wPreproc])
	assert.Equal(t, filepath.Join(root, "sub-01", "anat", "sub-01_from-MNI152NLin2009cAsym_to-T1w_mode-image_xfm.h5"), set.Anat[MNIToNativeTransform])
	assert.Equal(t, filepath.Join(root, "sub-01", "anat", "sub-01_label-GM_probseg.nii.gz"), set.Anat[GMProbseg])
	assert.Len(t, set.Anat, len(SubjectRoles))

	require.Len(t, set.Sessions, 2)
	assert.Equal(t, "1", set.Sessions[0].SessionID)
	assert.Equal(t, "2", set.Sessions[1].SessionID)

	ses := set.Sessions[0].Files
	assert.Len(t, ses, len(SessionRoles))
	dwiDir := filepath.Join(root, "sub-01", "ses-1", "dwi")
	assert.Equal(t, filepath.Join(dwiDir, "sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz"), ses[DWINifti])
	assert.Equal(t, filepath.Join(dwiDir, "sub-01_ses-1_space-dwi_desc-preproc_dwi.bval"), ses[DWIBval])
	assert.Equal(t, filepath.Join(dwiDir, "sub-01_ses-1_space-dwi_desc-preproc_dwi.b"), ses[DWIGrad])
	assert.Equal(t, filepath.Join(dwiDir, "sub-01_ses-1_space-dwi_dwiref.nii.gz"), ses[DWIReference])
	assert.Equal(t, filepath.Join(dwiDir, "sub-01_ses-1_from-T1w_to-dwi_mode-image_xfm.txt"), ses[T1wToDWITransform])
	assert.Equal(t, filepath.Join(dwiDir, "eddy_qc"), ses[EddyQC])

	subjects, err := r.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02"}, subjects)
}

func TestResolveSubject_Missing(t *testing.T) {
	testCases := []struct {
		name     string
		fixture  testutil.SubjectFixture
		anatOnly bool
		wantRole Role
		wantSes  string
	}{
		{
			name:     "zero sessions",
			fixture:  testutil.SubjectFixture{ID: "01"},
			wantRole: DWINifti,
		},
		{
			name:     "missing probseg",
			fixture:  testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}, Omit: []string{"label-WM_probseg.nii.gz"}},
			wantRole: WMProbseg,
		},
		{
			name:     "missing bval",
			fixture:  testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}, Omit: []string{"space-dwi_desc-preproc_dwi.bval"}},
			wantRole: DWIBval,
			wantSes:  "1",
		},
		{
			name:     "missing eddy qc",
			fixture:  testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}, Omit: []string{"eddy_qc"}},
			wantRole: EddyQC,
			wantSes:  "1",
		},
		{
			name:     "anat only still needs anatomy",
			fixture:  testutil.SubjectFixture{ID: "01", Omit: []string{"desc-preproc_T1w.nii.gz"}},
			anatOnly: true,
			wantRole: T1wPreproc,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, r, _ := newResolver(t, tc.fixture)

			_, err := r.ResolveSubject(ctx, tc.fixture.ID, tc.anatOnly)
			require.ErrorIs(t, err, ErrMissingInput)

			var missing *MissingInputError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tc.wantRole, missing.Role)
			assert.Equal(t, tc.wantSes, missing.Session)
			assert.Equal(t, "01", missing.Subject)
		})
	}
}

func TestResolveSubject_AnatOnlyWithoutSessions(t *testing.T) {
	ctx, r, _ := newResolver(t, testutil.SubjectFixture{ID: "01"})

	set, err := r.ResolveSubject(ctx, "01", true)
	require.NoError(t, err)
	assert.Empty(t, set.Sessions)
	assert.Len(t, set.Anat, len(SubjectRoles))
}

func TestMissingInputError_Message(t *testing.T) {
	err := &MissingInputError{Role: DWIMask, Subject: "01", Session: "2"}
	assert.Equal(t, "no dwi_mask found for subject 01, session 2", err.Error())
}
