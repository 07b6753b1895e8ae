package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/dwigrid/internal/ctxlog"
)

// SubjectInputSet holds every input file of one subject.
type SubjectInputSet struct {
	SubjectID string
	Anat      map[Role]string
	// Sessions are ordered by session id.
	Sessions []SessionInputs
}

// SessionInputs holds the diffusion inputs of one session.
type SessionInputs struct {
	SessionID string
	Files     map[Role]string
}

// Resolver maps roles to files through an Index.
type Resolver struct {
	index Index
	root  string
}

// NewResolver creates a resolver over idx for the dataset rooted at root.
func NewResolver(idx Index, root string) *Resolver {
	return &Resolver{index: idx, root: root}
}

// Subjects lists every subject known to the index.
func (r *Resolver) Subjects(ctx context.Context) ([]string, error) {
	return r.index.Subjects(ctx)
}

// ResolveSubject resolves every role of subject. With anatOnly the
// diffusion sessions are neither required nor resolved.
func (r *Resolver) ResolveSubject(ctx context.Context, subject string, anatOnly bool) (*SubjectInputSet, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dataset: resolving subject.", "subject", subject, "anat_only", anatOnly)

	set := &SubjectInputSet{SubjectID: subject, Anat: make(map[Role]string, len(SubjectRoles))}
	for _, role := range SubjectRoles {
		path, err := r.first(ctx, role, subject, "")
		if err != nil {
			return nil, err
		}
		set.Anat[role] = path
	}
	if anatOnly {
		return set, nil
	}

	sessions, err := r.index.Sessions(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of subject %s: %w", subject, err)
	}
	if len(sessions) == 0 {
		return nil, &MissingInputError{Role: DWINifti, Subject: subject}
	}

	for _, ses := range sessions {
		files := make(map[Role]string, len(SessionRoles))
		for _, role := range SessionRoles {
			var path string
			if role == EddyQC {
				path, err = r.eddyQC(subject, ses)
			} else {
				path, err = r.first(ctx, role, subject, ses)
			}
			if err != nil {
				return nil, err
			}
			files[role] = path
		}
		set.Sessions = append(set.Sessions, SessionInputs{SessionID: ses, Files: files})
	}

	logger.Debug("Dataset: subject resolved.", "subject", subject, "sessions", len(set.Sessions))
	return set, nil
}

func (r *Resolver) first(ctx context.Context, role Role, subject, session string) (string, error) {
	q, ok := QueryFor(role, subject, session)
	if !ok {
		return "", fmt.Errorf("no query template for role %s", role)
	}
	paths, err := r.index.Get(ctx, q)
	if err != nil {
		return "", fmt.Errorf("failed to query %s for subject %s: %w", role, subject, err)
	}
	if len(paths) == 0 {
		return "", &MissingInputError{Role: role, Subject: subject, Session: session}
	}
	return paths[0], nil
}

func (r *Resolver) eddyQC(subject, session string) (string, error) {
	dir := filepath.Join(r.root, "sub-"+subject, "ses-"+session, "dwi", "eddy_qc")
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &MissingInputError{Role: EddyQC, Subject: subject, Session: session}
	}
	return dir, nil
}
