// Package dataset locates the preprocessed inputs of a subject.
//
// A dataset tree is scanned once into an Index (in memory, or persisted by
// package sqliteindex). The Resolver then answers one query per input role
// and assembles a SubjectInputSet holding the subject-wide anatomical files
// and, per session, the diffusion files.
package dataset
