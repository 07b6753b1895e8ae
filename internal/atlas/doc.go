// Package atlas is the static catalog of parcellation atlases: for each atlas
// id, its reference image in template space, the table describing its
// regions, and which columns of that table hold region labels and indices.
//
// Parametric families (one atlas published at several granularities) are
// expanded at registration time into individually addressable ids, e.g.
// schaefer2018_400_17.
package atlas
