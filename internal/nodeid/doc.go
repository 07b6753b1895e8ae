/*
Package nodeid provides a structured representation for qualified node
identifiers inside a nested workflow graph.

The canonical format is a dot-separated sequence of segments, one per
nesting level, e.g. `single_subject_01_wf.anatomical_wf.register_atlas`.
The last segment names the node, the leading segments name the enclosing
workflows. A segment may not contain a dot.
*/
package nodeid
