// Package tf owns the core kinematic bookkeeping layer: frame name/id
// interning, per-edge time-indexed sample caches, and the transform
// composition query engine.
//
// Dependency rule: tf depends on nothing else in this module. The packages
// that use it (tfgrpc, tfhttp, tfpose, tfrecorder, tfserial, tfviz) import
// tf, never the reverse; tfwire, tfconfig and tfcapture do not import it.
package tf
