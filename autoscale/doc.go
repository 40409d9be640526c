// Package autoscale provides a backlog-driven growth policy for a
// qpool.Pool. qpool.Pool never grows or shrinks on its own — Watcher is the
// composition layer that decides when Increase is worth calling.
//
// A qpool.Pool never removes workers once started, so Watcher is
// necessarily grow-only: it periodically compares queue backlog against
// worker count and adds workers when the backlog crosses a threshold, up
// to a configured ceiling.
package autoscale
