// Package focus briefly takes keyboard focus so clipboard reads work from
// a background overlay process, then hands it back.
package focus

// Controller acquires focus before a clipboard read and releases it after.
// The watcher drives the acquire-read-release cycle.
type Controller interface {
	Acquire() error
	Release()
}
