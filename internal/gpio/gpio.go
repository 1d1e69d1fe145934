// Package gpio drives the cooling module's enable line.
// The real implementation uses the Linux GPIO character device.
package gpio

// Line is a single output line in logical terms: active means the cooling
// module's driver stage is enabled.
type Line interface {
	Set(active bool) error
	Close() error
}
