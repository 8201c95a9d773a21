//go:build !opencl

package gpu

// Enumerate returns the OpenCL devices on the given platform. This build has
// no OpenCL layer compiled in, so no devices are ever found and GPU mode
// refuses to start.
func Enumerate(platformID, computeUnits, localWorkSize int) ([]Device, error) {
	return nil, nil
}

// Available reports whether this binary was built with an OpenCL layer.
func Available() bool {
	return false
}
