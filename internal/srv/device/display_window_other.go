//go:build !amd64

package device

import "errors"

func newWindowSimulator(display *Display) (simulator, error) {
	return nil, errors.New("simulation window is only available on amd64")
}
