//go:build !linux && !darwin

package arena

func mapPage(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapPage([]byte) error {
	return nil
}
